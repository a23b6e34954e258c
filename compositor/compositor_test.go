// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import (
	"image"
	"testing"

	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
)

func newTestCompositor() *Compositor {
	return &Compositor{
		xc:      &xconn{atoms: &atomTable{netActiveWindow: 999}},
		root:    1,
		windows: make(map[xproto.Window]*ClientWindow),
		pixmaps: make(map[damage.Damage]*windowPixmap),
	}
}

func TestHandleEventRootConfigureNotifyUpdatesRootGeometry(t *testing.T) {
	c := newTestCompositor()
	c.rootGeometry = image.Rect(0, 0, 800, 600)
	var emitted []image.Rectangle
	c.RootGeometryChanged.Connect(func(g image.Rectangle) { emitted = append(emitted, g) })

	handled := c.HandleEvent(xproto.ConfigureNotifyEvent{
		Window: 1, Event: 1, Width: 1920, Height: 1080,
	})
	if !handled {
		t.Fatalf("root ConfigureNotify with Window==Event must be handled")
	}
	if c.RootGeometry() != image.Rect(0, 0, 1920, 1080) {
		t.Fatalf("RootGeometry() = %v, want 0,0-1920,1080", c.RootGeometry())
	}
	if len(emitted) != 1 {
		t.Fatalf("RootGeometryChanged emitted %d times, want 1", len(emitted))
	}
}

func TestHandleEventIgnoresUntrackedWindows(t *testing.T) {
	c := newTestCompositor()

	if c.HandleEvent(xproto.FocusInEvent{Event: 42}) {
		t.Fatalf("FocusIn for an untracked window must return false")
	}
	if c.HandleEvent(xproto.FocusOutEvent{Event: 42}) {
		t.Fatalf("FocusOut for an untracked window must return false")
	}
	if c.HandleEvent(xproto.PropertyNotifyEvent{Window: 42, Atom: 12345}) {
		t.Fatalf("PropertyNotify for an untracked window must return false")
	}
	if c.HandleEvent(shape.NotifyEvent{AffectedWindow: 42, Kind: shapeKindBounding}) {
		t.Fatalf("ShapeNotify for an untracked window must return false")
	}
}

func TestHandleEventDispatchesFocusInOutToTrackedWindow(t *testing.T) {
	c := newTestCompositor()
	cw := &ClientWindow{win: 5}
	c.windows[5] = cw

	if !c.HandleEvent(xproto.FocusInEvent{Event: 5, Detail: xproto.NotifyDetailNonlinear}) {
		t.Fatalf("FocusIn for a tracked window must return true")
	}
	if !cw.HasInputFocus() {
		t.Fatalf("dispatched FocusIn must set input focus on the tracked window")
	}

	if !c.HandleEvent(xproto.FocusOutEvent{Event: 5, Detail: xproto.NotifyDetailNonlinear}) {
		t.Fatalf("FocusOut for a tracked window must return true")
	}
	if cw.HasInputFocus() {
		t.Fatalf("dispatched FocusOut must clear input focus on the tracked window")
	}
}

func TestHandleEventDispatchesShapeNotifyToTrackedWindow(t *testing.T) {
	c := newTestCompositor()
	cw := &ClientWindow{win: 5}
	c.windows[5] = cw

	if !c.HandleEvent(shape.NotifyEvent{AffectedWindow: 5, Kind: shapeKindBounding, Shaped: true}) {
		t.Fatalf("bounding ShapeNotify for a tracked window must return true")
	}
	if !cw.IsShaped() {
		t.Fatalf("dispatched bounding ShapeNotify must set IsShaped()")
	}

	if c.HandleEvent(shape.NotifyEvent{AffectedWindow: 5, Kind: shapeKindInput, Shaped: true}) {
		t.Fatalf("input-kind ShapeNotify must be ignored, not dispatched")
	}
}

func TestHandleEventDamageNotifyDispatchesByDamageIdMap(t *testing.T) {
	c := newTestCompositor()
	p := &windowPixmap{damage: 7}
	c.pixmaps[7] = p

	if !c.HandleEvent(damage.NotifyEvent{Damage: 7}) {
		t.Fatalf("DamageNotify for a tracked damage id must return true")
	}
	if !p.isDamaged() {
		t.Fatalf("dispatched DamageNotify must mark the pixmap damaged")
	}

	if c.HandleEvent(damage.NotifyEvent{Damage: 99}) {
		t.Fatalf("DamageNotify for an untracked damage id must return false")
	}
}

func TestPendingCreatedIsNotEmittedUntilHandleEventRuns(t *testing.T) {
	c := newTestCompositor()
	cwA := &ClientWindow{win: 10}
	cwB := &ClientWindow{win: 11}
	c.pendingCreated = []*ClientWindow{cwA, cwB}

	var created []*ClientWindow
	c.WindowCreated.Connect(func(cw *ClientWindow) { created = append(created, cw) })

	if len(created) != 0 {
		t.Fatalf("WindowCreated must not fire before HandleEvent runs, got %d", len(created))
	}

	// Any event drains the queue, even one that otherwise goes unhandled.
	c.HandleEvent(xproto.FocusInEvent{Event: 999})

	if len(created) != 2 || created[0] != cwA || created[1] != cwB {
		t.Fatalf("got %v, want [cwA cwB] emitted in order", created)
	}
	if len(c.pendingCreated) != 0 {
		t.Fatalf("pendingCreated must be drained after flushing")
	}

	// A second HandleEvent call must not re-emit.
	c.HandleEvent(xproto.FocusInEvent{Event: 999})
	if len(created) != 2 {
		t.Fatalf("pending windows must be announced exactly once, got %d emissions", len(created))
	}
}
