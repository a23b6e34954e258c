// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

func TestAssignStackPositionsOnlyTouchesTrackedWindows(t *testing.T) {
	a := &ClientWindow{win: 1}
	b := &ClientWindow{win: 3}
	tracked := map[xproto.Window]*ClientWindow{1: a, 3: b}

	// Tree includes an untracked window (2, an override-redirect popup,
	// say) interleaved with the tracked ones.
	tree := []xproto.Window{1, 2, 3}

	assignStackPositions(tracked, tree)

	if a.ZIndex() != 0 {
		t.Errorf("a.ZIndex() = %d, want 0", a.ZIndex())
	}
	if a.above != 0 {
		t.Errorf("a.above = %d, want 0 (bottom of stack)", a.above)
	}
	if b.ZIndex() != 2 {
		t.Errorf("b.ZIndex() = %d, want 2", b.ZIndex())
	}
	if b.above != 2 {
		t.Errorf("b.above = %d, want 2 (its tree predecessor, even though untracked)", b.above)
	}
}

func TestAssignStackPositionsEmitsOnlyOnChange(t *testing.T) {
	a := &ClientWindow{win: 1}
	var changes []int
	a.ZIndexChanged.Connect(func(z int) { changes = append(changes, z) })

	// Window 1 sits at index 1 (above untracked window 2), so the first
	// restack moves it off its zero-value zIndex and the second is a no-op.
	tracked := map[xproto.Window]*ClientWindow{1: a}
	assignStackPositions(tracked, []xproto.Window{2, 1})
	assignStackPositions(tracked, []xproto.Window{2, 1})

	if len(changes) != 1 {
		t.Fatalf("ZIndexChanged fired %d times, want 1 (no-op restack shouldn't re-emit)", len(changes))
	}
}
