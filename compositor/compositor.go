// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/rs/zerolog"
)

// The Shape extension tracks three independent per-window regions;
// these mirror XCB_SHAPE_SK_BOUNDING/CLIP/INPUT. Bounding and clip drive
// ClientWindow.IsShaped(); input is used only for the overlay window's
// own click-through region below.
const (
	shapeKindBounding = 0
	shapeKindClip     = 1
	shapeKindInput    = 2
)

// Compositor is component 4 of the spec (§4.3): the owner of the overlay
// window, the per-window ClientWindow/windowPixmap registries, and the
// protocol-thread event handling (HandleEvent, called from the caller's
// own event loop) that keeps both current. One Compositor
// claims _NET_WM_CM_Sn for exactly one screen.
type Compositor struct {
	xc   *xconn
	root xproto.Window

	overlay      xproto.Window
	rootGeometry image.Rectangle

	windows map[xproto.Window]*ClientWindow
	pixmaps map[damage.Damage]*windowPixmap

	active       *ClientWindow
	initFinished bool

	// pendingCreated holds ClientWindows discovered during New's initial
	// tree enumeration. WindowCreated is not emitted for them until the
	// first HandleEvent call, so a caller that connects a listener after
	// New returns (the only order possible, since it needs the returned
	// *Compositor) still observes them — see addChildWindow and
	// flushPendingCreated (§4.3 step 6).
	pendingCreated []*ClientWindow

	WindowCreated       Signal[*ClientWindow]
	RootGeometryChanged Signal[image.Rectangle]
	ActiveWindowChanged Signal[*ClientWindow]

	log zerolog.Logger
}

// New connects to the X server, claims the composite overlay window,
// redirects every existing and future sub-window of root, and mirrors
// the current window tree. It does not claim _NET_WM_CM_Sn — call
// RegisterCompositor once the caller has a window id ready to own the
// selection, per the original's two-phase startup (construct, then
// registerCompositor(window)).
func New(opts ...Option) (*Compositor, error) {
	o := newOptions(opts)

	xc, err := dial(o.logger)
	if err != nil {
		return nil, err
	}

	owner, err := xproto.GetSelectionOwner(xc.xc, xc.atoms.netWMCMSn).Reply()
	if err != nil {
		return nil, fmt.Errorf("%w: checking _NET_WM_CM_Sn: %v", ErrCompositorAlreadyRunning, err)
	}
	if owner != nil && owner.Owner != 0 {
		return nil, ErrCompositorAlreadyRunning
	}

	root := xc.xsi.Root

	if err := xc.damageQueryVersion(); err != nil {
		return nil, err
	}

	attrs, err := xproto.GetWindowAttributes(xc.xc, root).Reply()
	if err != nil || attrs == nil {
		return nil, fmt.Errorf("compositor: root window attributes: %w", err)
	}
	newMask := attrs.YourEventMask | xproto.EventMaskSubstructureNotify | xproto.EventMaskStructureNotify |
		xproto.EventMaskPropertyChange
	xproto.ChangeWindowAttributes(xc.xc, root, xproto.CwEventMask, []uint32{uint32(newMask)})

	overlayReply, err := composite.GetOverlayWindow(xc.xc, root).Reply()
	if err != nil || overlayReply == nil {
		return nil, fmt.Errorf("%w: %v", ErrOverlayUnavailable, err)
	}
	overlay := overlayReply.OverlayWin

	// An empty input-shape region on the overlay window makes it
	// transparent to pointer and keyboard events, so it never steals
	// input from the windows composited beneath it (§4.3).
	region, err := xfixes.NewRegionId(xc.xc)
	if err != nil {
		return nil, fmt.Errorf("compositor: allocate region id: %w", err)
	}
	xfixes.CreateRegion(xc.xc, region, nil)
	xfixes.SetWindowShapeRegion(xc.xc, overlay, shapeKindInput, 0, 0, region)
	xfixes.DestroyRegion(xc.xc, region)

	composite.RedirectSubwindows(xc.xc, root, composite.RedirectManual)

	rootGeom, err := xproto.GetGeometry(xc.xc, xproto.Drawable(root)).Reply()
	if err != nil || rootGeom == nil {
		return nil, fmt.Errorf("compositor: root window geometry: %w", err)
	}

	tree, err := xproto.QueryTree(xc.xc, root).Reply()
	if err != nil || tree == nil {
		return nil, fmt.Errorf("compositor: query window tree: %w", err)
	}

	c := &Compositor{
		xc:      xc,
		root:    root,
		overlay: overlay,
		rootGeometry: image.Rect(int(rootGeom.X), int(rootGeom.Y),
			int(rootGeom.X)+int(rootGeom.Width), int(rootGeom.Y)+int(rootGeom.Height)),
		windows: make(map[xproto.Window]*ClientWindow),
		pixmaps: make(map[damage.Damage]*windowPixmap),
		log:     o.logger,
	}

	for _, win := range tree.Children {
		c.addChildWindow(win)
	}
	c.restack()
	c.initFinished = true

	return c, nil
}

// OverlayWindow returns the composite overlay window id that a renderer
// should present its composited frame into.
func (c *Compositor) OverlayWindow() xproto.Window { return c.overlay }

// RootGeometry returns the screen's root window geometry as last seen.
func (c *Compositor) RootGeometry() image.Rectangle { return c.rootGeometry }

// ActiveWindow returns the ClientWindow believed to be _NET_ACTIVE_WINDOW,
// or nil if none is tracked or none is focused.
func (c *Compositor) ActiveWindow() *ClientWindow { return c.active }

// RegisterCompositor claims _NET_WM_CM_Sn for owner, then reads the
// selection back to detect a race against another compositing manager
// trying to claim it at the same time (§4.3 "Compositor registration").
func (c *Compositor) RegisterCompositor(owner xproto.Window) error {
	ts, err := c.xc.atoms.currentTimestamp(c.xc.xc, owner)
	if err != nil {
		return fmt.Errorf("compositor: obtain timestamp: %w", err)
	}

	xproto.SetSelectionOwner(c.xc.xc, owner, c.xc.atoms.netWMCMSn, ts)

	reply, err := xproto.GetSelectionOwner(c.xc.xc, c.xc.atoms.netWMCMSn).Reply()
	if err != nil || reply == nil {
		return fmt.Errorf("%w: %v", ErrCompositorAlreadyRunning, err)
	}
	if reply.Owner != owner {
		return ErrCompositorAlreadyRunning
	}
	return nil
}

// WaitForEvent blocks for the next event on the underlying X connection,
// for callers that want to run their own select/poll loop around it
// instead of a dedicated goroutine.
func (c *Compositor) WaitForEvent() (xgb.Event, error) {
	return c.xc.xc.WaitForEvent()
}

// HandleEvent demultiplexes one event off the X connection. It returns
// false for events the compositor does not care about, so callers
// running their own event loop (e.g. alongside a GL swap loop) can fall
// through to other handling. Mirrors nativeEventFilter's damage-first
// check followed by a switch on the generic response type.
func (c *Compositor) HandleEvent(ev interface{}) bool {
	c.flushPendingCreated()

	if dn, ok := ev.(damage.NotifyEvent); ok {
		p, ok := c.pixmaps[dn.Damage]
		if !ok {
			return false
		}
		p.handleDamageNotify(dn)
		return true
	}

	switch e := ev.(type) {
	case xproto.CreateNotifyEvent:
		if e.Parent != c.root {
			return false
		}
		c.addChildWindow(e.Window)
		return true

	case xproto.DestroyNotifyEvent:
		if e.Event != c.root {
			return false
		}
		c.removeChildWindow(e.Window)
		return true

	case xproto.ReparentNotifyEvent:
		if e.Event != c.root {
			return false
		}
		if e.Parent == c.root {
			c.addChildWindow(e.Window)
		} else {
			c.removeChildWindow(e.Window)
		}
		return c.dispatch(e.Window, func(cw *ClientWindow) { cw.HandleReparentNotify(e) })

	case xproto.ConfigureNotifyEvent:
		if e.Window == c.root {
			newGeom := image.Rect(0, 0, int(e.Width), int(e.Height))
			if c.rootGeometry != newGeom {
				c.rootGeometry = newGeom
				c.RootGeometryChanged.Emit(newGeom)
			}
			return true
		}
		if e.Window != e.Event {
			return false
		}
		return c.dispatch(e.Window, func(cw *ClientWindow) { cw.HandleConfigureNotify(e) })

	case xproto.MapNotifyEvent:
		if e.Event != c.root {
			return false
		}
		return c.dispatch(e.Window, func(cw *ClientWindow) { cw.HandleMapNotify(e) })

	case xproto.UnmapNotifyEvent:
		if e.Event != c.root {
			return false
		}
		return c.dispatch(e.Window, func(cw *ClientWindow) { cw.HandleUnmapNotify(e) })

	case xproto.GravityNotifyEvent:
		if e.Event != c.root {
			return false
		}
		return c.dispatch(e.Window, func(cw *ClientWindow) { cw.HandleGravityNotify(e) })

	case xproto.CirculateNotifyEvent:
		if e.Event != c.root {
			return false
		}
		c.restack()
		return true

	case xproto.PropertyNotifyEvent:
		if e.Atom == c.xc.atoms.netActiveWindow && e.Window == c.root {
			c.updateActiveWindow()
			return true
		}
		return c.dispatch(e.Window, func(cw *ClientWindow) { cw.HandlePropertyNotify(e) })

	case xproto.FocusInEvent:
		return c.dispatch(e.Event, func(cw *ClientWindow) { cw.HandleFocusIn(e) })

	case xproto.FocusOutEvent:
		return c.dispatch(e.Event, func(cw *ClientWindow) { cw.HandleFocusOut(e) })

	case shape.NotifyEvent:
		if e.Kind != shapeKindBounding && e.Kind != shapeKindClip {
			return false
		}
		return c.dispatch(e.AffectedWindow, func(cw *ClientWindow) { cw.HandleShapeNotify(e) })

	default:
		return false
	}
}

func (c *Compositor) dispatch(win xproto.Window, fn func(*ClientWindow)) bool {
	cw, ok := c.windows[win]
	if !ok {
		return false
	}
	fn(cw)
	return true
}

// addChildWindow begins tracking win as a ClientWindow, skipping
// InputOnly windows (which never have contents to composite) and
// windows already tracked. It wires the new window's pixmap and
// stacking-order signals into the Compositor's own bookkeeping, exactly
// as Compositor::addChildWindow connects pixmapChanged/stackingOrderChanged.
func (c *Compositor) addChildWindow(win xproto.Window) {
	if win == c.root || win == c.overlay {
		return
	}
	if _, ok := c.windows[win]; ok {
		return
	}

	cw := newClientWindow(c.xc, win)
	if !cw.Valid() || cw.windowClass == xproto.WindowClassInputOnly {
		return
	}

	c.windows[win] = cw
	cw.PixmapChanged.Connect(func(p *windowPixmap) { c.registerPixmap(p) })
	cw.StackingOrderChanged.Connect(func(Void) { c.restack() })
	c.restack()

	if c.initFinished {
		c.WindowCreated.Emit(cw)
	} else {
		c.pendingCreated = append(c.pendingCreated, cw)
	}
}

// flushPendingCreated announces every ClientWindow discovered during
// New's initial tree enumeration, exactly once, the first time the
// caller pumps an event through HandleEvent — by which point any
// WindowCreated listener it meant to attach is already connected.
func (c *Compositor) flushPendingCreated() {
	if len(c.pendingCreated) == 0 {
		return
	}
	pending := c.pendingCreated
	c.pendingCreated = nil
	for _, cw := range pending {
		c.WindowCreated.Emit(cw)
	}
}

// removeChildWindow stops tracking win, invalidating its ClientWindow so
// any pixmap it still owns is released (its Destroyed listeners, such as
// the damage-id index, are notified) and Invalidated is emitted.
func (c *Compositor) removeChildWindow(win xproto.Window) {
	cw, ok := c.windows[win]
	if !ok {
		return
	}
	cw.invalidate()
	delete(c.windows, win)
	if c.active == cw {
		c.active = nil
		c.ActiveWindowChanged.Emit(nil)
	}
}

func (c *Compositor) registerPixmap(p *windowPixmap) {
	c.pixmaps[p.damage] = p
	p.Destroyed.Connect(func(d *windowPixmap) { delete(c.pixmaps, d.damage) })
}

// restack re-queries the window tree and reassigns every tracked
// window's zIndex and stacking sibling to match (§4.3). The query/assign
// split lives in assignStackPositions so the ranking logic is testable
// without a connection.
func (c *Compositor) restack() {
	tree, err := xproto.QueryTree(c.xc.xc, c.root).Reply()
	if err != nil || tree == nil {
		c.log.Debug().Err(err).Msg("restack: query tree failed")
		return
	}
	assignStackPositions(c.windows, tree.Children)
}

// updateActiveWindow re-reads _NET_ACTIVE_WINDOW off the root window and
// updates which tracked ClientWindow, if any, is active. This is the
// EWMH-level "active window" concept, distinct from the X server's own
// input focus that ClientWindow tracks directly via FocusIn/FocusOut.
// Supplements the original, which never tracked either (§B.4).
func (c *Compositor) updateActiveWindow() {
	reply, err := xproto.GetProperty(c.xc.xc, false, c.root, c.xc.atoms.netActiveWindow, xproto.AtomWindow, 0, 1).Reply()
	if err != nil {
		return
	}

	var newActiveWin xproto.Window
	if reply != nil && reply.ValueLen > 0 && len(reply.Value) >= 4 {
		newActiveWin = xproto.Window(
			uint32(reply.Value[0]) | uint32(reply.Value[1])<<8 | uint32(reply.Value[2])<<16 | uint32(reply.Value[3])<<24,
		)
	}

	var newActive *ClientWindow
	if newActiveWin != 0 {
		newActive = c.windows[newActiveWin]
	}
	if newActive == c.active {
		return
	}

	if c.active != nil {
		c.active.setActive(false)
	}
	c.active = newActive
	if c.active != nil {
		c.active.setActive(true)
	}
	c.ActiveWindowChanged.Emit(c.active)
}
