// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import (
	"image"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/rs/zerolog"
)

// ClientWindow is component 3 of the spec (§4.1): a mirror of one
// top-level X window's state — geometry, map state, stacking position,
// override-redirect, WM_TRANSIENT_FOR, _NET_WM_WINDOW_TYPE, input focus
// and bounding/clip shape — kept current by feeding it the structure
// events the Compositor demultiplexes to it. It never issues a request
// the original ClientWindow didn't, except where SPEC_FULL.md §B.4 calls
// out an added field (focus, shape).
type ClientWindow struct {
	xc  *xconn
	win xproto.Window

	valid            bool
	windowClass      uint8
	geometry         image.Rectangle
	mapped           bool
	overrideRedirect bool
	transientFor     xproto.Window
	wmType           xproto.Atom

	// active mirrors whether win is the current _NET_ACTIVE_WINDOW, a
	// Compositor-level (EWMH) concept pushed down by
	// Compositor.updateActiveWindow — distinct from hasInputFocus below,
	// which mirrors the X server's own input focus via FocusIn/FocusOut.
	active bool

	// hasInputFocus mirrors whether win holds the X input focus, tracked
	// via FocusIn/FocusOut (NotifyDetailInferior ignored). Supplements the
	// original, which never tracked focus at all (§B.4).
	hasInputFocus bool

	// boundingShaped and clipShaped mirror the Shape extension's bounding
	// and clip regions: true once either departs from the window's
	// rectangular default. Read at construction via QueryExtents and kept
	// current by ShapeNotify. Supplements the original, which never
	// tracked Shape at all (§B.4).
	boundingShaped bool
	clipShaped     bool

	above  xproto.Window
	zIndex int

	pixmap        *windowPixmap
	pixmapRealloc bool

	Invalidated             Signal[Void]
	GeometryChanged         Signal[image.Rectangle]
	MapStateChanged         Signal[bool]
	ZIndexChanged           Signal[int]
	OverrideRedirectChanged Signal[bool]
	TransientChanged        Signal[bool]
	TransientForChanged     Signal[Void]
	WMTypeChanged           Signal[WMType]
	ActiveChanged           Signal[bool]
	InputFocusChanged       Signal[bool]
	ShapeChanged            Signal[Void]
	PixmapChanged           Signal[*windowPixmap]
	StackingOrderChanged    Signal[Void]

	log zerolog.Logger
}

// newClientWindow mirrors ClientWindow's C++ constructor: it grabs the
// server, reads attributes/geometry/WM_TRANSIENT_FOR/_NET_WM_WINDOW_TYPE
// together, and merges StructureNotify|PropertyChange|FocusChange into
// win's event mask (and selects Shape notifications) so future changes
// reach us as events instead of requiring polling.
// Per §7 "Window-transient", a missing attributes or geometry reply means
// win raced its own destruction; the returned ClientWindow has valid ==
// false and the caller discards it instead of treating it as an error.
func newClientWindow(xc *xconn, win xproto.Window) *ClientWindow {
	cw := &ClientWindow{
		xc:            xc,
		win:           win,
		windowClass:   xproto.WindowClassCopyFromParent,
		pixmapRealloc: true,
		log:           xc.log.With().Uint32("window", uint32(win)).Logger(),
	}

	withServerGrab(xc.xc, func() {
		// icccm.WmTransientForGet round-trips synchronously (xgbutil/icccm
		// has no split request/reply API), so unlike the original's
		// cookie-based fan-out it cannot be issued concurrently with the
		// attributes/geometry requests below; it still runs under the same
		// grab, so the reads remain atomic with respect to other clients.
		attrCookie := xproto.GetWindowAttributes(xc.xc, win)
		geomCookie := xproto.GetGeometry(xc.xc, xproto.Drawable(win))
		extentsCookie := shape.QueryExtents(xc.xc, win)

		attrs, err := attrCookie.Reply()
		if err != nil || attrs == nil {
			cw.log.Debug().Err(errWindowVanished).Send()
			return
		}

		newMask := attrs.YourEventMask | xproto.EventMaskStructureNotify |
			xproto.EventMaskPropertyChange | xproto.EventMaskFocusChange
		xproto.ChangeWindowAttributes(xc.xc, win, xproto.CwEventMask, []uint32{uint32(newMask)})
		shape.SelectInput(xc.xc, win, true)

		geom, err := geomCookie.Reply()
		if err != nil || geom == nil {
			cw.log.Debug().Err(errWindowVanished).Send()
			return
		}

		transientFor, _ := icccm.WmTransientForGet(xc.xu, win)
		wmType, _ := xc.firstWindowTypeAtom(win)

		var boundingShaped, clipShaped bool
		if extents, err := extentsCookie.Reply(); err == nil && extents != nil {
			boundingShaped = extents.BoundingShaped
			clipShaped = extents.ClipShaped
		}

		cw.valid = true
		cw.windowClass = attrs.Class
		cw.geometry = image.Rect(int(geom.X), int(geom.Y), int(geom.X)+int(geom.Width), int(geom.Y)+int(geom.Height))
		cw.mapped = attrs.MapState == xproto.MapStateViewable
		cw.overrideRedirect = attrs.OverrideRedirect
		cw.transientFor = transientFor
		cw.wmType = wmType
		cw.boundingShaped = boundingShaped
		cw.clipShaped = clipShaped
	})

	return cw
}

// Window returns the X window id this ClientWindow mirrors.
func (cw *ClientWindow) Window() xproto.Window { return cw.win }

// Valid reports whether construction succeeded and the window has not
// since been invalidated (removed from the tree or destroyed). A window
// that failed construction carries no other meaningful state; one that was
// invalidated keeps its last known values.
func (cw *ClientWindow) Valid() bool { return cw.valid }

// Geometry returns the window's last known position and size.
func (cw *ClientWindow) Geometry() image.Rectangle { return cw.geometry }

// Mapped reports whether the window is currently viewable.
func (cw *ClientWindow) Mapped() bool { return cw.mapped }

// ZIndex returns the window's position in the Compositor's current
// stacking order, lowest first. Set by Compositor.restack.
func (cw *ClientWindow) ZIndex() int { return cw.zIndex }

func (cw *ClientWindow) setZIndex(i int) {
	if i != cw.zIndex {
		cw.zIndex = i
		cw.ZIndexChanged.Emit(i)
	}
}

// OverrideRedirect reports the window's override-redirect attribute.
func (cw *ClientWindow) OverrideRedirect() bool { return cw.overrideRedirect }

// TransientFor returns the window named by WM_TRANSIENT_FOR, or 0.
func (cw *ClientWindow) TransientFor() xproto.Window { return cw.transientFor }

// Transient reports whether TransientFor is non-zero.
func (cw *ClientWindow) Transient() bool { return cw.transientFor != 0 }

// WMType narrows the window's first _NET_WM_WINDOW_TYPE atom.
func (cw *ClientWindow) WMType() WMType { return cw.xc.atoms.wmTypeFromAtom(cw.wmType) }

// Active reports whether this window is the current _NET_ACTIVE_WINDOW.
func (cw *ClientWindow) Active() bool { return cw.active }

// HasInputFocus reports whether this window currently holds the X input
// focus, per FocusIn/FocusOut (ignoring focus changes into a child).
func (cw *ClientWindow) HasInputFocus() bool { return cw.hasInputFocus }

// IsShaped reports whether the window's bounding or clip region departs
// from its default rectangle (§8 invariant: is_shaped == bounding ∨ clip).
func (cw *ClientWindow) IsShaped() bool { return cw.boundingShaped || cw.clipShaped }

// setAbove records the sibling directly below this window in the stack,
// used only to detect stacking-order changes on ConfigureNotify.
func (cw *ClientWindow) setAbove(above xproto.Window) { cw.above = above }

// Pixmap returns the window's current backing pixmap, rebuilding it
// under a server grab if the window has been mapped or resized since the
// last call. Mirrors ClientWindow::pixmap()'s lazy-rebuild-on-read
// design: the render thread calls this once per frame, and a rebuild
// only actually happens the first time after a size-affecting event.
func (cw *ClientWindow) Pixmap() *windowPixmap {
	if !cw.pixmapRealloc || !cw.mapped {
		return cw.pixmap
	}
	cw.pixmapRealloc = false

	var fresh *windowPixmap
	withServerGrab(cw.xc.xc, func() {
		w := uint16(cw.geometry.Dx())
		h := uint16(cw.geometry.Dy())
		p, err := newWindowPixmap(cw.xc, cw.win, w, h, 0)
		if err != nil {
			cw.log.Debug().Err(err).Msg("pixmap rebuild failed, keeping previous pixmap")
			return
		}
		fresh = p
	})
	if fresh != nil {
		if cw.pixmap != nil {
			cw.pixmap.release()
		}
		cw.pixmap = fresh
		cw.PixmapChanged.Emit(cw.pixmap)
	}
	return cw.pixmap
}

func (cw *ClientWindow) invalidate() {
	if cw.valid {
		cw.valid = false
		if cw.pixmap != nil {
			cw.pixmap.release()
			cw.pixmap = nil
		}
		cw.Invalidated.Emit(Void{})
	}
}

func (cw *ClientWindow) setGeometry(g image.Rectangle) {
	if cw.geometry != g {
		if cw.geometry.Dx() != g.Dx() || cw.geometry.Dy() != g.Dy() {
			cw.pixmapRealloc = true
		}
		cw.geometry = g
		cw.GeometryChanged.Emit(g)
	}
}

func (cw *ClientWindow) setMapped(m bool) {
	if cw.mapped != m {
		cw.mapped = m
		cw.MapStateChanged.Emit(m)
	}
}

func (cw *ClientWindow) setOverrideRedirect(o bool) {
	if cw.overrideRedirect != o {
		cw.overrideRedirect = o
		cw.OverrideRedirectChanged.Emit(o)
	}
}

func (cw *ClientWindow) setActive(a bool) {
	if cw.active != a {
		cw.active = a
		cw.ActiveChanged.Emit(a)
	}
}

func (cw *ClientWindow) setInputFocus(f bool) {
	if cw.hasInputFocus != f {
		cw.hasInputFocus = f
		cw.InputFocusChanged.Emit(f)
	}
}

func (cw *ClientWindow) setShapeState(bounding, clip bool) {
	before := cw.IsShaped()
	cw.boundingShaped = bounding
	cw.clipShaped = clip
	if before != cw.IsShaped() {
		cw.ShapeChanged.Emit(Void{})
	}
}

// HandleConfigureNotify updates geometry, override-redirect and detects a
// stacking-order change, per original_source/clientwindow.cpp's
// xcbEvent(configure_notify).
func (cw *ClientWindow) HandleConfigureNotify(e xproto.ConfigureNotifyEvent) {
	cw.setGeometry(image.Rect(int(e.X), int(e.Y), int(e.X)+int(e.Width), int(e.Y)+int(e.Height)))
	cw.setOverrideRedirect(e.OverrideRedirect)
	if e.AboveSibling != cw.above {
		cw.StackingOrderChanged.Emit(Void{})
	}
}

// HandleMapNotify forces a pixmap rebuild on the next Pixmap() call and
// marks the window mapped.
func (cw *ClientWindow) HandleMapNotify(e xproto.MapNotifyEvent) {
	cw.pixmapRealloc = true
	cw.setOverrideRedirect(e.OverrideRedirect)
	cw.setMapped(true)
}

// HandleUnmapNotify marks the window unmapped. The pixmap, if any, is
// left in place until the next map — many clients unmap/remap without
// resizing, and needlessly tearing down the pixmap would force every
// redirected window to repaint fully on every minimize/restore.
func (cw *ClientWindow) HandleUnmapNotify(e xproto.UnmapNotifyEvent) {
	cw.setMapped(false)
}

// HandleReparentNotify updates position while keeping the last known
// size, mirroring the original (reparenting never changes size).
func (cw *ClientWindow) HandleReparentNotify(e xproto.ReparentNotifyEvent) {
	cw.setGeometry(image.Rect(int(e.X), int(e.Y), int(e.X)+cw.geometry.Dx(), int(e.Y)+cw.geometry.Dy()))
	cw.setOverrideRedirect(e.OverrideRedirect)
}

// HandleGravityNotify updates position only; win-gravity repositioning
// never changes size.
func (cw *ClientWindow) HandleGravityNotify(e xproto.GravityNotifyEvent) {
	cw.setGeometry(image.Rect(int(e.X), int(e.Y), int(e.X)+cw.geometry.Dx(), int(e.Y)+cw.geometry.Dy()))
}

// HandleCirculateNotify signals a stacking-order change only; the new
// order is read back by Compositor.restack.
func (cw *ClientWindow) HandleCirculateNotify(e xproto.CirculateNotifyEvent) {
	cw.StackingOrderChanged.Emit(Void{})
}

// HandleFocusIn updates input focus, ignoring transitions whose detail is
// Inferior (focus moved to/from a child of win, not win itself), per the
// spec's event table and the ICCCM convention for virtual-descendant
// focus events.
func (cw *ClientWindow) HandleFocusIn(e xproto.FocusInEvent) {
	if e.Detail == xproto.NotifyDetailInferior {
		return
	}
	cw.setInputFocus(true)
}

// HandleFocusOut mirrors HandleFocusIn.
func (cw *ClientWindow) HandleFocusOut(e xproto.FocusOutEvent) {
	if e.Detail == xproto.NotifyDetailInferior {
		return
	}
	cw.setInputFocus(false)
}

// HandleShapeNotify updates the bounding or clip shape flag named by
// e.Kind and emits ShapeChanged if IsShaped()'s value actually flipped.
// Input-kind notifications (shapeKindInput) are not meaningful here —
// that kind is used only for the overlay window's own click-through
// region — and are ignored.
func (cw *ClientWindow) HandleShapeNotify(e shape.NotifyEvent) {
	switch e.Kind {
	case shapeKindBounding:
		cw.setShapeState(e.Shaped, cw.clipShaped)
	case shapeKindClip:
		cw.setShapeState(cw.boundingShaped, e.Shaped)
	}
}

// updateTransientFor re-reads WM_TRANSIENT_FOR and emits TransientForChanged
// and, if transience flipped, TransientChanged.
func (cw *ClientWindow) updateTransientFor() {
	oldTransient := cw.Transient()
	oldTransientFor := cw.transientFor

	transientFor, _ := icccm.WmTransientForGet(cw.xc.xu, cw.win)
	cw.transientFor = transientFor

	if oldTransientFor != cw.transientFor {
		cw.TransientForChanged.Emit(Void{})
	}
	if oldTransient != cw.Transient() {
		cw.TransientChanged.Emit(cw.Transient())
	}
}

// updateWMType re-reads _NET_WM_WINDOW_TYPE and emits WMTypeChanged if it
// changed. A failed read (property removed mid-race) leaves the previous
// type in place, mirroring the original's early return on reply failure.
func (cw *ClientWindow) updateWMType() {
	newType, err := cw.xc.firstWindowTypeAtom(cw.win)
	if err != nil {
		return
	}
	if newType != cw.wmType {
		cw.wmType = newType
		cw.WMTypeChanged.Emit(cw.WMType())
	}
}

// HandlePropertyNotify dispatches on the changed atom, updating
// WM_TRANSIENT_FOR or _NET_WM_WINDOW_TYPE tracking as appropriate.
func (cw *ClientWindow) HandlePropertyNotify(e xproto.PropertyNotifyEvent) {
	switch e.Atom {
	case xproto.AtomWmTransientFor:
		cw.updateTransientFor()
	case cw.xc.atoms.netWMWindowType:
		cw.updateWMType()
	}
}
