// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import (
	"fmt"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/rs/zerolog"
)

// WindowPixmap is component 2 of the spec (§4.2): the off-screen pixmap a
// redirected window paints into, plus the Damage object tracking whether
// that pixmap has unconsumed contents. It owns exactly one
// xcb_composite_name_window_pixmap pixmap id and one xcb_damage id for the
// lifetime of a single "redirected window instance" — a resize or a
// reparent always destroys one and names a fresh one (original_source/
// windowpixmap.cpp: the Qt type never rebuilds a pixmap in place).
type windowPixmap struct {
	xc  *xconn
	win xproto.Window

	pixmap xproto.Pixmap
	damage damage.Damage
	width  uint16
	height uint16
	depth  uint8

	// damaged is true from construction (a freshly named pixmap is assumed
	// to hold undisplayed contents) until consumeDamage is called, and
	// again every time a DamageNotify arrives.
	damaged bool

	// Destroyed fires exactly once, when release() runs, so that anything
	// indexing pixmaps by id (the Compositor's damage-id index) can drop
	// its entry. Mirrors windowpixmap.cpp's `destroyed(this)` signal.
	Destroyed Signal[*windowPixmap]

	log zerolog.Logger
}

// newWindowPixmap names win's backing pixmap and creates a Damage object
// reporting at NonEmpty granularity (one notification per paint, not one
// per damaged rectangle — §4.2). Per §7 "Pixmap-transient", the caller
// must hold a server grab across this call and the geometry read that
// follows, or a race with an unmap can make NameWindowPixmap return a
// pixmap id with no valid contents.
func newWindowPixmap(xc *xconn, win xproto.Window, width, height uint16, depth uint8) (*windowPixmap, error) {
	pid, err := xproto.NewPixmapId(xc.xc)
	if err != nil {
		return nil, fmt.Errorf("compositor: allocate pixmap id: %w", err)
	}
	if err := composite.NameWindowPixmapChecked(xc.xc, win, pid).Check(); err != nil {
		return nil, fmt.Errorf("%w: %v", errPixmapTransient, err)
	}

	geom, err := xproto.GetGeometry(xc.xc, xproto.Drawable(pid)).Reply()
	if err != nil || geom == nil {
		xproto.FreePixmap(xc.xc, pid)
		return nil, errPixmapTransient
	}

	did, err := damage.NewDamageId(xc.xc)
	if err != nil {
		xproto.FreePixmap(xc.xc, pid)
		return nil, fmt.Errorf("compositor: allocate damage id: %w", err)
	}
	damage.Create(xc.xc, did, xproto.Drawable(pid), damage.ReportLevelNonEmpty)

	return &windowPixmap{
		xc:      xc,
		win:     win,
		pixmap:  pid,
		damage:  did,
		width:   geom.Width,
		height:  geom.Height,
		depth:   geom.Depth,
		damaged: true,
		log:     xc.log.With().Uint32("window", uint32(win)).Logger(),
	}, nil
}

// size returns the pixmap's dimensions and depth, as read at construction
// time — callers needing the live window size should consult ClientWindow
// instead.
func (p *windowPixmap) size() (width, height uint16, depth uint8) {
	return p.width, p.height, p.depth
}

// isDamaged reports whether contents have arrived since the last
// consumeDamage call.
func (p *windowPixmap) isDamaged() bool {
	return p.damaged
}

// handleDamageNotify processes a DamageNotify event addressed to this
// pixmap's Damage object. Per original_source/windowpixmap.cpp, the first
// notification after a clearDamage is the only one that matters — the
// region reported is cumulative until cleared, so repeated notifications
// before the render thread consumes a frame are coalesced into the single
// `damaged` flag rather than queued.
func (p *windowPixmap) handleDamageNotify(ev damage.NotifyEvent) {
	if ev.Damage != p.damage {
		return
	}
	p.damaged = true
}

// consumeDamage subtracts the accumulated damage region (so the server
// stops reporting it) and clears the local flag. Called by the render
// thread immediately after it has read the pixmap into a texture.
func (p *windowPixmap) consumeDamage() {
	damage.Subtract(p.xc.xc, p.damage, xfixes.Region(0), xfixes.Region(0))
	p.damaged = false
}

// release destroys the pixmap and damage object and emits Destroyed. Safe
// to call at most once; ClientWindow is responsible for not calling it
// twice for the same windowPixmap.
func (p *windowPixmap) release() {
	damage.Destroy(p.xc.xc, p.damage)
	xproto.FreePixmap(p.xc.xc, p.pixmap)
	p.Destroyed.Emit(p)
}
