// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import (
	"github.com/BurntSushi/xgb/xproto"
)

// Texture is the subset of glxTexture a PixmapItem depends on, narrowed
// to an interface so non-Linux builds (which lack glxtexture_cgo.go) and
// tests can supply a fake.
type Texture interface {
	TextureID() uint32
	HasAlpha() bool
	YInverted() bool
	Rebind()
	Release()
}

// PixmapItem is component 6 (§4.5): the glue between a ClientWindow and a
// scene-graph node. It tracks which windowPixmap currently backs its
// texture, rebuilds the texture whenever the pixmap is replaced, and
// emits RepaintNeeded (a signal a renderer can subscribe to without
// knowing about xgb types) each time it adopts a new pixmap. Damage and
// geometry changes do not emit RepaintNeeded; damage is reported only
// through Sync's return value.
type PixmapItem struct {
	win *ClientWindow

	newTexture func(pixmap xproto.Pixmap, visual xproto.Visualid, width, height int) Texture

	visual  xproto.Visualid
	texture Texture
	pixmap  *windowPixmap

	RepaintNeeded   Signal[Void]
	TextureReplaced Signal[Texture]
}

// NewPixmapItem wires item to win: every PixmapChanged emission rebuilds
// the texture, and the underlying windowPixmap's damage is polled by
// Sync (the render thread calls Sync once per frame rather than
// reacting to every DamageNotify, matching the "render thread reads
// published-immutable state" model of §5).
func NewPixmapItem(win *ClientWindow, visual xproto.Visualid, newTexture func(xproto.Pixmap, xproto.Visualid, int, int) Texture) *PixmapItem {
	item := &PixmapItem{win: win, visual: visual, newTexture: newTexture}
	win.PixmapChanged.Connect(func(p *windowPixmap) { item.adopt(p) })
	if p := win.Pixmap(); p != nil {
		item.adopt(p)
	}
	return item
}

func (item *PixmapItem) adopt(p *windowPixmap) {
	if item.texture != nil {
		item.texture.Release()
		item.texture = nil
	}
	item.pixmap = p
	if p == nil {
		return
	}
	w, h, _ := p.size()
	item.texture = item.newTexture(p.pixmap, item.visual, int(w), int(h))
	item.TextureReplaced.Emit(item.texture)
	item.RepaintNeeded.Emit(Void{})
}

// Sync is the per-frame entry point a renderer calls before drawing this
// window: it re-invokes ClientWindow.Pixmap() (mirroring
// windowpixmapitem.cpp's updatePaintNode, which calls
// clientWindow_->pixmap() on every paint) so a resize or remap that set
// pixmapRealloc since the last frame actually gets rebuilt, then rebinds
// the texture if the resulting pixmap carries undelivered damage. It
// reports whether the frame just drawn changed at all.
func (item *PixmapItem) Sync() bool {
	p := item.win.Pixmap()
	if p != item.pixmap {
		item.adopt(p)
	}
	if item.pixmap == nil || item.texture == nil {
		return false
	}
	if !item.pixmap.isDamaged() {
		return false
	}
	item.texture.Rebind()
	item.pixmap.consumeDamage()
	return true
}

// Current returns the currently bound texture, or nil if the window has
// no mapped pixmap yet.
func (item *PixmapItem) Current() Texture { return item.texture }

// Release tears down the current texture. Called when the owning scene
// graph node is destroyed.
func (item *PixmapItem) Release() {
	if item.texture != nil {
		item.texture.Release()
		item.texture = nil
	}
}
