// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

type fakeTexture struct {
	id       uint32
	rebinds  int
	released bool
}

func (f *fakeTexture) TextureID() uint32 { return f.id }
func (f *fakeTexture) HasAlpha() bool    { return false }
func (f *fakeTexture) YInverted() bool   { return false }
func (f *fakeTexture) Rebind()           { f.rebinds++ }
func (f *fakeTexture) Release()          { f.released = true }

func newFakeTextureFactory(built *[]*fakeTexture) func(xproto.Pixmap, xproto.Visualid, int, int) Texture {
	return func(xproto.Pixmap, xproto.Visualid, int, int) Texture {
		tex := &fakeTexture{id: uint32(len(*built)) + 1}
		*built = append(*built, tex)
		return tex
	}
}

func TestNewPixmapItemWithNoPixmapYetBuildsNoTexture(t *testing.T) {
	cw := &ClientWindow{win: 1} // mapped == false, Pixmap() short-circuits to nil
	var built []*fakeTexture

	item := NewPixmapItem(cw, 0, newFakeTextureFactory(&built))
	if item.Current() != nil {
		t.Fatalf("Current() should be nil when the window has never been mapped")
	}
	if len(built) != 0 {
		t.Fatalf("no texture should be built before a pixmap exists")
	}
}

func TestSyncReadoptsOnPixmapIdentityChange(t *testing.T) {
	cw := &ClientWindow{win: 1}
	var built []*fakeTexture
	item := NewPixmapItem(cw, 0, newFakeTextureFactory(&built))

	var replaced []Texture
	item.TextureReplaced.Connect(func(tex Texture) { replaced = append(replaced, tex) })
	var repaints int
	item.RepaintNeeded.Connect(func(Void) { repaints++ })

	// Simulate an external rebuild (what ClientWindow.Pixmap() would do on
	// a live connection) by swapping the field directly, then let Sync
	// observe it via its per-frame win.Pixmap() call.
	first := &windowPixmap{width: 300, height: 300, damaged: false}
	cw.pixmap = first

	changed := item.Sync()
	if changed {
		t.Fatalf("Sync() must report no change for an undamaged pixmap")
	}
	if len(built) != 1 || item.Current() != built[0] {
		t.Fatalf("Sync() must adopt the new pixmap and build a texture for it")
	}
	if len(replaced) != 1 || repaints != 1 {
		t.Fatalf("adopting must emit TextureReplaced and RepaintNeeded exactly once")
	}

	// No identity change, still undamaged: Sync is a no-op.
	changed = item.Sync()
	if changed || len(built) != 1 {
		t.Fatalf("Sync() without a new pixmap or damage must not rebuild")
	}

	// Simulate a resize producing a fresh windowPixmap.
	second := &windowPixmap{width: 400, height: 400, damaged: false}
	cw.pixmap = second

	changed = item.Sync()
	if changed {
		t.Fatalf("Sync() must report no change for an undamaged pixmap")
	}
	if len(built) != 2 || item.Current() != built[1] {
		t.Fatalf("a new pixmap identity must rebuild the texture, got %d builds", len(built))
	}
	if !built[0].released {
		t.Fatalf("the old texture must be released when a new one is adopted")
	}
}

func TestReleaseTearsDownCurrentTexture(t *testing.T) {
	cw := &ClientWindow{win: 1}
	var built []*fakeTexture
	item := NewPixmapItem(cw, 0, newFakeTextureFactory(&built))
	cw.pixmap = &windowPixmap{width: 100, height: 100}
	item.Sync()

	item.Release()
	if item.Current() != nil {
		t.Fatalf("Release() must clear the current texture")
	}
	if !built[0].released {
		t.Fatalf("Release() must release the underlying texture")
	}
}
