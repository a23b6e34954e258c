// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import (
	"fmt"

	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
)

// channelLayout is the set of RENDER direct-format channel widths a
// visual paints with, derived the same way
// xcb_render_util_find_visual_format + a popcount of each channel mask
// derives them in original_source/glxtexturefrompixmap.cpp.
type channelLayout struct {
	redBits, greenBits, blueBits, alphaBits int
}

// visualChannelLayouts maps every RENDER-visible visual on the
// connection to its channel layout, queried once and cached on glxSession.
// glxtexture_cgo.go consults it so that chooseFBConfig's candidate
// filtering never needs to touch RENDER itself.
func visualChannelLayouts(xc *xconn) (map[xproto.Visualid]channelLayout, error) {
	pf, err := render.QueryPictFormats(xc.xc).Reply()
	if err != nil || pf == nil {
		return nil, fmt.Errorf("compositor: RENDER QueryPictFormats: %w", err)
	}

	formatByID := make(map[render.Pictformat]render.Pictforminfo, len(pf.Formats))
	for _, f := range pf.Formats {
		formatByID[f.Id] = f
	}

	layouts := make(map[xproto.Visualid]channelLayout)
	for _, screen := range pf.Screens {
		for _, depth := range screen.Depths {
			for _, visual := range depth.Visuals {
				info, ok := formatByID[visual.Format]
				if !ok {
					continue
				}
				layouts[visual.Visual] = channelLayout{
					redBits:   popcount(uint32(info.Direct.RedMask)),
					greenBits: popcount(uint32(info.Direct.GreenMask)),
					blueBits:  popcount(uint32(info.Direct.BlueMask)),
					alphaBits: popcount(uint32(info.Direct.AlphaMask)),
				}
			}
		}
	}
	return layouts, nil
}

// visualDepths maps every visual id advertised by the screen's allowed
// depths to that depth, mirroring the original's iteration over
// xcb_screen_allowed_depths_iterator / xcb_depth_visuals.
func visualDepths(xsi *xproto.ScreenInfo) map[xproto.Visualid]int {
	out := make(map[xproto.Visualid]int)
	for _, depth := range xsi.AllowedDepths {
		for _, visual := range depth.Visuals {
			out[visual.VisualId] = int(depth.Depth)
		}
	}
	return out
}
