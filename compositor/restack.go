// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import "github.com/BurntSushi/xgb/xproto"

// assignStackPositions maps the bottom-to-top window order XQueryTree
// returns onto the subset of it this Compositor tracks, assigning each a
// zIndex equal to its position in the full tree (not its position among
// tracked windows) and recording its immediate tree-sibling below it.
// Split out from restack so the ranking logic can be exercised without a
// live X connection (original_source/compositor.cpp's restack() couples
// the two; see SPEC_FULL.md §B.1).
func assignStackPositions(tracked map[xproto.Window]*ClientWindow, tree []xproto.Window) {
	for i, win := range tree {
		cw, ok := tracked[win]
		if !ok {
			continue
		}
		cw.setZIndex(i)
		if i > 0 {
			cw.setAbove(tree[i-1])
		} else {
			cw.setAbove(0)
		}
	}
}
