// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package main

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// newScratchWindow creates a 1x1 unmapped window purely to hand its id
// to Compositor.RegisterCompositor, the way the original implementation
// handed registerCompositor the id of the QWindow it was about to
// render composited output into.
func newScratchWindow(xu *xgbutil.XUtil) (xproto.Window, error) {
	win, err := xproto.NewWindowId(xu.Conn())
	if err != nil {
		return 0, err
	}

	screen := xu.Screen()
	err = xproto.CreateWindowChecked(
		xu.Conn(),
		screen.RootDepth,
		win,
		screen.Root,
		0, 0, 1, 1, 0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		0, nil,
	).Check()
	if err != nil {
		return 0, err
	}

	return win, nil
}
