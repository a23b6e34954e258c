// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package main

import (
	"os"

	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"xcompositor/compositor"
	"xcompositor/internal/xgbx"
)

func main() {
	opt := parseCLIOpts()
	logger := newLogger(opt)
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger

	initializeConfigIfNot()
	conf := readConfig()
	_ = conf // reserved for the renderer this demo does not implement

	comp, err := compositor.New(compositor.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start compositor")
	}

	// A small invisible window stands in for the scene-graph renderer's
	// real surface; it exists only so registerCompositor has a window id
	// to hand to _NET_WM_CM_Sn, exactly as the original hands it a
	// QWindow it is about to render into.
	xu, err := xgbutil.NewConn()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open a second connection for the scratch owner window")
	}

	if opt.register {
		owner, err := newScratchWindow(xu)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create the selection-owner scratch window")
		}
		if err := comp.RegisterCompositor(owner); err != nil {
			logger.Fatal().Err(err).Msg("failed to register as the compositing manager")
		}
	} else {
		logger.Info().Msg("-register=false: mirroring the window tree without claiming _NET_WM_CM_Sn")
	}
	logger.Info().
		Uint32("overlay", uint32(comp.OverlayWindow())).
		Str("root_geometry", comp.RootGeometry().String()).
		Msg("compositor started")

	comp.WindowCreated.Connect(func(cw *compositor.ClientWindow) {
		name, _ := icccm.WmNameGet(xu, cw.Window())
		logger.Debug().
			Uint32("window", uint32(cw.Window())).
			Str("name", name).
			Str("wm_type", cw.WMType().String()).
			Msg("window tracked")
	})
	comp.ActiveWindowChanged.Connect(func(cw *compositor.ClientWindow) {
		if cw == nil {
			logger.Debug().Msg("no active window")
			return
		}
		logger.Debug().Uint32("window", uint32(cw.Window())).Msg("active window changed")
	})

	runEventLoop(comp)
}

func runEventLoop(comp *compositor.Compositor) {
	for {
		ev, err := comp.WaitForEvent()
		if err != nil {
			log.Error().Err(err).Msg("WaitForEvent failed, exiting")
			os.Exit(1)
		}
		log.Trace().Str("event", xgbx.EventName(ev)).Msg("dispatching")
		comp.HandleEvent(ev)
	}
}
