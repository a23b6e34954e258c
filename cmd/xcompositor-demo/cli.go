// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
)

// cliOpts mirrors the flag set a real window manager's embedded
// compositor would expose for debugging: verbosity and whether to
// register as the compositing manager at all (useful for dry-running
// window-tree mirroring without taking over compositing).
type cliOpts struct {
	verbose  bool
	register bool
}

func parseCLIOpts() cliOpts {
	var opt cliOpts
	flag.BoolVar(&opt.verbose, "v", false, "verbose output (print structured logs to stderr)")
	flag.BoolVar(&opt.register, "register", true, "claim _NET_WM_CM_Sn for this screen")
	flag.Parse()
	return opt
}

// newLogger builds the zerolog.Logger passed to compositor.WithLogger,
// writing to stderr at debug level when -v is given and staying silent
// otherwise.
func newLogger(opt cliOpts) zerolog.Logger {
	if !opt.verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().
		Level(zerolog.DebugLevel)
}
