// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

// Package xgbx holds small X helpers for the demo command; the compositor
// package does not import it.
package xgbx

import "fmt"

// EventName renders ev's concrete type as a short, loggable name (e.g.
// "ConfigureNotifyEvent" becomes "ConfigureNotify"), for trace logging
// around an X event dispatch loop.
func EventName(ev interface{}) string {
	name := fmt.Sprintf("%T", ev)
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			name = name[i+1:]
			break
		}
	}
	const suffix = "Event"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		name = name[:len(name)-len(suffix)]
	}
	return name
}
