// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// withServerGrab runs fn with the X server grabbed, so that no other
// client's requests interleave with the requests fn issues. A grab is
// taken only for (a) each window's attribute/geometry read in
// newClientWindow and (b) each pixmap rebuild in ClientWindow.Pixmap;
// New's startup sequence and its walk over the initial window tree are not
// covered by one enclosing grab. A grab is never held across a
// WaitForEvent or a GL call. Releasing the grab
// always flushes the connection, mirroring the original's XcbServerGrab
// RAII destructor (xcb_ungrab_server + xcb_flush).
func withServerGrab(xc *xgb.Conn, fn func()) {
	xproto.GrabServer(xc)
	defer func() {
		xproto.UngrabServer(xc)
		xc.Sync()
	}()
	fn()
}
