// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import "errors"

// Startup-fatal conditions (§7 of the spec). New returns these, wrapped or
// bare, so callers can test for them with errors.Is; the demo binary in
// cmd/xcompositor-demo logs them and exits.
var (
	// ErrCompositorAlreadyRunning is returned by New and by
	// Compositor.RegisterCompositor when _NET_WM_CM_Sn already has, or
	// races to, an owner other than us.
	ErrCompositorAlreadyRunning = errors.New("compositor: another compositing manager owns this screen")

	// ErrExtensionMissing is returned when Composite, Damage, XFixes, Shape
	// or RENDER is not present on the server, when Damage's version is
	// below 1.1, or when GLX_EXT_texture_from_pixmap is unavailable.
	ErrExtensionMissing = errors.New("compositor: required X extension is missing or too old")

	// ErrOverlayUnavailable is returned when the composite overlay window
	// cannot be obtained.
	ErrOverlayUnavailable = errors.New("compositor: composite overlay window unavailable")

	// ErrEWMHInit is returned when the EWMH atom table fails to intern.
	ErrEWMHInit = errors.New("compositor: EWMH atom initialization failed")
)

// errPixmapTransient marks the "pixmap geometry reply absent" race (§7,
// Pixmap-transient): NameWindowPixmap raced an unmap. Never returned to
// callers outside the package — ClientWindow.Pixmap swallows it and leaves
// the ClientWindow's cached pixmap unchanged, to be retried on the next
// map/size event.
var errPixmapTransient = errors.New("compositor: pixmap geometry unavailable (window raced unmap)")

// errWindowVanished marks the "attributes/geometry reply absent" race
// (§7, Window-transient) during ClientWindow construction.
var errWindowVanished = errors.New("compositor: window vanished before attributes could be read")
