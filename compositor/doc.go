// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

// Package compositor is the X11 compositing-manager core: it claims
// ownership of composition for a screen, redirects every top-level
// window's rendering into off-screen pixmaps, mirrors the window tree
// and its per-window state, tracks damage, and exposes each window's
// current backing pixmap as a GL texture via GLX_EXT_texture_from_pixmap.
//
// The package never draws. It prepares the inputs (textures, damage
// notifications, geometry) that a scene-graph renderer living outside
// this package will draw with.
package compositor
