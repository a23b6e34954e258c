// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

//go:build linux

package compositor

/*
#cgo LDFLAGS: -lGL -lX11

#include <stdlib.h>
#include <X11/Xlib.h>
#include <GL/glx.h>
#include <GL/glxext.h>

static int countFBConfigs(GLXFBConfig *configs, int n) { return n; }

static GLXFBConfig getFBConfig(GLXFBConfig *configs, int i) { return configs[i]; }

typedef void (*glXBindTexImageEXTProc)(Display *, GLXDrawable, int, const int *);
typedef void (*glXReleaseTexImageEXTProc)(Display *, GLXDrawable, int);

static void callBindTexImageEXT(glXBindTexImageEXTProc fn, Display *dpy, GLXDrawable d, int buffer) {
	fn(dpy, d, buffer, NULL);
}

static void callReleaseTexImageEXT(glXReleaseTexImageEXTProc fn, Display *dpy, GLXDrawable d, int buffer) {
	fn(dpy, d, buffer);
}
*/
import "C"

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/rs/zerolog"
)

// glxSession is component 5's connection to libGLX: a second, Xlib-based
// connection opened purely so glXChooseFBConfig/glXCreatePixmap/
// glXBindTexImageEXT have a Display* to call through, plus the two
// GLX_EXT_texture_from_pixmap entry points resolved once at startup.
// Mirrors GLXInfo's role in original_source/glxtexturefrompixmap.cpp;
// xgb's own connection is never reused for GLX because xgb does not
// expose (and Xlib does not accept) a foreign Display built from a raw
// socket.
type glxSession struct {
	dpy    *C.Display
	screen C.int

	bindTexImage    C.glXBindTexImageEXTProc
	releaseTexImage C.glXReleaseTexImageEXTProc

	mu            sync.Mutex
	visuals       map[xproto.Visualid]fbConfigChoice
	cachedConfigs map[uintptr]C.GLXFBConfig
	layouts       map[xproto.Visualid]channelLayout
	depths        map[xproto.Visualid]int

	log zerolog.Logger
}

// newGLXSession opens displayName (empty means $DISPLAY) on a dedicated
// Xlib connection and resolves GLX_EXT_texture_from_pixmap. Returns
// ErrExtensionMissing if the server or libGLX lacks the extension.
func newGLXSession(xc *xconn, displayName string) (*glxSession, error) {
	var cName *C.char
	if displayName != "" {
		cName = C.CString(displayName)
		defer C.free(unsafe.Pointer(cName))
	}

	dpy := C.XOpenDisplay(cName)
	if dpy == nil {
		return nil, fmt.Errorf("compositor: XOpenDisplay failed for GLX session")
	}
	screen := C.XDefaultScreen(dpy)

	extensions := C.GoString(C.glXQueryExtensionsString(dpy, screen))
	if !strings.Contains(extensions, "GLX_EXT_texture_from_pixmap") {
		C.XCloseDisplay(dpy)
		return nil, fmt.Errorf("%w: GLX_EXT_texture_from_pixmap not advertised", ErrExtensionMissing)
	}

	bindName := C.CString("glXBindTexImageEXT")
	defer C.free(unsafe.Pointer(bindName))
	releaseName := C.CString("glXReleaseTexImageEXT")
	defer C.free(unsafe.Pointer(releaseName))

	bind := C.glXGetProcAddress((*C.GLubyte)(unsafe.Pointer(bindName)))
	release := C.glXGetProcAddress((*C.GLubyte)(unsafe.Pointer(releaseName)))
	if bind == nil || release == nil {
		C.XCloseDisplay(dpy)
		return nil, fmt.Errorf("%w: glXBindTexImageEXT/glXReleaseTexImageEXT unavailable", ErrExtensionMissing)
	}

	layouts, err := visualChannelLayouts(xc)
	if err != nil {
		C.XCloseDisplay(dpy)
		return nil, err
	}

	return &glxSession{
		dpy:             dpy,
		screen:          screen,
		bindTexImage:    (C.glXBindTexImageEXTProc)(bind),
		releaseTexImage: (C.glXReleaseTexImageEXTProc)(release),
		visuals:         make(map[xproto.Visualid]fbConfigChoice),
		layouts:         layouts,
		depths:          visualDepths(xc.xsi),
		log:             xc.log,
	}, nil
}

func (s *glxSession) close() {
	C.XCloseDisplay(s.dpy)
}

// NewTextureFactory returns the constructor PixmapItem needs to bind
// fresh textures through this session.
func (s *glxSession) NewTextureFactory() func(xproto.Pixmap, xproto.Visualid, int, int) Texture {
	return func(pixmap xproto.Pixmap, visual xproto.Visualid, width, height int) Texture {
		return newGLXTexture(s, pixmap, visual, width, height)
	}
}

// configFor returns (and caches) the best FBConfig for binding pixmaps
// of the given visual as textures, mirroring GLXInfo::configFor's
// memoization.
func (s *glxSession) configFor(visual xproto.Visualid) (fbConfigChoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if choice, ok := s.visuals[visual]; ok {
		return choice, choice.candidate.handle != 0
	}

	choice, ok := s.chooseFBConfigForVisual(visual)
	s.visuals[visual] = choice
	return choice, ok
}

func (s *glxSession) chooseFBConfigForVisual(visual xproto.Visualid) (fbConfigChoice, bool) {
	layout, ok := s.layouts[visual]
	if !ok {
		s.log.Warn().Uint32("visual", uint32(visual)).Msg("no RENDER pictformat for visual")
		return fbConfigChoice{}, false
	}

	attrs := []C.int{
		C.GLX_RENDER_TYPE, C.GLX_RGBA_BIT,
		C.GLX_DRAWABLE_TYPE, C.GLX_WINDOW_BIT | C.GLX_PIXMAP_BIT,
		C.GLX_X_VISUAL_TYPE, C.GLX_TRUE_COLOR,
		C.GLX_X_RENDERABLE, C.True,
		C.GLX_CONFIG_CAVEAT, C.GLX_DONT_CARE,
		C.GLX_BUFFER_SIZE, C.int(layout.redBits + layout.greenBits + layout.blueBits + layout.alphaBits),
		C.GLX_RED_SIZE, C.int(layout.redBits),
		C.GLX_GREEN_SIZE, C.int(layout.greenBits),
		C.GLX_BLUE_SIZE, C.int(layout.blueBits),
		C.GLX_ALPHA_SIZE, C.int(layout.alphaBits),
		C.GLX_STENCIL_SIZE, 0,
		C.GLX_DEPTH_SIZE, 0,
		0,
	}

	var n C.int
	configs := C.glXChooseFBConfig(s.dpy, s.screen, &attrs[0], &n)
	if configs == nil || n <= 0 {
		s.log.Warn().Uint32("visual", uint32(visual)).Msg("glXChooseFBConfig returned no configs")
		return fbConfigChoice{}, false
	}
	defer C.XFree(unsafe.Pointer(configs))

	candidates := make([]fbConfigCandidate, 0, int(n))
	handles := make(map[uintptr]C.GLXFBConfig, int(n))

	for i := 0; i < int(n); i++ {
		cfg := C.getFBConfig(configs, C.int(i))

		var visualID, bindRGB, bindRGBA, targets, yInverted, depthSize, stencilSize C.int
		var redSize, greenSize, blueSize C.int
		C.glXGetFBConfigAttrib(s.dpy, cfg, C.GLX_VISUAL_ID, &visualID)
		if s.depths[xproto.Visualid(visualID)] != s.depths[visual] {
			continue
		}

		C.glXGetFBConfigAttrib(s.dpy, cfg, C.GLX_RED_SIZE, &redSize)
		C.glXGetFBConfigAttrib(s.dpy, cfg, C.GLX_GREEN_SIZE, &greenSize)
		C.glXGetFBConfigAttrib(s.dpy, cfg, C.GLX_BLUE_SIZE, &blueSize)
		C.glXGetFBConfigAttrib(s.dpy, cfg, C.GLX_BIND_TO_TEXTURE_RGB_EXT, &bindRGB)
		C.glXGetFBConfigAttrib(s.dpy, cfg, C.GLX_BIND_TO_TEXTURE_RGBA_EXT, &bindRGBA)
		C.glXGetFBConfigAttrib(s.dpy, cfg, C.GLX_BIND_TO_TEXTURE_TARGETS_EXT, &targets)
		C.glXGetFBConfigAttrib(s.dpy, cfg, C.GLX_Y_INVERTED_EXT, &yInverted)
		C.glXGetFBConfigAttrib(s.dpy, cfg, C.GLX_DEPTH_SIZE, &depthSize)
		C.glXGetFBConfigAttrib(s.dpy, cfg, C.GLX_STENCIL_SIZE, &stencilSize)

		handle := uintptr(i + 1) // 0 means "no config"; real handles start at 1
		handles[handle] = cfg

		candidates = append(candidates, fbConfigCandidate{
			handle:            handle,
			visualDepth:       s.depths[xproto.Visualid(visualID)],
			redBits:           int(redSize),
			greenBits:         int(greenSize),
			blueBits:          int(blueSize),
			bindToTextureRGB:  bindRGB != 0,
			bindToTextureRGBA: bindRGBA != 0,
			textureTargets:    int(targets),
			yInverted:         yInverted != 0,
			depthSize:         int(depthSize),
			stencilSize:       int(stencilSize),
		})
	}

	choice, ok := chooseFBConfig(candidates, s.depths[visual], layout.redBits, layout.greenBits, layout.blueBits, layout.alphaBits)
	if !ok {
		return fbConfigChoice{}, false
	}

	// configFor, the only caller, already holds s.mu.
	if s.cachedConfigs == nil {
		s.cachedConfigs = make(map[uintptr]C.GLXFBConfig)
	}
	s.cachedConfigs[choice.candidate.handle] = handles[choice.candidate.handle]

	return choice, true
}

// glxTexture is the GL-side handle for one ClientWindow's backing
// pixmap: a texture bound via GLX_EXT_texture_from_pixmap to the
// pixmap's contents. Mirrors GLXTextureFromPixmap's fields and lifecycle
// (construct once per pixmap, rebind() on every fresh frame, release()
// when the pixmap is destroyed).
type glxTexture struct {
	session *glxSession

	texture   C.GLuint
	glxPixmap C.GLXPixmap
	hasAlpha  bool
	yInverted bool
	width     int
	height    int

	needsRebind bool
}

// newGLXTexture allocates a GL texture name and, if session has a usable
// FBConfig for visual, binds pixmap to it via glXCreatePixmap so the
// texture can later be filled with glXBindTexImageEXT.
func newGLXTexture(session *glxSession, pixmap xproto.Pixmap, visual xproto.Visualid, width, height int) *glxTexture {
	t := &glxTexture{session: session, width: width, height: height}

	C.glGenTextures(1, &t.texture)
	C.glBindTexture(C.GL_TEXTURE_2D, t.texture)
	C.glTexParameteri(C.GL_TEXTURE_2D, C.GL_TEXTURE_MIN_FILTER, C.GL_LINEAR)
	C.glTexParameteri(C.GL_TEXTURE_2D, C.GL_TEXTURE_MAG_FILTER, C.GL_LINEAR)
	C.glTexParameteri(C.GL_TEXTURE_2D, C.GL_TEXTURE_WRAP_S, C.GL_CLAMP_TO_EDGE)
	C.glTexParameteri(C.GL_TEXTURE_2D, C.GL_TEXTURE_WRAP_T, C.GL_CLAMP_TO_EDGE)

	choice, ok := session.configFor(visual)
	if !ok {
		return t
	}
	session.mu.Lock()
	cfg, ok := session.cachedConfigs[choice.candidate.handle]
	session.mu.Unlock()
	if !ok {
		return t
	}

	format := C.int(C.GLX_TEXTURE_FORMAT_RGB_EXT)
	if choice.format == textureFormatRGBA {
		format = C.GLX_TEXTURE_FORMAT_RGBA_EXT
	}

	attrs := []C.int{
		C.GLX_TEXTURE_TARGET_EXT, C.GLX_TEXTURE_2D_EXT,
		C.GLX_TEXTURE_FORMAT_EXT, format,
		C.GLX_MIPMAP_TEXTURE_EXT, 0,
		0,
	}

	t.glxPixmap = C.glXCreatePixmap(session.dpy, cfg, C.GLXPixmap(pixmap), &attrs[0])
	t.needsRebind = true
	t.hasAlpha = choice.format == textureFormatRGBA
	t.yInverted = !choice.candidate.yInverted

	return t
}

// TextureID returns the GL texture name the render thread should bind
// when drawing this window.
func (t *glxTexture) TextureID() uint32 { return uint32(t.texture) }

// HasAlpha reports whether the bound texture format carries an alpha
// channel, per the FBConfig chosen for this pixmap's visual.
func (t *glxTexture) HasAlpha() bool { return t.hasAlpha }

// YInverted reports whether row 0 of the texture is the bottom of the
// image rather than the top, per GLX_Y_INVERTED_EXT.
func (t *glxTexture) YInverted() bool { return t.yInverted }

// Rebind marks the texture as needing a fresh glXBindTexImageEXT before
// its next use, called whenever the window's pixmap has new damage.
func (t *glxTexture) Rebind() {
	if t.glxPixmap != 0 {
		t.needsRebind = true
	}
}

// Bind binds the texture on the currently active texture unit and, if Rebind was
// called since the last Bind, re-reads the pixmap's contents into it.
func (t *glxTexture) Bind() {
	C.glBindTexture(C.GL_TEXTURE_2D, t.texture)
	if t.glxPixmap != 0 && t.needsRebind {
		t.needsRebind = false
		C.callBindTexImageEXT(t.session.bindTexImage, t.session.dpy, C.GLXDrawable(t.glxPixmap), C.GLX_FRONT_LEFT_EXT)
	}
}

// Release tears down the GL texture and, if one was created, the GLX
// pixmap bound to it.
func (t *glxTexture) Release() {
	if t.texture != 0 {
		C.glDeleteTextures(1, &t.texture)
		t.texture = 0
	}
	if t.glxPixmap == 0 {
		return
	}
	C.callReleaseTexImageEXT(t.session.releaseTexImage, t.session.dpy, C.GLXDrawable(t.glxPixmap), C.GLX_FRONT_LEFT_EXT)
	C.glXDestroyPixmap(t.session.dpy, t.glxPixmap)
	t.glxPixmap = 0
}
