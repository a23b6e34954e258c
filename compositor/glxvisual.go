// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import "math"

// glxTexture2DBitEXT is GLX_TEXTURE_2D_BIT_EXT from GLX_EXT_texture_from_pixmap.
const glxTexture2DBitEXT = 0x00000001

// textureFormat mirrors the GLX_TEXTURE_FORMAT_*_EXT attribute values
// glXCreatePixmap needs, narrowed to the two this package ever binds.
type textureFormat int

const (
	textureFormatRGB textureFormat = iota
	textureFormatRGBA
)

// fbConfigCandidate holds the subset of one GLXFBConfig's attributes the
// selection in chooseFBConfig needs. Kept free of cgo types so the
// ranking algorithm can run, and be tested, without a live GLX context;
// glxtexture_cgo.go is responsible for turning real GLXFBConfig handles
// into these before calling chooseFBConfig.
type fbConfigCandidate struct {
	handle uintptr // opaque GLXFBConfig, round-tripped back to cgo by the caller

	visualDepth int

	redBits, greenBits, blueBits int

	bindToTextureRGB  bool
	bindToTextureRGBA bool
	textureTargets    int // GLX_BIND_TO_TEXTURE_TARGETS_EXT bitmask

	yInverted bool

	depthSize, stencilSize int
}

// fbConfigChoice is the winning candidate plus the texture format a
// caller needs to set up glXCreatePixmap and the resulting texture, and
// whether the candidate's alpha support matched the visual.
type fbConfigChoice struct {
	candidate    fbConfigCandidate
	format       textureFormat
	alphaMatches bool
}

// chooseFBConfig picks the best FBConfig for binding a pixmap of the
// given visual's channel layout as a GL texture, replicating
// GLXInfo::createVisualInfo (original_source/glxtexturefrompixmap.cpp):
// filter to configs whose RGB channel widths and visual depth match the
// window's visual, support TFP binding as 2D textures, then prefer a
// config whose alpha support matches whether the visual carries an
// alpha channel, breaking ties by the smallest depth+stencil buffer.
// The second return value is false if no candidate survives filtering.
func chooseFBConfig(candidates []fbConfigCandidate, visualDepth, redBits, greenBits, blueBits, alphaBits int) (fbConfigChoice, bool) {
	var best fbConfigCandidate
	var bestFormat textureFormat
	bestAlphaMatches := false
	bestDepthStencil := math.MaxInt32 / 2
	found := false

	for _, c := range candidates {
		if c.redBits != redBits || c.greenBits != greenBits || c.blueBits != blueBits {
			continue
		}
		if c.visualDepth != visualDepth {
			continue
		}
		if !c.bindToTextureRGB && !c.bindToTextureRGBA {
			continue
		}
		if c.textureTargets&glxTexture2DBitEXT == 0 {
			continue
		}

		var format textureFormat
		var alphaMatches bool
		if alphaBits > 0 {
			alphaMatches = c.bindToTextureRGBA
			if c.bindToTextureRGBA {
				format = textureFormatRGBA
			} else {
				format = textureFormatRGB
			}
		} else {
			alphaMatches = c.bindToTextureRGB
			if c.bindToTextureRGB {
				format = textureFormatRGB
			} else {
				format = textureFormatRGBA
			}
		}

		if alphaMatches != bestAlphaMatches {
			if alphaMatches {
				best, bestFormat, bestAlphaMatches = c, format, alphaMatches
				bestDepthStencil = c.depthSize + c.stencilSize
				found = true
			}
			continue
		}
		if c.depthSize+c.stencilSize < bestDepthStencil {
			best, bestFormat, bestAlphaMatches = c, format, alphaMatches
			bestDepthStencil = c.depthSize + c.stencilSize
			found = true
		}
	}

	if !found {
		return fbConfigChoice{}, false
	}
	return fbConfigChoice{candidate: best, format: bestFormat, alphaMatches: bestAlphaMatches}, true
}

// popcount counts the set bits of a channel mask, mirroring the
// original's use of __builtin_popcount on each RENDER pictforminfo
// channel mask to derive the requested red/green/blue/alpha bit widths.
func popcount(mask uint32) int {
	n := 0
	for mask != 0 {
		n += int(mask & 1)
		mask >>= 1
	}
	return n
}
