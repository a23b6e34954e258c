// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import "testing"

func TestPopcount(t *testing.T) {
	cases := []struct {
		mask uint32
		want int
	}{
		{0x0, 0},
		{0xff0000, 8},
		{0xffffffff, 32},
		{0b1010_1010, 4},
	}
	for _, c := range cases {
		if got := popcount(c.mask); got != c.want {
			t.Errorf("popcount(%#x) = %d, want %d", c.mask, got, c.want)
		}
	}
}

func rgbCandidate(visualDepth, depthSize, stencilSize int, bindRGB, bindRGBA bool) fbConfigCandidate {
	return fbConfigCandidate{
		visualDepth:       visualDepth,
		redBits:           8,
		greenBits:         8,
		blueBits:          8,
		bindToTextureRGB:  bindRGB,
		bindToTextureRGBA: bindRGBA,
		textureTargets:    glxTexture2DBitEXT,
		depthSize:         depthSize,
		stencilSize:       stencilSize,
	}
}

func TestChooseFBConfigFiltersChannelAndDepthMismatch(t *testing.T) {
	candidates := []fbConfigCandidate{
		rgbCandidate(16, 0, 0, true, false), // wrong visual depth
	}
	_, ok := chooseFBConfig(candidates, 24, 8, 8, 8, 0)
	if ok {
		t.Fatal("expected no match when visual depth differs")
	}

	wrongChannels := rgbCandidate(24, 0, 0, true, false)
	wrongChannels.greenBits = 6 // 8-6-8 against the visual's 8-8-8
	_, ok = chooseFBConfig([]fbConfigCandidate{wrongChannels}, 24, 8, 8, 8, 0)
	if ok {
		t.Fatal("expected no match when channel widths differ")
	}
}

func TestChooseFBConfigRejectsConfigsWithoutTextureBinding(t *testing.T) {
	c := rgbCandidate(24, 0, 0, false, false)
	_, ok := chooseFBConfig([]fbConfigCandidate{c}, 24, 8, 8, 8, 0)
	if ok {
		t.Fatal("expected no match when neither RGB nor RGBA binding is supported")
	}
}

func TestChooseFBConfigPrefersAlphaMatch(t *testing.T) {
	rgbOnly := rgbCandidate(32, 0, 0, true, false)
	rgba := rgbCandidate(32, 0, 0, false, true)

	choice, ok := chooseFBConfig([]fbConfigCandidate{rgbOnly, rgba}, 32, 8, 8, 8, 8)
	if !ok {
		t.Fatal("expected a match")
	}
	if !choice.alphaMatches || choice.format != textureFormatRGBA {
		t.Errorf("expected the RGBA-capable config to win for an alpha visual, got %+v", choice)
	}
}

func TestChooseFBConfigBreaksTiesByDepthPlusStencil(t *testing.T) {
	shallow := rgbCandidate(24, 0, 0, true, false)
	deep := rgbCandidate(24, 24, 8, true, false)

	choice, ok := chooseFBConfig([]fbConfigCandidate{deep, shallow}, 24, 8, 8, 8, 0)
	if !ok {
		t.Fatal("expected a match")
	}
	if choice.candidate.depthSize+choice.candidate.stencilSize != 0 {
		t.Errorf("expected the shallower config to win the tie, got depth=%d stencil=%d",
			choice.candidate.depthSize, choice.candidate.stencilSize)
	}
}
