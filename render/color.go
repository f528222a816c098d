package render

import (
	"fmt"
	"image/color"
	"strings"

	"golang.org/x/image/colornames"
)

// DefaultEntityColor is used for entities whose prefab is missing or whose
// prefab color does not parse.
var DefaultEntityColor = color.RGBA{R: 0x3c, G: 0x78, B: 0xff, A: 0xff}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa and CSS color names.
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := colornames.Map[s]; ok {
		return c, true
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, false
	}
	hex := s[1:]
	var r, g, b, a uint32 = 0, 0, 0, 0xff
	switch len(hex) {
	case 3:
		if _, err := fmt.Sscanf(hex, "%1x%1x%1x", &r, &g, &b); err != nil {
			return color.RGBA{}, false
		}
		r, g, b = r*0x11, g*0x11, b*0x11
	case 6:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
			return color.RGBA{}, false
		}
	case 8:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x%02x", &r, &g, &b, &a); err != nil {
			return color.RGBA{}, false
		}
	default:
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(a)}, true
}

func colorOr(s string, fallback color.RGBA) color.RGBA {
	if c, ok := ParseColor(s); ok {
		return c
	}
	return fallback
}

// darken scales the color channels towards black for outlines.
func darken(c color.RGBA, f float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: c.A,
	}
}
