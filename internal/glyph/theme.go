package glyph

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"
)

// DefaultTheme is used when the configured theme is unknown.
const DefaultTheme = "neutral"

// Palette is a named color set. Only Primary tints the tray icon; the
// others style the terminal dashboard.
type Palette struct {
	Bg      string
	Card    string
	Stroke  string
	Accent  string
	Primary string
}

var palettes = map[string]Palette{
	"pink":    {Bg: "#FFE2F5", Card: "#FDB3DB", Stroke: "#BF6091", Accent: "#E47ED1", Primary: "#e91e63"},
	"green":   {Bg: "#E0F2F1", Card: "#B2DFDB", Stroke: "#00695C", Accent: "#4DB6AC", Primary: "#2e7d32"},
	"neutral": {Bg: "#F3F3F3", Card: "#E8E8E8", Stroke: "#9E9E9E", Accent: "#BDBDBD", Primary: "#8C8C8C"},
	"blue":    {Bg: "#E3F2FD", Card: "#90CAF9", Stroke: "#1565C0", Accent: "#42A5F5", Primary: "#1976D2"},
	"purple":  {Bg: "#F3E5F5", Card: "#CE93D8", Stroke: "#6A1B9A", Accent: "#AB47BC", Primary: "#8E24AA"},
	"orange":  {Bg: "#FFF3E0", Card: "#FFCC80", Stroke: "#E65100", Accent: "#FF9800", Primary: "#F57C00"},
}

// Theme returns the palette for name, falling back to neutral.
func Theme(name string) Palette {
	if p, ok := palettes[strings.ToLower(name)]; ok {
		return p
	}
	return palettes[DefaultTheme]
}

// Themes lists the known theme names in sorted order.
func Themes() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsTheme reports whether name is a known theme.
func IsTheme(name string) bool {
	_, ok := palettes[strings.ToLower(name)]
	return ok
}

// ThemeColor returns the glyph fill color for a theme.
func ThemeColor(name string) color.NRGBA {
	c, err := ParseHex(Theme(name).Primary)
	if err != nil {
		// palettes are static; this only trips on a typo in the table
		panic(err)
	}
	return c
}

// ParseHex parses #RRGGBB into an opaque color.
func ParseHex(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
