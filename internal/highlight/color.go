package highlight

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultAlpha is the alpha given to colors written without one.
const DefaultAlpha = 100

// FirstTokenDarkness darkens the first token of a highlighted sentence, as a
// percentage (180 divides the brightness by 1.8).
const FirstTokenDarkness = 180

var (
	// DefaultWordColor is used when a word color cannot be parsed.
	DefaultWordColor = Color{R: 255, G: 255, B: 0, A: DefaultAlpha}
	// DefaultSentenceColor is used when a sentence color cannot be parsed.
	DefaultSentenceColor = Color{R: 173, G: 216, B: 230, A: DefaultAlpha}
)

// Color is an 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

// ColorFormat identifies which textual form a color was written in.
type ColorFormat int

const (
	FormatInvalid ColorFormat = iota
	FormatHex6                // #RRGGBB
	FormatHex8                // #RRGGBBAA
	FormatRGB                 // rgb(r,g,b)
	FormatRGBA                // rgba(r,g,b,a) with a in [0,1]
)

func (f ColorFormat) String() string {
	switch f {
	case FormatHex6:
		return "hex6"
	case FormatHex8:
		return "hex8"
	case FormatRGB:
		return "rgb"
	case FormatRGBA:
		return "rgba"
	default:
		return "invalid"
	}
}

// ParsedColor is the result of parsing a color string.
type ParsedColor struct {
	Format ColorFormat
	Color  Color
}

// Valid reports whether the input was recognized.
func (p ParsedColor) Valid() bool { return p.Format != FormatInvalid }

// Or returns the parsed color, or def when the input was invalid.
func (p ParsedColor) Or(def Color) Color {
	if !p.Valid() {
		return def
	}
	return p.Color
}

// ParseColor recognizes #RRGGBB, #RRGGBBAA, rgb(r,g,b) and rgba(r,g,b,a).
func ParseColor(s string) ParsedColor {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s)
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[len("rgba("):len(s)-1], FormatRGBA)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[len("rgb("):len(s)-1], FormatRGB)
	}
	return ParsedColor{}
}

// WordColor parses s, falling back to DefaultWordColor.
func WordColor(s string) Color { return ParseColor(s).Or(DefaultWordColor) }

// SentenceColor parses s, falling back to DefaultSentenceColor.
func SentenceColor(s string) Color { return ParseColor(s).Or(DefaultSentenceColor) }

func parseHex(s string) ParsedColor {
	var format ColorFormat
	switch len(s) {
	case 7:
		format = FormatHex6
	case 9:
		format = FormatHex8
	default:
		return ParsedColor{}
	}
	c, err := colorful.Hex(s[:7])
	if err != nil {
		return ParsedColor{}
	}
	r, g, b := c.RGB255()
	out := Color{R: r, G: g, B: b, A: DefaultAlpha}
	if format == FormatHex8 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return ParsedColor{}
		}
		out.A = uint8(a)
	}
	return ParsedColor{Format: format, Color: out}
}

func parseFunc(body string, format ColorFormat) ParsedColor {
	parts := strings.Split(body, ",")
	want := 3
	if format == FormatRGBA {
		want = 4
	}
	if len(parts) != want {
		return ParsedColor{}
	}

	var ch [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 || v > 255 {
			return ParsedColor{}
		}
		ch[i] = uint8(v)
	}
	out := Color{R: ch[0], G: ch[1], B: ch[2], A: DefaultAlpha}

	if format == FormatRGBA {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return ParsedColor{}
		}
		out.A = uint8(a * 255)
	}
	return ParsedColor{Format: format, Color: out}
}

// Hex formats c as #RRGGBBAA.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

func (c Color) String() string { return c.Hex() }

// Darker divides the HSV value of c by factor/100, keeping hue, saturation
// and alpha. Factors at or below 100 return c unchanged.
func (c Color) Darker(factor int) Color {
	if factor <= 100 {
		return c
	}
	h, s, v := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hsv()
	r, g, b := colorful.Hsv(h, s, v*100/float64(factor)).Clamped().RGB255()
	return Color{R: r, G: g, B: b, A: c.A}
}

// MarshalText encodes c as #RRGGBBAA.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText accepts any form ParseColor recognizes.
func (c *Color) UnmarshalText(b []byte) error {
	p := ParseColor(string(b))
	if !p.Valid() {
		return fmt.Errorf("invalid color %q", string(b))
	}
	*c = p.Color
	return nil
}
