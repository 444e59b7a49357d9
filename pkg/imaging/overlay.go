// Package imaging draws personalized text onto template images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register decoder
	"image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp" // register decoder
)

const (
	// MaxUploadBytes caps a base image upload.
	MaxUploadBytes = 5 << 20
	// MaxTextRunes caps the personalized text.
	MaxTextRunes = 100
	// MaxScale caps the text magnification.
	MaxScale = 8
	// MaxDimension caps the width and the height of a base image.
	MaxDimension = 4096
)

var (
	ErrUnsupportedFormat = errors.New("image must be png, jpeg or webp")
	ErrInvalidColor      = errors.New("color must be #rgb or #rrggbb")
	ErrImageTooLarge     = fmt.Errorf("image must be at most %dx%d pixels", MaxDimension, MaxDimension)
)

// Format describes an accepted upload format.
type Format struct {
	ContentType string
	Ext         string
}

var formats = map[string]Format{
	"image/png":  {ContentType: "image/png", Ext: "png"},
	"image/jpeg": {ContentType: "image/jpeg", Ext: "jpg"},
	"image/webp": {ContentType: "image/webp", Ext: "webp"},
}

// Sniff detects the format of data from its leading bytes.
func Sniff(data []byte) (Format, error) {
	f, ok := formats[http.DetectContentType(data)]
	if !ok {
		return Format{}, ErrUnsupportedFormat
	}
	return f, nil
}

// CheckDimensions decodes only the image header and rejects images wider or
// taller than MaxDimension.
func CheckDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return ErrImageTooLarge
	}
	return nil
}

// Overlay is the text drawn on a template. X and Y are the top-left corner
// of the text box in base image pixels.
type Overlay struct {
	Text  string
	X, Y  int
	Color color.Color
	Scale int
}

// Render decodes base and draws o on a copy of it. The header is checked
// against MaxDimension before any pixels are decoded.
func Render(base []byte, o Overlay) (*image.RGBA, error) {
	if err := CheckDimensions(base); err != nil {
		return nil, err
	}
	src, _, err := image.Decode(bytes.NewReader(base))
	if err != nil {
		return nil, fmt.Errorf("decode base image: %w", err)
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)

	drawText(dst, o)
	return dst, nil
}

// RenderPNG renders o onto base and writes the result as PNG.
func RenderPNG(w io.Writer, base []byte, o Overlay) error {
	img, err := Render(base, o)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func drawText(dst *image.RGBA, o Overlay) {
	text := truncate(strings.TrimSpace(o.Text), MaxTextRunes)
	if text == "" {
		return
	}
	scale := o.Scale
	if scale < 1 {
		scale = 1
	}
	if scale > MaxScale {
		scale = MaxScale
	}
	col := o.Color
	if col == nil {
		col = color.Black
	}

	face := basicfont.Face7x13
	metrics := face.Metrics()
	width := font.MeasureString(face, text).Ceil()
	height := metrics.Height.Ceil()

	// Render at native size, then magnify so the bitmap font stays crisp.
	glyphs := image.NewRGBA(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, metrics.Ascent.Ceil()),
	}
	d.DrawString(text)

	target := image.Rect(o.X, o.Y, o.X+width*scale, o.Y+height*scale)
	draw.NearestNeighbor.Scale(dst, target, glyphs, glyphs.Bounds(), draw.Over, nil)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// ParseHexColor parses "#rgb" or "#rrggbb". The leading '#' is optional and
// an empty string yields black.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return color.RGBA{A: 0xff}, nil
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, ErrInvalidColor
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, ErrInvalidColor
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
