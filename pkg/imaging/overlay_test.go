package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whitePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// pngHeader returns a PNG signature and IHDR chunk declaring w x h pixels,
// with no pixel data behind it.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolor

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func countColored(img image.Image, c color.RGBA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if color.RGBAModel.Convert(img.At(x, y)) == c {
				n++
			}
		}
	}
	return n
}

func TestRender(t *testing.T) {
	base := whitePNG(t, 200, 100)
	red := color.RGBA{R: 0xff, A: 0xff}

	t.Run("Should draw the text inside its box only", func(t *testing.T) {
		img, err := Render(base, Overlay{Text: "Ana", X: 10, Y: 20, Color: red, Scale: 2})
		require.NoError(t, err)

		box := image.Rect(10, 20, 10+3*7*2, 20+13*2)
		assert.Greater(t, countColored(img, red, box), 0)
		assert.Equal(t, 0, countColored(img, red, image.Rect(0, 0, 200, 20)))
		assert.Equal(t, 0, countColored(img, red, image.Rect(box.Max.X, 0, 200, 100)))
	})

	t.Run("Should leave the image untouched for blank text", func(t *testing.T) {
		img, err := Render(base, Overlay{Text: "   ", Color: red})
		require.NoError(t, err)
		assert.Equal(t, 0, countColored(img, red, img.Bounds()))
	})

	t.Run("Should clip text running off the edge", func(t *testing.T) {
		_, err := Render(base, Overlay{Text: "a very long name indeed", X: 190, Y: 95, Scale: 8})
		assert.NoError(t, err)
	})

	t.Run("Should reject data that is not an image", func(t *testing.T) {
		_, err := Render([]byte("GIF? no"), Overlay{Text: "x"})
		assert.Error(t, err)
	})

	t.Run("Should refuse oversized images before decoding pixels", func(t *testing.T) {
		_, err := Render(pngHeader(40000, 40000), Overlay{Text: "x"})
		assert.ErrorIs(t, err, ErrImageTooLarge)
	})

	t.Run("Should encode PNG output", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RenderPNG(&out, base, Overlay{Text: "Hi"}))
		cfg, err := png.DecodeConfig(&out)
		require.NoError(t, err)
		assert.Equal(t, 200, cfg.Width)
	})
}

func TestCheckDimensions(t *testing.T) {
	assert.NoError(t, CheckDimensions(whitePNG(t, 10, 10)))
	assert.NoError(t, CheckDimensions(pngHeader(MaxDimension, MaxDimension)))
	assert.ErrorIs(t, CheckDimensions(pngHeader(MaxDimension+1, 1)), ErrImageTooLarge)
	assert.ErrorIs(t, CheckDimensions(pngHeader(1, 40000)), ErrImageTooLarge)
	assert.Error(t, CheckDimensions([]byte("plain text")))
}

func TestSniff(t *testing.T) {
	f, err := Sniff(whitePNG(t, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "png", f.Ext)

	_, err = Sniff([]byte("plain text"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#1a2b3c")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 0xff}, c)

	c, err = ParseHexColor("f00")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, c)

	c, err = ParseHexColor("")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{A: 0xff}, c)

	_, err = ParseHexColor("#12345")
	assert.ErrorIs(t, err, ErrInvalidColor)
	_, err = ParseHexColor("zzzzzz")
	assert.ErrorIs(t, err, ErrInvalidColor)
}
