package service

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 60}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestAvatarProcessor_WideJPEGBecomesSquarePNG(t *testing.T) {
	raw := encodeJPEG(t, 3000, 1000)
	require.Less(t, len(raw), AvatarMaxBytes)

	out, err := NewAvatarProcessor().Normalize("photo.jpg", raw)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, AvatarSide, img.Bounds().Dx())
	assert.Equal(t, AvatarSide, img.Bounds().Dy())
}

func TestAvatarProcessor_SmallPNGIsUpscaled(t *testing.T) {
	out, err := NewAvatarProcessor().Normalize("me.PNG", encodePNG(t, 40, 60))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, AvatarSide, cfg.Width)
	assert.Equal(t, AvatarSide, cfg.Height)
}

func TestAvatarProcessor_RejectsGIFName(t *testing.T) {
	_, err := NewAvatarProcessor().Normalize("x.gif", encodePNG(t, 10, 10))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "avatar", ve.Field)
}

func TestAvatarProcessor_RejectsGIFContentWithJPGName(t *testing.T) {
	var buf bytes.Buffer
	pal := image.NewPaletted(image.Rect(0, 0, 10, 10), color.Palette{color.Black, color.White})
	require.NoError(t, gif.Encode(&buf, pal, nil))

	_, err := NewAvatarProcessor().Normalize("x.jpg", buf.Bytes())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestAvatarProcessor_RejectsOversize(t *testing.T) {
	raw := make([]byte, AvatarMaxBytes+1)
	_, err := NewAvatarProcessor().Normalize("big.png", raw)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, "too large")
}

func TestAvatarProcessor_AcceptsExactlyTheLimit(t *testing.T) {
	raw := encodePNG(t, 40, 40)
	raw = append(raw, make([]byte, AvatarMaxBytes-len(raw))...)
	require.Len(t, raw, AvatarMaxBytes)

	out, err := NewAvatarProcessor().Normalize("limit.png", raw)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, AvatarSide, AvatarSide), img.Bounds())

	_, err = NewAvatarProcessor().Normalize("limit.png", append(raw, 0))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve, "one byte over the limit is rejected")
}

func TestCentreSquare(t *testing.T) {
	assert.Equal(t, image.Rect(1000, 0, 2000, 1000), centreSquare(image.Rect(0, 0, 3000, 1000)))
	assert.Equal(t, image.Rect(0, 5, 10, 15), centreSquare(image.Rect(0, 0, 10, 20)))
}
