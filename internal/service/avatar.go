package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // registers the JPEG decoder
	"image/png"
	"regexp"

	"golang.org/x/image/draw"
)

const (
	// AvatarMaxBytes is the largest accepted upload.
	AvatarMaxBytes = 1000000
	// AvatarSide is the width and height of every stored avatar.
	AvatarSide = 250
	// AvatarContentType is the media type of every stored avatar.
	AvatarContentType = "image/png"

	avatarMaxPixels = 40_000_000
)

var avatarName = regexp.MustCompile(`(?i)\.(jpeg|jpg|png)$`)

// AvatarProcessor turns uploaded JPEG or PNG images into the canonical
// avatar: a 250x250 PNG.
type AvatarProcessor struct{}

func NewAvatarProcessor() *AvatarProcessor { return &AvatarProcessor{} }

// Normalize validates the upload and returns the canonical PNG bytes.  The
// source is centre-cropped to a square before scaling, so the result fills
// the whole frame without distortion.
func (p *AvatarProcessor) Normalize(filename string, raw []byte) ([]byte, error) {
	if !avatarName.MatchString(filename) {
		return nil, invalid("avatar", "upload only jpeg, jpg or png")
	}
	if len(raw) > AvatarMaxBytes {
		return nil, invalid("avatar", fmt.Sprintf("file too large (max %d bytes)", AvatarMaxBytes))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || (format != "jpeg" && format != "png") {
		return nil, invalid("avatar", "upload only jpeg, jpg or png")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > avatarMaxPixels {
		return nil, invalid("avatar", "image dimensions not supported")
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, invalid("avatar", "image could not be decoded")
	}

	dst := image.NewRGBA(image.Rect(0, 0, AvatarSide, AvatarSide))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, centreSquare(src.Bounds()), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}

func centreSquare(b image.Rectangle) image.Rectangle {
	side := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}
