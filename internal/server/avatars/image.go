// Package avatars normalizes uploaded profile images and stores them either
// inline in the users table or in an S3-compatible bucket.
package avatars

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	"image/png"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"golang.org/x/image/draw"
)

// Size is the edge length of every stored avatar.
const Size = 250

// ContentType of every stored avatar.
const ContentType = "image/png"

// MaxPixels caps the decoded area of an upload. A small compressed file can
// still describe a huge canvas.
const MaxPixels = 4096 * 4096

var allowedExtensions = []string{".jpg", ".jpeg", ".png"}

var ErrUnsupportedImage = errors.New("please upload an image")

// Normalize checks the upload against the extension allow-list, the byte
// limit and MaxPixels, decodes it and re-encodes it as a Size x Size PNG.
func Normalize(filename string, data []byte, maxBytes int64) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(allowedExtensions, ext) {
		return nil, common.NewValidationError("avatar", ErrUnsupportedImage.Error())
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, common.NewValidationError("avatar", "file too large")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxPixels {
		return nil, common.NewValidationError("avatar", ErrUnsupportedImage.Error())
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, common.NewValidationError("avatar", ErrUnsupportedImage.Error())
	}

	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
