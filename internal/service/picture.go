package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/feldrin/quill/internal/model"
	"github.com/feldrin/quill/internal/storage"
	"github.com/feldrin/quill/internal/validation"
	"github.com/rs/xid"
	"golang.org/x/image/draw"
)

// ErrUnsupportedMedia is returned for uploads that are not an allow-listed
// image format, by extension or by content.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// ErrPictureTooLarge is returned for uploads exceeding MaxPictureSize.
var ErrPictureTooLarge = errors.New("picture too large")

// PictureService accepts an uploaded avatar, downscales it to a bounded
// dimension and persists it under a collision-resistant reference name.
// Replaced avatars are not deleted; old files stay orphaned in storage.
type PictureService struct {
	storage      storage.Storage
	maxDimension int
}

func NewPictureService(storage storage.Storage, maxDimension int) *PictureService {
	return &PictureService{
		storage:      storage,
		maxDimension: maxDimension,
	}
}

// Save normalizes and persists an uploaded image, returning its reference
// name. The reference embeds a fresh xid so concurrent uploads can never
// target the same path and browsers never serve a stale cached avatar.
func (s *PictureService) Save(file io.Reader, originalName string) (string, error) {
	err := validation.ValidatePictureName(originalName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
	}

	// Read one byte past the limit so an oversized upload is reported as
	// such instead of being truncated into a decode failure.
	data, err := io.ReadAll(io.LimitReader(file, validation.MaxPictureSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > validation.MaxPictureSize {
		return "", ErrPictureTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: not a decodable image", ErrUnsupportedMedia)
	}

	img = s.downscale(img)

	ext := strings.ToLower(filepath.Ext(originalName))
	var buf bytes.Buffer
	switch ext {
	case ".png":
		err = png.Encode(&buf, img)
	default: // .jpg, .jpeg
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	reference := xid.New().String() + ext

	err = s.storage.Save(reference, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to store picture: %w", err)
	}

	return reference, nil
}

// downscale bounds the image to maxDimension on its longest side, preserving
// aspect ratio. Smaller images pass through untouched; nothing is ever
// upscaled.
func (s *PictureService) downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= s.maxDimension && h <= s.maxDimension {
		return img
	}

	if w >= h {
		h = h * s.maxDimension / w
		w = s.maxDimension
	} else {
		w = w * s.maxDimension / h
		h = s.maxDimension
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// EnsureDefaultAvatar stores the built-in avatar served for accounts that
// never uploaded a picture. Idempotent; runs at startup so the default
// reference always resolves to a real file.
func (s *PictureService) EnsureDefaultAvatar() error {
	img := image.NewRGBA(image.Rect(0, 0, s.maxDimension, s.maxDimension))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 0xB0, G: 0xB8, B: 0xC0, A: 0xFF}), image.Point{}, draw.Src)

	var buf bytes.Buffer
	err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	if err != nil {
		return fmt.Errorf("failed to encode default avatar: %w", err)
	}

	err = s.storage.Save(model.DefaultImageFile, &buf)
	if err != nil {
		return fmt.Errorf("failed to store default avatar: %w", err)
	}

	return nil
}

// URL resolves an avatar reference to a fetchable URL.
func (s *PictureService) URL(reference string) string {
	if reference == "" {
		reference = model.DefaultImageFile
	}
	return s.storage.URL(reference)
}
