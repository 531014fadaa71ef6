package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxPictureSize bounds avatar uploads before decoding.
const MaxPictureSize = 5 << 20 // 5MB

// allowedPictureExtensions is the avatar allow-list. Formats outside it are
// rejected before any bytes are decoded.
var allowedPictureExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ValidatePictureName checks the original filename of an uploaded avatar
// against the extension allow-list.
func ValidatePictureName(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedPictureExtensions[ext] {
		return fmt.Errorf("unsupported image type %q: only jpg and png are allowed", ext)
	}
	return nil
}
