package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// MaxFileSize is 10MB in bytes
	MaxFileSize = 10 * 1024 * 1024
)

// allowedImageExtensions lists the image formats accepted for order sketches
// and production photos.
var allowedImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile validates the uploaded file format and size
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	// Check file size
	if fileHeader.Size > MaxFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}

	// Check file extension
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedImageExtensions[ext] {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: fmt.Sprintf("File format %q is not allowed; allowed formats: %s", ext, strings.Join(AllowedImageFormats(), ", ")),
		}
	}

	return nil
}

// AllowedImageFormats returns the accepted image extensions in sorted order.
func AllowedImageFormats() []string {
	formats := make([]string, 0, len(allowedImageExtensions))
	for ext := range allowedImageExtensions {
		formats = append(formats, ext)
	}
	sort.Strings(formats)
	return formats
}
