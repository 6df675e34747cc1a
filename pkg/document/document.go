package document

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/getvaultapp/vault-verify/pkg/hashing"
)

// Accepted upload extensions
var AllowedExtensions = []string{".png", ".jpg", ".jpeg", ".pdf"}

var (
	ErrMissingFile     = errors.New("no file selected")
	ErrMissingUserID   = errors.New("user id is required")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file exceeds upload limit")
)

// UploadRequest is a single document submission. It lives only for the
// duration of one backend call.
type UploadRequest struct {
	FileName  string
	FileBytes []byte
	UserID    string
}

// Hash returns the content hash of the exact bytes that will be sent
func (r UploadRequest) Hash() string {
	return hashing.ContentHash(r.FileBytes)
}

// Validate checks the request before any network call
func (r UploadRequest) Validate() error {
	if r.FileName == "" || len(r.FileBytes) == 0 {
		return ErrMissingFile
	}
	if strings.TrimSpace(r.UserID) == "" {
		return ErrMissingUserID
	}
	return CheckExtension(r.FileName)
}

// CheckExtension rejects file names outside the PNG/JPG/JPEG/PDF allow-list
func CheckExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(name))
}

// CheckSize enforces the configured upload limit. A limit <= 0 disables it.
func CheckSize(size, limit int64) error {
	if limit > 0 && size > limit {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, limit)
	}
	return nil
}

// ContentType sniffs the media type from the file content
func ContentType(data []byte) string {
	return mimetype.Detect(data).String()
}

// IsImage reports whether the sniffed content type is an image
func IsImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

// Preview returns a data URI for image content and "" for anything else.
// The bytes are embedded as-is.
func Preview(data []byte) string {
	ct := ContentType(data)
	if !IsImage(ct) {
		return ""
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data)
}
