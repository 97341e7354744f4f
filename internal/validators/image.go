// Package validators checks uploaded files before they reach the media
// store.
package validators

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var ErrNotAnImage = errors.New("file is not a supported image type")

// ValidateImageUpload checks size and sniffed content type of a multipart
// upload. The declared Content-Type header is ignored; the first bytes of
// the file decide.
func ValidateImageUpload(file multipart.File, header *multipart.FileHeader, maxBytes int64) error {
	if header.Size > maxBytes {
		return fmt.Errorf("file exceeds maximum size of %d bytes", maxBytes)
	}

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind upload: %w", err)
	}

	contentType := http.DetectContentType(buf[:n])
	if !allowedImageTypes[contentType] {
		return ErrNotAnImage
	}

	return nil
}

// ReceiveImage validates a form file and spools it to a temp file,
// returning the local path. A missing file returns "", nil; callers decide
// whether the file was required. The caller removes the temp file.
func ReceiveImage(r *http.Request, field string, maxBytes int64) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", fmt.Errorf("invalid upload for %s: %w", field, err)
	}
	defer file.Close()

	if err := ValidateImageUpload(file, header, maxBytes); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "upload-"+field+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store upload: %w", err)
	}

	return tmp.Name(), nil
}
