package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/afzalhamdulay1/videoTube/internal/logger"
)

// ServeHandler streams stored media objects (avatars, cover images) back
// to clients, honoring single-range requests.
type ServeHandler struct {
	storage *Client
}

// NewServeHandler creates a new media serving handler.
func NewServeHandler(storage *Client) *ServeHandler {
	return &ServeHandler{storage: storage}
}

// rangeSpec represents a parsed HTTP Range header.
type rangeSpec struct {
	start int64
	end   int64
}

var rangePattern = regexp.MustCompile(`^(\d*)-(\d*)$`)

// parseRange parses an HTTP Range header value. Supports "bytes=0-499",
// "bytes=500-" and "bytes=-500"; multi-range requests use the first range.
func parseRange(rangeHeader string, totalSize int64) (*rangeSpec, error) {
	if rangeHeader == "" {
		return nil, nil
	}

	if !strings.HasPrefix(rangeHeader, "bytes=") {
		return nil, errors.New("invalid range unit")
	}

	spec := strings.TrimPrefix(rangeHeader, "bytes=")
	if strings.Contains(spec, ",") {
		spec = strings.Split(spec, ",")[0]
	}

	matches := rangePattern.FindStringSubmatch(strings.TrimSpace(spec))
	if matches == nil {
		return nil, errors.New("invalid range format")
	}

	startStr, endStr := matches[1], matches[2]
	rs := &rangeSpec{}

	switch {
	case startStr == "" && endStr == "":
		return nil, errors.New("invalid range: both start and end are empty")

	case startStr == "":
		suffix, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid suffix length: %w", err)
		}
		rs.start = totalSize - suffix
		if rs.start < 0 {
			rs.start = 0
		}
		rs.end = totalSize - 1

	case endStr == "":
		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid start position: %w", err)
		}
		rs.start = start
		rs.end = totalSize - 1

	default:
		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid start position: %w", err)
		}
		end, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid end position: %w", err)
		}
		rs.start = start
		rs.end = end
	}

	if rs.start < 0 || rs.start >= totalSize {
		return nil, errors.New("range start out of bounds")
	}
	if rs.end >= totalSize {
		rs.end = totalSize - 1
	}
	if rs.start > rs.end {
		return nil, errors.New("invalid range: start > end")
	}

	return rs, nil
}

// ServeObject handles GET /media/{key...}.
func (h *ServeHandler) ServeObject(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" || strings.Contains(key, "..") {
		http.NotFound(w, r)
		return
	}

	info, err := h.storage.StatObject(r.Context(), key)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)
	if info.ETag != "" {
		w.Header().Set("ETag", info.ETag)
	}

	rs, err := parseRange(r.Header.Get("Range"), info.Size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", info.Size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if rs == nil {
		obj, _, err := h.storage.GetObject(r.Context(), key)
		if err != nil {
			logger.Error(r.Context(), "failed to read media object", err)
			http.Error(w, "failed to read object", http.StatusInternalServerError)
			return
		}
		defer obj.Close()

		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, obj)
		return
	}

	obj, err := h.storage.GetObjectRange(r.Context(), key, rs.start, rs.end)
	if err != nil {
		logger.Error(r.Context(), "failed to read media range", err)
		http.Error(w, "failed to read object", http.StatusInternalServerError)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rs.start, rs.end, info.Size))
	w.Header().Set("Content-Length", strconv.FormatInt(rs.end-rs.start+1, 10))
	w.WriteHeader(http.StatusPartialContent)
	io.Copy(w, obj)
}
