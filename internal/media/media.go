// Package media stores user-uploaded blobs: avatar, banner and post
// attachments. Uploads are verified against a MIME whitelist by their
// magic bytes, never by the client's declared type alone.
package media

import (
	"net/http"
	"strings"
)

// Kind buckets an upload for its size cap.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

const (
	maxImageSize = 5 << 20  // 5 MB
	maxVideoSize = 50 << 20 // 50 MB
)

// format describes one allowed content type.
type format struct {
	kind Kind
	ext  string
}

// formats is the whitelist. Anything not here is refused no matter what
// the client claims.
var formats = map[string]format{
	"image/jpeg": {KindImage, "jpg"},
	"image/png":  {KindImage, "png"},
	"image/gif":  {KindImage, "gif"},
	"image/webp": {KindImage, "webp"},
	"video/mp4":  {KindVideo, "mp4"},
	"video/webm": {KindVideo, "webm"},
}

// Upload is the stored result returned to handlers.
type Upload struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	MIME string `json:"mimeType"`
	Size int    `json:"size"`
}

// sniffMIME detects the content type from the payload's leading bytes.
func sniffMIME(data []byte) string {
	// DetectContentType wants at most the first 512 bytes and never
	// errors; unknown content comes back application/octet-stream.
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	mime := http.DetectContentType(head)
	// Strip any parameters, e.g. "text/plain; charset=utf-8".
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}

// normalizeMIME folds common non-standard spellings.
func normalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "image/jpg" {
		return "image/jpeg"
	}
	return mime
}
