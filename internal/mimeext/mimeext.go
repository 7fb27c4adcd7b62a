// Package mimeext maps MIME types to filename extensions.
package mimeext

import "strings"

// Fallback is returned for any MIME type without a known extension.
const Fallback = "bin"

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",

	"video/mp4":  "mp4",
	"video/webm": "webm",

	"audio/mpeg": "mp3",
	"audio/wav":  "wav",
	"audio/ogg":  "ogg",

	"application/pdf":              "pdf",
	"application/zip":              "zip",
	"application/x-zip-compressed": "zip",
	"application/json":             "json",
	"application/javascript":       "js",
	"application/xml":              "xml",

	"text/plain":      "txt",
	"text/html":       "html",
	"text/css":        "css",
	"text/javascript": "js",
	"text/csv":        "csv",

	"application/msword":            "doc",
	"application/vnd.ms-excel":      "xls",
	"application/vnd.ms-powerpoint": "ppt",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "xlsx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
}

// For returns the filename extension (without the dot) for a MIME type.
// Parameters after the first ';' are ignored. Unknown or empty types yield Fallback.
func For(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	clean := strings.ToLower(strings.TrimSpace(mimeType))
	if ext, ok := extensions[clean]; ok {
		return ext
	}
	return Fallback
}

// FromDataURL extracts the MIME token of a data URL: the text between
// "data:" and the first ';' or ','. Returns "" if s is not a data URL.
func FromDataURL(s string) string {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return ""
	}
	end := strings.IndexAny(rest, ";,")
	if end <= 0 {
		return ""
	}
	return rest[:end]
}
