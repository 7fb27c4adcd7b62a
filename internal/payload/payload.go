// Package payload decodes frames received from peers into a closed set of
// payload kinds and classifies them into chat messages.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/vincent-petithory/dataurl"

	"github.com/matheus3301/peerchat/internal/transport"
)

// Kind discriminates a decoded payload.
type Kind int

const (
	KindFile Kind = iota + 1
	KindDataURL
	KindText
	KindBlob
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDataURL:
		return "data_url"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	case KindOther:
		return "other"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// fileMarker tags a structured file transfer on the wire.
const fileMarker = "file"

// ErrMalformed is returned for a tagged object whose fields have the wrong shape.
var ErrMalformed = errors.New("malformed payload")

// FileTransfer is the tagged file object {type:"file", filename, mimeType, data}.
type FileTransfer struct {
	Filename string
	MimeType string
	Data     string
}

// Blob is an opaque binary frame with its detected content type.
type Blob struct {
	Data        []byte
	ContentType string
}

// Payload is one decoded frame. Exactly one of Text, File or Blob is set,
// according to Kind.
type Payload struct {
	Kind Kind
	Text string
	File *FileTransfer
	Blob *Blob
}

// Decode turns a frame into a Payload. Binary frames are blobs. Text frames
// are JSON values; text that is not valid JSON is taken as a plain string.
func Decode(f transport.Frame) (Payload, error) {
	if f.Binary {
		return decodeBinary(f.Data), nil
	}
	var v any
	if err := json.Unmarshal(f.Data, &v); err != nil {
		return decodeString(string(f.Data)), nil
	}
	switch val := v.(type) {
	case string:
		return decodeString(val), nil
	case map[string]any:
		if val["type"] == fileMarker {
			return decodeFile(f.Data)
		}
	}
	return decodeOther(f.Data)
}

func decodeBinary(data []byte) Payload {
	return Payload{
		Kind: KindBlob,
		Blob: &Blob{Data: data, ContentType: mimetype.Detect(data).String()},
	}
}

func decodeString(s string) Payload {
	if strings.HasPrefix(s, "data:") {
		return Payload{Kind: KindDataURL, Text: s}
	}
	return Payload{Kind: KindText, Text: s}
}

type wireFile struct {
	Type     string `json:"type"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data"`
}

func decodeFile(raw []byte) (Payload, error) {
	var w wireFile
	if err := json.Unmarshal(raw, &w); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Payload{
		Kind: KindFile,
		File: &FileTransfer{Filename: w.Filename, MimeType: w.MimeType, Data: w.Data},
	}, nil
}

func decodeOther(raw []byte) (Payload, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Payload{Kind: KindOther, Text: buf.String()}, nil
}

// EncodeText builds the frame for a plain text message.
func EncodeText(s string) (transport.Frame, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return transport.Frame{}, err
	}
	return transport.Frame{Data: b}, nil
}

// EncodeFile builds the tagged file frame. An empty or invalid mimeType is
// detected from data. The returned FileTransfer mirrors what was sent.
func EncodeFile(filename, mimeType string, data []byte) (transport.Frame, FileTransfer, error) {
	mt := cleanMediaType(mimeType)
	if mt == "" {
		mt = cleanMediaType(mimetype.Detect(data).String())
	}
	ft := FileTransfer{
		Filename: filename,
		MimeType: mt,
		Data:     dataurl.New(data, mt).String(),
	}
	f, err := EncodeTransfer(ft)
	if err != nil {
		return transport.Frame{}, FileTransfer{}, err
	}
	return f, ft, nil
}

// EncodeTransfer builds the tagged file frame for an already encoded transfer.
func EncodeTransfer(ft FileTransfer) (transport.Frame, error) {
	b, err := json.Marshal(wireFile{Type: fileMarker, Filename: ft.Filename, MimeType: ft.MimeType, Data: ft.Data})
	if err != nil {
		return transport.Frame{}, err
	}
	return transport.Frame{Data: b}, nil
}

// cleanMediaType strips parameters and returns "" unless the result is type/subtype.
func cleanMediaType(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	s = strings.ToLower(strings.TrimSpace(s))
	typ, sub, ok := strings.Cut(s, "/")
	if !ok || typ == "" || sub == "" || strings.Contains(sub, "/") {
		return ""
	}
	return s
}
