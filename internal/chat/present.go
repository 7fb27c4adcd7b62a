package chat

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/vincent-petithory/dataurl"
	_ "golang.org/x/image/webp"

	"github.com/matheus3301/peerchat/internal/blob"
)

// PresentKind is how a message is displayed.
type PresentKind int

const (
	PresentText PresentKind = iota
	PresentImage
	PresentFile
)

// Presentation is the rendering decision for one message.
type Presentation struct {
	Kind     PresentKind
	Text     string
	Filename string
	Format   string
	Width    int
	Height   int
}

// Opener resolves blob references.
type Opener interface {
	Open(ref string) ([]byte, string, error)
}

var errUnsupportedSource = errors.New("unsupported message source")

// Load resolves a message's content to bytes: a data: URL is decoded and a
// blob reference is opened.
func Load(content string, blobs Opener) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(content, "data:"):
		du, err := dataurl.DecodeString(content)
		if err != nil {
			return nil, "", fmt.Errorf("decode data url: %w", err)
		}
		return du.Data, du.MediaType.ContentType(), nil
	case blob.IsRef(content):
		if blobs == nil {
			return nil, "", blob.ErrRevoked
		}
		return blobs.Open(content)
	default:
		return nil, "", errUnsupportedSource
	}
}

// Present decides how m is rendered. An image whose source cannot be loaded
// or decoded is shown as a downloadable file instead.
func Present(m Message, blobs Opener) Presentation {
	switch {
	case m.IsImage:
		data, _, err := Load(m.Content, blobs)
		if err == nil {
			cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
			if err == nil {
				return Presentation{Kind: PresentImage, Filename: m.Filename, Format: format, Width: cfg.Width, Height: cfg.Height}
			}
		}
		name := m.Filename
		if name == "" {
			name = fmt.Sprintf("image-%d.png", m.Timestamp.UnixMilli())
		}
		return Presentation{Kind: PresentFile, Filename: name}
	case m.Filename != "":
		return Presentation{Kind: PresentFile, Filename: m.Filename}
	default:
		return Presentation{Kind: PresentText, Text: m.Content}
	}
}
