package payload

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/blob"
	"github.com/matheus3301/peerchat/internal/chat"
	"github.com/matheus3301/peerchat/internal/mimeext"
	"github.com/matheus3301/peerchat/internal/transport"
)

// Placeholder replaces payloads that cannot be shown.
const Placeholder = "Peer sent data"

// Classifier turns inbound payloads into chat messages.
type Classifier struct {
	blobs  *blob.Registry
	names  chat.NameFunc
	now    func() time.Time
	logger *zap.Logger
}

// NewClassifier creates a classifier. Binary payloads are registered in blobs;
// names resolves sender labels.
func NewClassifier(blobs *blob.Registry, names chat.NameFunc, logger *zap.Logger) *Classifier {
	if names == nil {
		names = func(id string) string { return id }
	}
	return &Classifier{
		blobs:  blobs,
		names:  names,
		now:    time.Now,
		logger: logger.Named("payload"),
	}
}

// Handle decodes and classifies one frame from peerID. It never fails:
// undecodable frames become a placeholder message.
func (c *Classifier) Handle(peerID string, f transport.Frame) chat.Message {
	p, err := Decode(f)
	if err != nil {
		c.logger.Warn("undecodable payload", zap.String("peer", peerID), zap.Error(err))
		return c.message(peerID, Placeholder)
	}
	return c.Classify(peerID, p)
}

// Classify maps a decoded payload to a message attributed to peerID.
func (c *Classifier) Classify(peerID string, p Payload) chat.Message {
	switch p.Kind {
	case KindFile:
		if p.File == nil {
			return c.message(peerID, Placeholder)
		}
		return c.classifyFile(peerID, *p.File)
	case KindDataURL:
		m := c.message(peerID, p.Text)
		if strings.HasPrefix(p.Text, "data:image/") {
			m.IsImage = true
			return m
		}
		m.Filename = c.stampedName(mimeext.For(mimeext.FromDataURL(p.Text)))
		return m
	case KindText, KindOther:
		return c.message(peerID, p.Text)
	case KindBlob:
		if p.Blob == nil || c.blobs == nil {
			return c.message(peerID, Placeholder)
		}
		return c.classifyBlob(peerID, *p.Blob)
	default:
		return c.message(peerID, Placeholder)
	}
}

func (c *Classifier) classifyFile(peerID string, f FileTransfer) chat.Message {
	name := f.Filename
	if name == "" {
		name = fmt.Sprintf("file_%d", c.now().UnixMilli())
	}
	if !strings.Contains(name, ".") && f.MimeType != "" {
		if ext := mimeext.For(f.MimeType); ext != mimeext.Fallback {
			name += "." + ext
		}
	}

	m := c.message(peerID, f.Data)
	m.Filename = name
	if strings.HasPrefix(f.MimeType, "image/") && strings.HasPrefix(f.Data, "data:image/") {
		m.IsImage = true
	}
	return m
}

func (c *Classifier) classifyBlob(peerID string, b Blob) chat.Message {
	ref := c.blobs.Create(b.Data, b.ContentType)
	m := c.message(peerID, ref)
	if strings.HasPrefix(b.ContentType, "image/") {
		m.IsImage = true
		return m
	}
	m.Filename = c.stampedName(mimeext.For(b.ContentType))
	return m
}

func (c *Classifier) stampedName(ext string) string {
	return fmt.Sprintf("file_%d.%s", c.now().UnixMilli(), ext)
}

func (c *Classifier) message(peerID, content string) chat.Message {
	m := chat.NewMessage(content, c.names(peerID))
	m.Timestamp = c.now()
	return m
}
