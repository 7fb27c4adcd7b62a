package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/peerchat/internal/blob"
	"github.com/matheus3301/peerchat/internal/transport"
)

func jsonFrame(t *testing.T, v any) transport.Frame {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return transport.Frame{Data: b}
}

func TestDecodeKinds(t *testing.T) {
	tests := []struct {
		name  string
		frame transport.Frame
		want  Kind
	}{
		{"file object", jsonFrame(t, map[string]any{"type": "file", "filename": "a", "data": "x"}), KindFile},
		{"data url", jsonFrame(t, "data:text/plain,hi"), KindDataURL},
		{"text", jsonFrame(t, "hello"), KindText},
		{"raw text", transport.TextFrame("not json"), KindText},
		{"binary", transport.BinaryFrame([]byte{0, 1, 2}), KindBlob},
		{"other object", jsonFrame(t, map[string]any{"type": "ping"}), KindOther},
		{"number", jsonFrame(t, 42), KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.frame)
			if err != nil {
				t.Fatal(err)
			}
			if p.Kind != tt.want {
				t.Errorf("Kind = %s, want %s", p.Kind, tt.want)
			}
		})
	}
}

func TestDecodeMalformedFile(t *testing.T) {
	_, err := Decode(jsonFrame(t, map[string]any{"type": "file", "filename": 5, "data": []int{1}}))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func newClassifier(t *testing.T) (*Classifier, *blob.Registry) {
	t.Helper()
	reg := blob.NewRegistry(time.Minute)
	t.Cleanup(reg.Close)
	names := func(id string) string {
		if id == "p1" {
			return "Alice"
		}
		return id
	}
	c := NewClassifier(reg, names, zap.NewNop())
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c, reg
}

func TestClassifyFileAppendsExtension(t *testing.T) {
	c, _ := newClassifier(t)

	tests := []struct {
		name     string
		file     map[string]any
		wantName string
		wantImg  bool
	}{
		{"known type", map[string]any{"type": "file", "filename": "report", "mimeType": "application/pdf", "data": "data:application/pdf;base64,AA=="}, "report.pdf", false},
		{"has extension", map[string]any{"type": "file", "filename": "a.tar.gz", "mimeType": "application/gzip", "data": "data:application/gzip;base64,AA=="}, "a.tar.gz", false},
		{"unknown type", map[string]any{"type": "file", "filename": "blob", "mimeType": "application/x-made-up", "data": "data:application/x-made-up;base64,AA=="}, "blob", false},
		{"no filename", map[string]any{"type": "file", "mimeType": "text/plain", "data": "data:text/plain;base64,AA=="}, "file_1700000000000.txt", false},
		{"image", map[string]any{"type": "file", "filename": "cat.png", "mimeType": "image/png", "data": "data:image/png;base64,AA=="}, "cat.png", true},
		{"image type, non-image data", map[string]any{"type": "file", "filename": "cat", "mimeType": "image/png", "data": "https://example.com/cat"}, "cat.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := c.Handle("p1", jsonFrame(t, tt.file))
			if m.Filename != tt.wantName {
				t.Errorf("Filename = %q, want %q", m.Filename, tt.wantName)
			}
			if m.IsImage != tt.wantImg {
				t.Errorf("IsImage = %v, want %v", m.IsImage, tt.wantImg)
			}
			if m.Sender != "Alice" {
				t.Errorf("Sender = %q, want Alice", m.Sender)
			}
		})
	}
}

func TestClassifyDataURL(t *testing.T) {
	c, _ := newClassifier(t)

	img := c.Handle("p2", jsonFrame(t, "data:image/png;base64,iVBORw0KGgo="))
	if !img.IsImage || img.IsFile() {
		t.Errorf("image data url classified as %+v", img)
	}
	if img.Sender != "p2" {
		t.Errorf("Sender = %q, want peer id fallback", img.Sender)
	}

	doc := c.Handle("p2", jsonFrame(t, "data:application/pdf;base64,JVBERi0="))
	if doc.IsImage || doc.Filename != "file_1700000000000.pdf" {
		t.Errorf("pdf data url classified as %+v", doc)
	}

	unknown := c.Handle("p2", jsonFrame(t, "data:application/x-thing,abc"))
	if unknown.Filename != "file_1700000000000.bin" {
		t.Errorf("Filename = %q", unknown.Filename)
	}
}

func TestClassifyText(t *testing.T) {
	c, _ := newClassifier(t)
	m := c.Handle("p1", jsonFrame(t, "hello"))
	if m.Content != "hello" || m.IsImage || m.IsFile() || m.Sender != "Alice" {
		t.Errorf("got %+v", m)
	}
}

func TestClassifyBlob(t *testing.T) {
	c, reg := newClassifier(t)

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	img := c.Handle("p1", transport.BinaryFrame(buf.Bytes()))
	if !img.IsImage || !blob.IsRef(img.Content) {
		t.Errorf("png blob classified as %+v", img)
	}
	if _, ct, err := reg.Open(img.Content); err != nil || ct != "image/png" {
		t.Errorf("Open = (%q, %v)", ct, err)
	}

	pdf := c.Handle("p1", transport.BinaryFrame([]byte("%PDF-1.4\n%...")))
	if pdf.IsImage || pdf.Filename != "file_1700000000000.pdf" {
		t.Errorf("pdf blob classified as %+v", pdf)
	}
}

func TestClassifyOtherAndMalformed(t *testing.T) {
	c, _ := newClassifier(t)

	other := c.Handle("p1", jsonFrame(t, map[string]any{"a": 1}))
	if other.Content != `{"a":1}` {
		t.Errorf("Content = %q", other.Content)
	}

	bad := c.Handle("p1", transport.TextFrame(`{"type":"file","filename":7}`))
	if bad.Content != Placeholder {
		t.Errorf("Content = %q, want placeholder", bad.Content)
	}
}

func TestEncodeFileRoundTrip(t *testing.T) {
	frame, ft, err := EncodeFile("notes", "text/plain; charset=utf-8", []byte("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if ft.MimeType != "text/plain" || !strings.HasPrefix(ft.Data, "data:text/plain") {
		t.Errorf("ft = %+v", ft)
	}

	c, _ := newClassifier(t)
	m := c.Handle("p1", frame)
	if m.Filename != "notes.txt" {
		t.Errorf("Filename = %q, want notes.txt", m.Filename)
	}
}

func TestEncodeFileDetectsType(t *testing.T) {
	_, ft, err := EncodeFile("x", "", []byte("%PDF-1.4\n"))
	if err != nil {
		t.Fatal(err)
	}
	if ft.MimeType != "application/pdf" {
		t.Errorf("MimeType = %q", ft.MimeType)
	}
}

func TestEncodeText(t *testing.T) {
	f, err := EncodeText("hello")
	if err != nil {
		t.Fatal(err)
	}
	p, _ := Decode(f)
	if p.Kind != KindText || p.Text != "hello" {
		t.Errorf("got %+v", p)
	}
}
