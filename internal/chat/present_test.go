package chat

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/matheus3301/peerchat/internal/blob"
)

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestPresentImage(t *testing.T) {
	m := NewMessage(pngDataURL(t, 4, 3), "Alice")
	m.IsImage = true

	p := Present(m, nil)
	if p.Kind != PresentImage {
		t.Fatalf("Kind = %v, want PresentImage", p.Kind)
	}
	if p.Width != 4 || p.Height != 3 || p.Format != "png" {
		t.Errorf("got %dx%d %s, want 4x3 png", p.Width, p.Height, p.Format)
	}
}

func TestPresentBrokenImageDegradesToFile(t *testing.T) {
	m := Message{Content: "data:image/png;base64,bm90IGFuIGltYWdl", IsImage: true, Timestamp: time.UnixMilli(1700000000000)}

	p := Present(m, nil)
	if p.Kind != PresentFile {
		t.Fatalf("Kind = %v, want PresentFile", p.Kind)
	}
	if p.Filename != "image-1700000000000.png" {
		t.Errorf("Filename = %q", p.Filename)
	}
}

func TestPresentRevokedBlobDegradesToFile(t *testing.T) {
	reg := blob.NewRegistry(time.Minute)
	ref := reg.Create([]byte("x"), "image/png")
	reg.Revoke(ref)

	m := Message{Content: ref, IsImage: true, Filename: "cat.png", Timestamp: time.Now()}
	p := Present(m, reg)
	if p.Kind != PresentFile || p.Filename != "cat.png" {
		t.Errorf("got %+v, want file cat.png", p)
	}
}

func TestPresentTextAndFile(t *testing.T) {
	if p := Present(NewMessage("hello", "Bob"), nil); p.Kind != PresentText || p.Text != "hello" {
		t.Errorf("text: got %+v", p)
	}
	m := NewMessage("data:application/pdf;base64,AA==", "Bob")
	m.Filename = "report.pdf"
	if p := Present(m, nil); p.Kind != PresentFile || p.Filename != "report.pdf" {
		t.Errorf("file: got %+v", p)
	}
}

func TestLoad(t *testing.T) {
	data, ct, err := Load("data:text/plain;base64,aGVsbG8=", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" || ct != "text/plain" {
		t.Errorf("got (%q, %q)", data, ct)
	}
	if _, _, err := Load("plain", nil); err == nil {
		t.Error("expected error for non-url content")
	}
}
