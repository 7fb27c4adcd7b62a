package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matheus3301/peerchat/internal/chat"
	"github.com/matheus3301/peerchat/internal/mimeext"
)

var errNotAttachment = errors.New("message is not a file or image")

// SaveMessage writes the file or image carried by m into dir and returns
// the written path. An existing file is never overwritten.
func SaveMessage(m chat.Message, blobs chat.Opener, dir string) (string, error) {
	if !m.IsImage && !m.IsFile() {
		return "", errNotAttachment
	}
	data, contentType, err := chat.Load(m.Content, blobs)
	if err != nil {
		return "", fmt.Errorf("load attachment: %w", err)
	}

	name := filepath.Base(filepath.Clean("/" + m.Filename))
	if name == "/" || name == "." {
		kind := "file"
		if m.IsImage {
			kind = "image"
		}
		name = fmt.Sprintf("%s-%d.%s", kind, m.Timestamp.UnixMilli(), mimeext.For(contentType))
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; ; i++ {
		path := filepath.Join(dir, name)
		if i > 0 {
			path = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("save %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("write %s: %w", path, err)
		}
		return path, f.Close()
	}
}

// expandHome resolves a leading ~ in p.
func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
