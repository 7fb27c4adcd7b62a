package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// LockHeldError is returned when another client holds the session lock.
type LockHeldError struct {
	PID    int
	PeerID string
	Path   string
}

func (e *LockHeldError) Error() string {
	if e.PeerID != "" {
		return fmt.Sprintf("session in use by PID %d as peer %s (%s)", e.PID, e.PeerID, e.Path)
	}
	return fmt.Sprintf("session lock held by PID %d (%s)", e.PID, e.Path)
}

// Info is what the holder records in the lock file.
type Info struct {
	PID     int
	Started time.Time
	PeerID  string
}

// Lock represents an acquired session lock file.
type Lock struct {
	mu   sync.Mutex
	file *os.File
	path string
	info Info
}

// Acquire attempts to acquire an exclusive lock on the session directory.
// Returns LockHeldError if another process already holds it.
func Acquire(sessionDir string) (*Lock, error) {
	lockPath := filepath.Join(sessionDir, "LOCK")

	if err := os.MkdirAll(sessionDir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		// Read the holder's record for diagnostics.
		data, _ := os.ReadFile(lockPath)
		info := parse(string(data))
		_ = f.Close()
		return nil, &LockHeldError{PID: info.PID, PeerID: info.PeerID, Path: lockPath}
	}

	l := &Lock{
		file: f,
		path: lockPath,
		info: Info{PID: os.Getpid(), Started: time.Now().UTC().Truncate(time.Second)},
	}
	if err := l.write(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return l, nil
}

// SetPeer records the peer id the session registered under.
func (l *Lock) SetPeer(peerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	l.info.PeerID = peerID
	return l.writeLocked()
}

func (l *Lock) write() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeLocked()
}

func (l *Lock) writeLocked() error {
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	if _, err := l.file.Seek(0, 0); err != nil {
		return err
	}
	content := fmt.Sprintf("pid=%d\ntime=%s\n", l.info.PID, l.info.Started.Format(time.RFC3339))
	if l.info.PeerID != "" {
		content += "peer=" + l.info.PeerID + "\n"
	}
	_, err := l.file.WriteString(content)
	return err
}

// Release releases the lock. Safe to call on nil receiver.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	// Remove lock file before closing to avoid stale files.
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// Read returns the record of the session's current holder, if any.
func Read(sessionDir string) (Info, error) {
	data, err := os.ReadFile(filepath.Join(sessionDir, "LOCK"))
	if err != nil {
		return Info{}, err
	}
	return parse(string(data)), nil
}

func parse(content string) Info {
	var info Info
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			info.PID, _ = strconv.Atoi(value)
		case "time":
			info.Started, _ = time.Parse(time.RFC3339, value)
		case "peer":
			info.PeerID = value
		}
	}
	return info
}
