package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultSession = "work"
	cfg.Username = "alice"
	cfg.Room = "lobby"
	cfg.Signaling.RefreshInterval = Duration{10 * time.Second}
	cfg.Media.Cameras = []Camera{{ID: "cam0", Label: "Front", Path: "~/cam.ivf", FacingMode: "user"}}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want %q", loaded.DefaultSession, "work")
	}
	if loaded.Username != "alice" || loaded.Room != "lobby" {
		t.Errorf("identity = %q/%q", loaded.Username, loaded.Room)
	}
	if loaded.Signaling.RefreshInterval.Duration != 10*time.Second {
		t.Errorf("RefreshInterval = %v", loaded.Signaling.RefreshInterval)
	}
	if len(loaded.Media.Cameras) != 1 || loaded.Media.Cameras[0].Path != "~/cam.ivf" {
		t.Errorf("Cameras = %+v", loaded.Media.Cameras)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "username = \"bob\"\n\n[signaling]\nurl = \"http://rooms.local:7890\"\nrefresh_interval = \"1m\"\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Signaling.URL != "http://rooms.local:7890" || cfg.Signaling.RefreshInterval.Duration != time.Minute {
		t.Errorf("Signaling = %+v", cfg.Signaling)
	}
	if cfg.Broker.Key != "peerjs" || cfg.DefaultSession != "main" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[signaling]\nrefresh_interval = \"soon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for bad duration")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}

	cfg, err := LoadOrDefault("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.DefaultSession != "main" {
		t.Errorf("DefaultSession = %q", cfg.DefaultSession)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultSession: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
