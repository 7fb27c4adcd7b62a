package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.peerchat/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`
	Username       string `toml:"username"`
	Room           string `toml:"room"`

	Signaling Signaling `toml:"signaling"`
	Broker    Broker    `toml:"broker"`
	ICE       ICE       `toml:"ice"`
	Media     Media     `toml:"media"`
	Downloads Downloads `toml:"downloads"`
}

// Signaling locates the room server.
type Signaling struct {
	URL string `toml:"url"`
	// RefreshInterval re-lists room members periodically. Zero disables it.
	RefreshInterval Duration `toml:"refresh_interval"`
}

// Broker locates the peer broker.
type Broker struct {
	URL string `toml:"url"`
	Key string `toml:"key"`
}

// ICE lists STUN/TURN server URLs.
type ICE struct {
	Servers []string `toml:"servers"`
}

// Media configures file-backed capture sources.
type Media struct {
	Cameras    []Camera `toml:"cameras"`
	Microphone string   `toml:"microphone"`
	Display    string   `toml:"display"`
}

// Camera is one configured video input.
type Camera struct {
	ID         string `toml:"id"`
	Label      string `toml:"label"`
	Path       string `toml:"path"`
	FacingMode string `toml:"facing_mode"`
}

// Downloads configures where received files are saved.
type Downloads struct {
	Dir string `toml:"dir"`
}

// Duration is a time.Duration written as a string such as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultSession: "main",
		Signaling: Signaling{
			URL: "http://localhost:7890",
		},
		Broker: Broker{
			URL: "https://0.peerjs.com/",
			Key: "peerjs",
		},
		ICE: ICE{
			Servers: []string{"stun:stun.l.google.com:19302"},
		},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
// Fields absent from the file keep their Default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault reads config from path, falling back to Default when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
