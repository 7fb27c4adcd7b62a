package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Constraints selects a camera. An empty DeviceID picks by FacingMode, then
// falls back to the first camera.
type Constraints struct {
	DeviceID   string
	FacingMode string
	Audio      bool
}

// DeviceInfo describes a video input for the camera picker.
type DeviceInfo struct {
	ID    string
	Label string
}

// Devices acquires local media.
type Devices interface {
	UserMedia(ctx context.Context, c Constraints) (*Stream, error)
	DisplayMedia(ctx context.Context) (*Stream, error)
	VideoInputs() []DeviceInfo
}

// Camera is a file-backed video input.
type Camera struct {
	ID         string
	Label      string
	Path       string
	FacingMode string
}

// FileDevices serves cameras, a microphone and a display source from files.
type FileDevices struct {
	cameras    []Camera
	microphone string
	display    string
	logger     *zap.Logger
}

// NewFileDevices creates a device set. Empty paths disable the source.
func NewFileDevices(cameras []Camera, microphone, display string, logger *zap.Logger) *FileDevices {
	cams := make([]Camera, 0, len(cameras))
	for i, c := range cameras {
		if c.Path == "" {
			continue
		}
		c.Path = expandHome(c.Path)
		if c.ID == "" {
			c.ID = fmt.Sprintf("camera%d", i)
		}
		if c.Label == "" {
			c.Label = filepath.Base(c.Path)
		}
		cams = append(cams, c)
	}
	return &FileDevices{
		cameras:    cams,
		microphone: expandHome(microphone),
		display:    expandHome(display),
		logger:     logger.Named("media"),
	}
}

// VideoInputs lists configured cameras.
func (d *FileDevices) VideoInputs() []DeviceInfo {
	out := make([]DeviceInfo, 0, len(d.cameras))
	for _, c := range d.cameras {
		out = append(out, DeviceInfo{ID: c.ID, Label: c.Label})
	}
	return out
}

func (d *FileDevices) pickCamera(c Constraints) (Camera, bool) {
	if len(d.cameras) == 0 {
		return Camera{}, false
	}
	for _, cam := range d.cameras {
		if c.DeviceID != "" && cam.ID == c.DeviceID {
			return cam, true
		}
	}
	if c.FacingMode != "" {
		for _, cam := range d.cameras {
			if strings.EqualFold(cam.FacingMode, c.FacingMode) {
				return cam, true
			}
		}
	}
	return d.cameras[0], true
}

// UserMedia opens a looping camera track and, when requested and
// configured, a microphone track.
func (d *FileDevices) UserMedia(ctx context.Context, c Constraints) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cam, ok := d.pickCamera(c)
	if !ok {
		return nil, ErrNoDevice
	}
	streamID := uuid.NewString()
	video, err := openVideoTrack(cam.Path, cam.Label, streamID, true, d.logger)
	if err != nil {
		return nil, err
	}
	tracks := []Track{video}
	if c.Audio && d.microphone != "" {
		audio, err := openAudioTrack(d.microphone, "microphone", streamID, d.logger)
		if err != nil {
			video.Stop()
			return nil, err
		}
		tracks = append(tracks, audio)
	}
	d.logger.Info("camera acquired", zap.String("device", cam.ID), zap.Int("tracks", len(tracks)))
	return &Stream{id: streamID, tracks: tracks}, nil
}

// DisplayMedia opens the display source. It plays once; reaching the end of
// the file ends the track, like a user pressing "stop sharing".
func (d *FileDevices) DisplayMedia(ctx context.Context) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.display == "" {
		return nil, ErrNoDevice
	}
	streamID := uuid.NewString()
	video, err := openVideoTrack(d.display, "screen:"+filepath.Base(d.display), streamID, false, d.logger)
	if err != nil {
		return nil, err
	}
	d.logger.Info("display acquired", zap.String("path", d.display))
	return &Stream{id: streamID, tracks: []Track{video}}, nil
}

func expandHome(p string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return p
}
