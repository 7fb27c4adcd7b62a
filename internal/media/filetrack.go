package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"go.uber.org/zap"
)

// fileTrack streams an IVF (video) or Ogg/Opus (audio) file into a pion
// sample track.
type fileTrack struct {
	ended
	id     string
	kind   Kind
	label  string
	path   string
	loop   bool
	local  *webrtc.TrackLocalStaticSample
	logger *zap.Logger
}

func (t *fileTrack) ID() string               { return t.id }
func (t *fileTrack) Kind() Kind               { return t.kind }
func (t *fileTrack) Label() string            { return t.label }
func (t *fileTrack) Local() webrtc.TrackLocal { return t.local }
func (t *fileTrack) Stop()                    { t.finish() }

var ivfCodecs = map[string]string{
	"VP80": webrtc.MimeTypeVP8,
	"VP90": webrtc.MimeTypeVP9,
	"AV01": webrtc.MimeTypeAV1,
}

// openVideoTrack validates the IVF header of path and starts streaming it.
func openVideoTrack(path, label, streamID string, loop bool, logger *zap.Logger) (*fileTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermission, err)
	}
	reader, header, err := ivfreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read ivf header %s: %w", path, err)
	}
	mimeType, ok := ivfCodecs[header.FourCC]
	if !ok {
		_ = f.Close()
		return nil, fmt.Errorf("unsupported ivf codec %q in %s", header.FourCC, path)
	}

	t := &fileTrack{
		ended:  newEnded(),
		id:     uuid.NewString(),
		kind:   KindVideo,
		label:  label,
		path:   path,
		loop:   loop,
		logger: logger,
	}
	t.local, err = webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: mimeType}, t.id, streamID)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create video track: %w", err)
	}

	frameDuration := time.Second / 30
	if header.TimebaseDenominator > 0 && header.TimebaseNumerator > 0 {
		frameDuration = time.Duration(float64(time.Second) * float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator))
	}

	go t.playIVF(f, reader, frameDuration)
	return t, nil
}

func (t *fileTrack) playIVF(f *os.File, reader *ivfreader.IVFReader, frameDuration time.Duration) {
	defer func() { _ = f.Close() }()
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-t.close:
			return
		case <-ticker.C:
		}

		frame, _, err := reader.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			if !t.loop {
				t.logger.Info("video source finished", zap.String("track", t.id), zap.String("path", t.path))
				t.finish()
				return
			}
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				t.logger.Warn("rewind video source", zap.Error(err))
				t.finish()
				return
			}
			if reader, _, err = ivfreader.NewWith(f); err != nil {
				t.logger.Warn("reopen video source", zap.Error(err))
				t.finish()
				return
			}
			continue
		}
		if err != nil {
			t.logger.Warn("read video frame", zap.Error(err), zap.String("path", t.path))
			t.finish()
			return
		}
		if err := t.local.WriteSample(pionmedia.Sample{Data: frame, Duration: frameDuration}); err != nil {
			t.logger.Debug("write video sample", zap.Error(err))
		}
	}
}

const oggPageDuration = 20 * time.Millisecond

// openAudioTrack validates the Ogg header of path and starts streaming it.
func openAudioTrack(path, label, streamID string, logger *zap.Logger) (*fileTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermission, err)
	}
	reader, _, err := oggreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read ogg header %s: %w", path, err)
	}

	t := &fileTrack{
		ended:  newEnded(),
		id:     uuid.NewString(),
		kind:   KindAudio,
		label:  label,
		path:   path,
		loop:   true,
		logger: logger,
	}
	t.local, err = webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, t.id, streamID)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create audio track: %w", err)
	}

	go t.playOgg(f, reader)
	return t, nil
}

func (t *fileTrack) playOgg(f *os.File, reader *oggreader.OggReader) {
	defer func() { _ = f.Close() }()
	ticker := time.NewTicker(oggPageDuration)
	defer ticker.Stop()

	var lastGranule uint64
	for {
		select {
		case <-t.close:
			return
		case <-ticker.C:
		}

		page, header, err := reader.ParseNextPage()
		if errors.Is(err, io.EOF) {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				t.finish()
				return
			}
			if reader, _, err = oggreader.NewWith(f); err != nil {
				t.finish()
				return
			}
			lastGranule = 0
			continue
		}
		if err != nil {
			t.logger.Warn("read audio page", zap.Error(err), zap.String("path", t.path))
			t.finish()
			return
		}

		samples := header.GranulePosition - lastGranule
		lastGranule = header.GranulePosition
		duration := time.Duration(float64(samples) / 48000 * float64(time.Second))
		if err := t.local.WriteSample(pionmedia.Sample{Data: page, Duration: duration}); err != nil {
			t.logger.Debug("write audio sample", zap.Error(err))
		}
	}
}
