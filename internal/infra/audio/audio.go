// Package audio provides beep-backed sound loaders for the playback engine.
package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/dicebox/internal/app/playback"
)

// Backend names accepted in configuration.
const (
	BackendSpeaker = "speaker"
	BackendSilent  = "silent"
)

// Errors
var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrReleased          = errors.New("sound already released")
)

// Loader decodes audio files under a root directory into playable sounds.
type Loader struct {
	root       string
	sampleRate beep.SampleRate
	quality    int
	newSound   func(buf *beep.Buffer) playback.Sound
	close      func()
}

// NewLoader creates a loader for the named backend from free-form settings.
func NewLoader(backend, root string, settings map[string]any) (*Loader, error) {
	zlog.Debug().Msgf("audio: creating loader: backend=%s root=%s settings=%+v", backend, root, settings)
	switch backend {
	case BackendSpeaker:
		var s SpeakerSettings
		if err := decodeSettings(settings, &s); err != nil {
			return nil, errors.Wrap(err, "speaker backend")
		}
		return newSpeakerLoader(root, s)
	case BackendSilent:
		var s SilentSettings
		if err := decodeSettings(settings, &s); err != nil {
			return nil, errors.Wrap(err, "silent backend")
		}
		return newSilentLoader(root, s), nil
	default:
		return nil, errors.Newf("unsupported audio backend: %s", backend)
	}
}

func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

// Load decodes the file at path (relative to the root) fully into memory.
func (l *Loader) Load(ctx context.Context, path string) (playback.Sound, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(l.root, filepath.FromSlash(path))
	}
	buf, err := l.decode(full)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}
	return l.newSound(buf), nil
}

// Close releases the output device, if any.
func (l *Loader) Close() {
	if l.close != nil {
		l.close()
	}
}

// decode reads an mp3 or wav file and resamples it to the loader's rate.
func (l *Loader) decode(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		_ = f.Close()
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", filepath.Ext(path))
	}
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "failed to decode")
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if format.SampleRate != l.sampleRate {
		src = beep.Resample(l.quality, format.SampleRate, l.sampleRate, streamer)
	}

	buf := beep.NewBuffer(beep.Format{
		SampleRate:  l.sampleRate,
		NumChannels: format.NumChannels,
		Precision:   format.Precision,
	})
	buf.Append(src)
	if err := streamer.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to decode")
	}
	return buf, nil
}
