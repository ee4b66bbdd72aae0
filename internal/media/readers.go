package media

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

// Opus in Ogg is sampled at 48 kHz; granule positions count those samples.
const oggSampleRate = 48000

// probeIVF validates the video file and returns the per-frame duration from
// the container timebase.
func probeIVF(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	_, header, err := ivfreader.NewWith(f)
	if err != nil {
		return 0, err
	}
	if header.TimebaseDenominator == 0 {
		return 0, errors.New("invalid IVF timebase")
	}

	return time.Millisecond * time.Duration(
		float32(header.TimebaseNumerator)/float32(header.TimebaseDenominator)*1000), nil
}

// probeOgg validates the audio file header.
func probeOgg(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, _, err = oggreader.NewWith(f)
	return err
}

// pumpVideo sends one IVF frame per timebase tick, looping at EOF.
//
// A ticker rather than sleeping between frames avoids accumulating skew
// while parsing.
func (s *Stream) pumpVideo(path string, track *Track, frameDuration time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		f, err := os.Open(path)
		if err != nil {
			slog.Error("video source vanished", "path", path, "err", err)
			return
		}

		ivf, _, err := ivfreader.NewWith(f)
		if err != nil {
			f.Close()
			slog.Error("video source corrupted", "path", path, "err", err)
			return
		}

		for {
			select {
			case <-s.done:
				f.Close()
				return
			case <-ticker.C:
			}

			frame, _, err := ivf.ParseNextFrame()
			if errors.Is(err, io.EOF) {
				break // loop playback
			}
			if err != nil {
				slog.Warn("video frame parse error", "err", err)
				break
			}

			if err := track.writeSample(media.Sample{Data: frame, Duration: frameDuration}); err != nil {
				slog.Warn("video sample write error", "err", err)
			}
		}
		f.Close()
	}
}

// pumpAudio sends Ogg pages paced by their granule positions, looping at
// EOF.
func (s *Stream) pumpAudio(path string, track *Track) {
	defer s.wg.Done()

	// Opus pages are near-uniformly 20ms in our sources; the per-page
	// duration still comes from the granule delta.
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		f, err := os.Open(path)
		if err != nil {
			slog.Error("audio source vanished", "path", path, "err", err)
			return
		}

		ogg, _, err := oggreader.NewWith(f)
		if err != nil {
			f.Close()
			slog.Error("audio source corrupted", "path", path, "err", err)
			return
		}

		var lastGranule uint64
		for {
			select {
			case <-s.done:
				f.Close()
				return
			case <-ticker.C:
			}

			page, header, err := ogg.ParseNextPage()
			if errors.Is(err, io.EOF) {
				break // loop playback
			}
			if err != nil {
				slog.Warn("audio page parse error", "err", err)
				break
			}

			sampleCount := float64(header.GranulePosition - lastGranule)
			lastGranule = header.GranulePosition
			duration := time.Duration((sampleCount/oggSampleRate)*1000) * time.Millisecond

			if err := track.writeSample(media.Sample{Data: page, Duration: duration}); err != nil {
				slog.Warn("audio sample write error", "err", err)
			}
		}
		f.Close()
	}
}
