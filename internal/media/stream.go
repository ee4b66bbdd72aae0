package media

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
)

// streamID groups the local tracks so the remote side sees them as one
// media stream.
const streamID = "video-room"

// Stream is the set of local outgoing tracks plus the pumps feeding them.
// It stands in for the browser's captured camera/microphone stream: here
// "the environment" is a VP8/IVF file and an Opus/Ogg file.
type Stream struct {
	tracks    []*Track
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open acquires local media from the given files. Both sources are
// required, mirroring an audio+video capture request; a missing or
// malformed file fails the whole acquisition so the caller can surface it
// and stay out of the room.
func Open(videoFile, audioFile string) (*Stream, error) {
	if videoFile == "" || audioFile == "" {
		return nil, fmt.Errorf("media sources not configured: need --video (IVF) and --audio (Ogg)")
	}

	frameDuration, err := probeIVF(videoFile)
	if err != nil {
		return nil, fmt.Errorf("open video source: %w", err)
	}
	if err := probeOgg(audioFile); err != nil {
		return nil, fmt.Errorf("open audio source: %w", err)
	}

	videoTrack, err := NewTrack(webrtc.RTPCodecTypeVideo, "video", streamID)
	if err != nil {
		return nil, err
	}
	audioTrack, err := NewTrack(webrtc.RTPCodecTypeAudio, "audio", streamID)
	if err != nil {
		return nil, err
	}

	s := NewStream(videoTrack, audioTrack)

	s.wg.Add(2)
	go s.pumpVideo(videoFile, videoTrack, frameDuration)
	go s.pumpAudio(audioFile, audioTrack)

	return s, nil
}

// NewStream wraps already-constructed tracks without starting any pumps.
func NewStream(tracks ...*Track) *Stream {
	return &Stream{
		tracks: tracks,
		done:   make(chan struct{}),
	}
}

// Tracks returns the local tracks, for attachment to a peer connection and
// to the preview surface.
func (s *Stream) Tracks() []*Track {
	return s.tracks
}

// ToggleMute flips the enabled flag on every audio track and reports
// whether audio is now muted. Tracks stay attached either way.
func (s *Stream) ToggleMute() bool {
	return s.toggle(webrtc.RTPCodecTypeAudio)
}

// ToggleVideo flips the enabled flag on every video track and reports
// whether video is now off.
func (s *Stream) ToggleVideo() bool {
	return s.toggle(webrtc.RTPCodecTypeVideo)
}

func (s *Stream) toggle(kind webrtc.RTPCodecType) bool {
	disabled := false
	for _, t := range s.tracks {
		if t.Kind() != kind {
			continue
		}
		t.SetEnabled(!t.Enabled())
		disabled = !t.Enabled()
	}
	return disabled
}

// Close stops the sample pumps and waits for them to finish. Safe to call
// more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}
