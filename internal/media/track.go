package media

import (
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// Track is a local outgoing media track with an in-place enabled flag.
// Disabling a track silences it without removing it from the peer
// connection, so toggling never triggers renegotiation.
type Track struct {
	local   *webrtc.TrackLocalStaticSample
	kind    webrtc.RTPCodecType
	enabled atomic.Bool
}

// NewTrack creates an enabled local track of the given kind. Video tracks
// carry VP8, audio tracks Opus.
func NewTrack(kind webrtc.RTPCodecType, id, streamID string) (*Track, error) {
	mimeType := webrtc.MimeTypeVP8
	if kind == webrtc.RTPCodecTypeAudio {
		mimeType = webrtc.MimeTypeOpus
	}

	local, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mimeType}, id, streamID)
	if err != nil {
		return nil, err
	}

	t := &Track{local: local, kind: kind}
	t.enabled.Store(true)
	return t, nil
}

// Local exposes the underlying pion track for AddTrack.
func (t *Track) Local() *webrtc.TrackLocalStaticSample {
	return t.local
}

// Kind returns whether this is an audio or video track.
func (t *Track) Kind() webrtc.RTPCodecType {
	return t.kind
}

// Enabled reports whether samples are currently being sent.
func (t *Track) Enabled() bool {
	return t.enabled.Load()
}

// SetEnabled flips the flag. The sample pump keeps pacing either way; it
// just skips writes while disabled.
func (t *Track) SetEnabled(v bool) {
	t.enabled.Store(v)
}

// writeSample forwards a sample to the peer connection unless the track is
// disabled.
func (t *Track) writeSample(s media.Sample) error {
	if !t.enabled.Load() {
		return nil
	}
	return t.local.WriteSample(s)
}
