package engine

import (
	pion "github.com/pion/webrtc/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// controlChannelLabel names the data channel used for in-call signaling
// between the two peers: name exchange, media-state announcements, and a
// goodbye that beats the relay's member-left notification.
const controlChannelLabel = "control"

const (
	ctrlHello      = "hello"
	ctrlMediaState = "media-state"
	ctrlBye        = "bye"
)

// controlMessage frames all control-channel traffic.
type controlMessage struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

type helloPayload struct {
	Name string `msgpack:"name"`
}

type mediaStatePayload struct {
	Muted    bool `msgpack:"muted"`
	VideoOff bool `msgpack:"videoOff"`
}

func encodeControl(msgType string, payload any) ([]byte, error) {
	msg := controlMessage{Type: msgType}
	if payload != nil {
		b, err := msgpack.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = b
	}
	return msgpack.Marshal(msg)
}

// attachControlLocked wires up the control channel handlers. Caller holds
// e.mu.
func (e *Engine) attachControlLocked(dc *pion.DataChannel) {
	e.control = dc

	dc.OnOpen(func() {
		e.sendControl(ctrlHello, helloPayload{Name: e.name})
		e.announceMediaState()
	})

	dc.OnMessage(func(raw pion.DataChannelMessage) {
		var msg controlMessage
		if err := msgpack.Unmarshal(raw.Data, &msg); err != nil {
			e.log.Warn("undecodable control message", "err", err)
			return
		}

		switch msg.Type {
		case ctrlHello:
			var hello helloPayload
			if err := msgpack.Unmarshal(msg.Payload, &hello); err != nil {
				return
			}
			e.mu.Lock()
			if e.session != nil && e.session.RemoteName == "" {
				e.session.RemoteName = hello.Name
			}
			e.mu.Unlock()
			e.emit(Event{Kind: EventPeerJoined, PeerName: hello.Name})

		case ctrlMediaState:
			var state mediaStatePayload
			if err := msgpack.Unmarshal(msg.Payload, &state); err != nil {
				return
			}
			e.emit(Event{Kind: EventPeerMediaState, Muted: state.Muted, VideoOff: state.VideoOff})

		case ctrlBye:
			e.log.Info("peer said goodbye")
			e.mu.Lock()
			name := ""
			if e.session != nil {
				name = e.session.RemoteName
			}
			e.mu.Unlock()
			e.emit(Event{Kind: EventPeerLeft, PeerName: name})
		}
	})
}

// sendControl pushes one control message if the channel is open. Best
// effort, like everything on the media path.
func (e *Engine) sendControl(msgType string, payload any) {
	e.mu.Lock()
	dc := e.control
	e.mu.Unlock()

	if dc == nil || dc.ReadyState() != pion.DataChannelStateOpen {
		return
	}

	b, err := encodeControl(msgType, payload)
	if err != nil {
		e.log.Warn("failed to encode control message", "type", msgType, "err", err)
		return
	}
	if err := dc.Send(b); err != nil {
		e.log.Debug("control send failed", "type", msgType, "err", err)
	}
}

// announceMediaState tells the peer our current mute/video flags.
func (e *Engine) announceMediaState() {
	e.mu.Lock()
	stream := e.stream
	e.mu.Unlock()
	if stream == nil {
		return
	}

	state := mediaStatePayload{}
	for _, t := range stream.Tracks() {
		switch t.Kind() {
		case pion.RTPCodecTypeAudio:
			state.Muted = !t.Enabled()
		case pion.RTPCodecTypeVideo:
			state.VideoOff = !t.Enabled()
		}
	}
	e.sendControl(ctrlMediaState, state)
}

// sendByeLocked announces departure over the control channel. Caller holds
// e.mu.
func (e *Engine) sendByeLocked() {
	dc := e.control
	if dc == nil || dc.ReadyState() != pion.DataChannelStateOpen {
		return
	}
	if b, err := encodeControl(ctrlBye, nil); err == nil {
		dc.Send(b)
	}
}
