// Package media owns the session's local capture tracks. The actual
// capture pipeline (camera/microphone devices, encoders) lives outside
// and feeds encoded samples in through the handle.
package media

import (
	"sync"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"

	"github.com/peercall/peercall/internal/session"
)

// Constraints selects which capture tracks a session asks for.
type Constraints struct {
	Audio bool
	Video bool
}

// Handle owns the session's local tracks. A disabled track swallows
// its samples, so the remote side goes silent or black without any
// renegotiation.
type Handle struct {
	mu           sync.Mutex
	audio        *webrtc.TrackLocalStaticSample
	video        *webrtc.TrackLocalStaticSample
	audioEnabled bool
	videoEnabled bool
	closed       bool
}

// Acquire creates the local tracks for the requested constraints.
// Failure here is fatal to starting a session; there is no retry.
func Acquire(c Constraints) (*Handle, error) {
	h := &Handle{audioEnabled: c.Audio, videoEnabled: c.Video}

	if c.Audio {
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio", "peercall",
		)
		if err != nil {
			return nil, session.NewError("acquire microphone track", err)
		}
		h.audio = track
	}

	if c.Video {
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
			"video", "peercall",
		)
		if err != nil {
			return nil, session.NewError("acquire camera track", err)
		}
		h.video = track
	}

	return h, nil
}

// Tracks returns the tracks to attach to a peer connection.
func (h *Handle) Tracks() []webrtc.TrackLocal {
	var tracks []webrtc.TrackLocal
	if h.audio != nil {
		tracks = append(tracks, h.audio)
	}
	if h.video != nil {
		tracks = append(tracks, h.video)
	}
	return tracks
}

func (h *Handle) SetAudioEnabled(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.audioEnabled = on && h.audio != nil
}

func (h *Handle) SetVideoEnabled(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.videoEnabled = on && h.video != nil
}

func (h *Handle) AudioEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.audioEnabled
}

func (h *Handle) VideoEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.videoEnabled
}

// WriteAudio forwards one encoded audio sample to the peer. Muted or
// closed handles drop it.
func (h *Handle) WriteAudio(sample pionmedia.Sample) error {
	h.mu.Lock()
	ok := h.audioEnabled && !h.closed
	h.mu.Unlock()
	if !ok || h.audio == nil {
		return nil
	}
	return h.audio.WriteSample(sample)
}

// WriteVideo forwards one encoded video sample to the peer. Muted or
// closed handles drop it.
func (h *Handle) WriteVideo(sample pionmedia.Sample) error {
	h.mu.Lock()
	ok := h.videoEnabled && !h.closed
	h.mu.Unlock()
	if !ok || h.video == nil {
		return nil
	}
	return h.video.WriteSample(sample)
}

// Close stops accepting samples. The tracks themselves are released
// with the peer connection that holds them.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.audioEnabled = false
	h.videoEnabled = false
}
