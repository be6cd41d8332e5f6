// Package streams implements the Ampctl stream subsystem.
// Each stream type (Pandora, AirPlay, Spotify, etc.) is a Streamer.
// The Manager owns all Streamers and coordinates their lifecycle.
package streams

import (
	"context"
	"errors"

	"github.com/stagehand-audio/ampctld/internal/models"
)

// ErrNotSupported is returned when a Plexamp stream is activated, and
// (wrapped) by Manager.SendCmd for a command the stream type does not support.
var ErrNotSupported = errors.New("stream type not supported")

// Streamer is the interface every stream type must implement.
// Implementations are NOT required to be thread-safe internally;
// the Manager serializes calls to each Streamer.
type Streamer interface {
	// Activate allocates a virtual source and starts the subprocess.
	// vsrc is the ALSA loopback index (0-11).
	// configDir is the per-stream config path (~/.config/ampctl/srcs/v{vsrc}/).
	Activate(ctx context.Context, vsrc int, configDir string) error

	// Deactivate stops the subprocess and frees resources.
	// Does NOT free the vsrc â€” caller (Manager) does that.
	Deactivate(ctx context.Context) error

	// Connect routes audio from vsrc to physSrc via alsaloop.
	// Called after Activate when a source is assigned this stream.
	Connect(ctx context.Context, physSrc int) error

	// Disconnect stops the alsaloop connection.
	// Stream subprocess keeps running (persistent streams).
	Disconnect(ctx context.Context) error

	// SendCmd delivers a control command to the stream.
	// Common: "play", "pause", "next", "prev"
	// Stream-specific: "love", "ban", "station=<id>", etc.
	SendCmd(ctx context.Context, cmd string) error

	// SupportsCmd reports whether cmd is meaningful for this stream type.
	// The Manager uses this to reject a command before it ever reaches
	// SendCmd, rather than relying on each Streamer to silently no-op.
	SupportsCmd(cmd string) bool

	// Info returns the current playback metadata (thread-safe).
	Info() models.StreamInfo

	// IsPersistent returns true if the stream subprocess should keep
	// running even when not physically routed to a source.
	IsPersistent() bool

	// Type returns the stream type string ("pandora", "airplay", etc.)
	Type() string
}

// basicTransportCmds are the playback commands shared by most media streams.
var basicTransportCmds = map[string]bool{
	"play": true, "pause": true, "stop": true, "next": true, "prev": true,
}

// supportsBasicTransport reports whether cmd is one of the common
// play/pause/stop/next/prev transport commands.
func supportsBasicTransport(cmd string) bool {
	return basicTransportCmds[cmd]
}

// StreamState tracks a Streamer's runtime state within the Manager.
type StreamState struct {
	Streamer Streamer
	StreamID int
	VSRC     int // -1 if not activated
	PhysSrc  int // -1 if not connected
	Active   bool
}
