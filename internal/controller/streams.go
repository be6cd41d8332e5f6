package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/stagehand-audio/ampctld/internal/models"
	"github.com/stagehand-audio/ampctld/internal/streams"
)

// GetStreams returns all streams.
func (c *Controller) GetStreams() []models.Stream {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]models.Stream, len(c.state.Streams))
	copy(result, c.state.Streams)
	return result
}

// GetStream returns a single stream by ID.
func (c *Controller) GetStream(id int) (*models.Stream, *models.AppError) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := findStream(&c.state, id)
	if s == nil {
		return nil, models.ErrNotFound("stream not found")
	}
	cp := *s
	return &cp, nil
}

// CreateStream creates a new stream and returns the updated state.
func (c *Controller) CreateStream(ctx context.Context, req models.StreamCreate) (models.State, *models.AppError) {
	if req.Name == "" {
		return models.State{}, models.ErrInvalidField("name", "stream name is required")
	}
	if appErr := models.ValidateStreamType(req.Type); appErr != nil {
		return models.State{}, appErr
	}

	// Reject stream types whose binary isn't installed on this hardware.
	if c.profile != nil && !c.profile.StreamAvailable(req.Type) {
		return models.State{}, models.ErrUnsupportedCommand(
			fmt.Sprintf("stream type %q is not available on this hardware", req.Type))
	}

	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		f := false
		stream := models.Stream{
			ID:        nextStreamID(s),
			Name:      req.Name,
			Type:      req.Type,
			Config:    req.Config,
			Disabled:  &f,
			Browsable: &f,
		}
		s.Streams = append(s.Streams, stream)
		return nil
	})
}

// SetStream updates a stream by ID.
func (c *Controller) SetStream(ctx context.Context, id int, upd models.StreamUpdate) (models.State, *models.AppError) {
	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		stream := findStream(s, id)
		if stream == nil {
			return models.ErrNotFound("stream not found")
		}
		if upd.Name != nil {
			stream.Name = *upd.Name
		}
		if upd.Config != nil {
			if stream.Config == nil {
				stream.Config = make(map[string]interface{})
			}
			for k, v := range upd.Config {
				stream.Config[k] = v
			}
		}
		return nil
	})
}

// DeleteStream removes a stream by ID. A stream currently bound to a
// source cannot be deleted — the caller must rebind the source first.
func (c *Controller) DeleteStream(ctx context.Context, id int) (models.State, *models.AppError) {
	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		for _, src := range s.Sources {
			if streamID, ok := parseStreamInput(src.Input); ok && streamID == id {
				return models.ErrInUse(fmt.Sprintf("stream %d is bound to source %d", id, src.ID))
			}
		}
		for i, st := range s.Streams {
			if st.ID == id {
				s.Streams = append(s.Streams[:i], s.Streams[i+1:]...)
				return nil
			}
		}
		return models.ErrNotFound(fmt.Sprintf("stream %d not found", id))
	})
}

// isStreamBound reports whether some source's input currently resolves to
// the given stream id.
func isStreamBound(s *models.State, id int) bool {
	for _, src := range s.Sources {
		if streamID, ok := parseStreamInput(src.Input); ok && streamID == id {
			return true
		}
	}
	return false
}

// ExecStreamCommand executes a command on a stream (play, pause, next, etc.)
// When a stream Manager is available, routes the command to the stream
// subprocess and returns the current state (stream info is updated
// asynchronously via UpdateStreamInfo callbacks from the subprocess). When
// no Manager is available (nil, used in tests/mock mode), falls back to
// direct state mutation for the standard play/pause/stop commands.
func (c *Controller) ExecStreamCommand(ctx context.Context, id int, cmd string) (models.State, *models.AppError) {
	if appErr := models.ValidateStreamCommand(cmd); appErr != nil {
		return models.State{}, appErr
	}

	c.mu.RLock()
	stream := findStream(&c.state, id)
	bound := stream != nil && isStreamBound(&c.state, id)
	c.mu.RUnlock()
	if stream == nil {
		return models.State{}, models.ErrNotFound(fmt.Sprintf("stream %d not found", id))
	}
	if !bound {
		return models.State{}, models.ErrNotBound(fmt.Sprintf("stream %d is not bound to any source", id))
	}

	if c.streams != nil {
		if err := c.streams.SendCmd(ctx, id, cmd); err != nil {
			if errors.Is(err, streams.ErrNotSupported) {
				return models.State{}, models.ErrUnsupportedCommand(err.Error())
			}
			return models.State{}, models.ErrDriverTimeout(fmt.Sprintf("stream command failed: %v", err))
		}
		c.mu.RLock()
		state := c.state.DeepCopy()
		c.mu.RUnlock()
		return state, nil
	}

	// Fallback: no Manager configured, update state directly. Handles
	// play/pause/stop in tests and mock/standalone mode.
	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		st := findStream(s, id)
		if st == nil {
			return models.ErrNotFound(fmt.Sprintf("stream %d not found", id))
		}
		switch cmd {
		case "play":
			st.Info.State = "playing"
		case "pause":
			st.Info.State = "paused"
		case "stop":
			st.Info.State = "stopped"
		}
		return nil
	})
}
