package controller

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stagehand-audio/ampctld/internal/models"
)

// GetSources returns all sources.
func (c *Controller) GetSources() []models.Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]models.Source, len(c.state.Sources))
	copy(result, c.state.Sources)
	return result
}

// GetSource returns a single source by ID.
func (c *Controller) GetSource(id int) (*models.Source, *models.AppError) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.state.Sources {
		if s.ID == id {
			cp := s
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound("source not found")
}

// validateSourceInput checks hardware capability constraints for a source
// input change. Returns nil if profile is nil (no restrictions, used in
// tests and mock-only mode).
func (c *Controller) validateSourceInput(input string) *models.AppError {
	if c.profile == nil {
		return nil
	}
	if c.profile.TotalSources == 0 {
		return models.ErrUnsupportedCommand("this unit has no audio sources")
	}
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()
	if isAnalogInput(input, &state) && !c.profile.HasMainUnit() {
		return models.ErrUnsupportedCommand(fmt.Sprintf("analog input not supported on %s unit", c.profile.PrimaryUnitType()))
	}
	return nil
}

// SetSource updates a source by ID and returns the new state.
func (c *Controller) SetSource(ctx context.Context, id int, upd models.SourceUpdate) (models.State, *models.AppError) {
	if id < 0 || id > 3 {
		return models.State{}, models.ErrInvalidField("id", "source id must be 0-3")
	}

	if upd.Input != nil {
		if appErr := c.validateSourceInput(*upd.Input); appErr != nil {
			return models.State{}, appErr
		}
	}

	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		src := findSourceInState(s, id)
		if src == nil {
			return models.ErrNotFound("source not found")
		}

		if upd.Name != nil {
			src.Name = *upd.Name
		}
		if upd.Input != nil {
			oldInput := src.Input
			newInput := *upd.Input
			if newInput != oldInput {
				prevAnalog := computeAnalogSources(s)
				// A stream can only ever feed one source. If the requested
				// stream is already bound elsewhere, disconnect it there
				// first so the invariant holds after this call returns.
				if streamID, ok := parseStreamInput(newInput); ok {
					if findStream(s, streamID) == nil {
						return models.ErrNotFound(fmt.Sprintf("stream %d not found", streamID))
					}
					for i := range s.Sources {
						other := &s.Sources[i]
						if other.ID == id {
							continue
						}
						if otherID, ok := parseStreamInput(other.Input); ok && otherID == streamID {
							other.Input = "local"
						}
					}
				}
				src.Input = newInput
				if err := pushSourceTypes(c, t, s, prevAnalog); err != nil {
					src.Input = oldInput
					return err
				}
			}
		}

		return nil
	})
}

// parseStreamInput extracts the stream ID from a "stream=<id>" input string.
func parseStreamInput(input string) (int, bool) {
	if !strings.HasPrefix(input, "stream=") {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimPrefix(input, "stream="))
	if err != nil {
		return 0, false
	}
	return id, true
}

// computeAnalogSources returns the analog/digital flag for each of the 4
// sources in state.
func computeAnalogSources(state *models.State) [4]bool {
	var analog [4]bool
	for i := range state.Sources {
		src := &state.Sources[i]
		if src.ID >= 0 && src.ID <= 3 {
			analog[src.ID] = isAnalogInput(src.Input, state)
		}
	}
	return analog
}

// pushSourceTypes recomputes the analog/digital flag for every source and
// writes the full 4-source register to every detected hardware unit. prev
// is the analog register as it stood before this call's input changes, so
// a later failure in the same command can restore it on rollback.
func pushSourceTypes(c *Controller, t *txn, state *models.State, prev [4]bool) error {
	analog := computeAnalogSources(state)
	for _, unit := range c.hw.Units() {
		u := unit
		if err := t.do(
			func(ctx context.Context) error { return c.hw.SetSourceTypes(ctx, u, analog) },
			func() error {
				ctx, cancel := context.WithTimeout(context.Background(), driverTimeout)
				defer cancel()
				return c.hw.SetSourceTypes(ctx, u, prev)
			},
		); err != nil {
			return err
		}
	}
	return nil
}

// isAnalogInput returns true if the input string corresponds to an analog source.
// Analog sources: "local", or stream=<id> where the stream is RCA or Aux type.
func isAnalogInput(input string, state *models.State) bool {
	if input == "local" {
		return true
	}
	if streamID, ok := parseStreamInput(input); ok {
		if streamID == models.AuxStreamID ||
			(streamID >= models.RCAStream0 && streamID <= models.RCAStream3) {
			return true
		}
		for _, s := range state.Streams {
			if s.ID == streamID {
				return s.Type == models.StreamTypeRCA || s.Type == models.StreamTypeAux
			}
		}
	}
	return false
}
