// Package controller implements the Ampctl state machine — the single source
// of truth for all sources, zones, groups, streams, and presets.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/stagehand-audio/ampctld/internal/config"
	"github.com/stagehand-audio/ampctld/internal/events"
	"github.com/stagehand-audio/ampctld/internal/hardware"
	"github.com/stagehand-audio/ampctld/internal/models"
	"github.com/stagehand-audio/ampctld/internal/streams"
)

// Controller is the central state machine. All state mutations go through
// the apply()/withTxn() methods, which ensure atomicity (a deep-copied
// working state plus an accumulated hardware-effect rollback log),
// persistence, and event publishing.
type Controller struct {
	mu      sync.RWMutex
	state   models.State
	hw      hardware.Driver
	profile *hardware.HardwareProfile
	store   config.Store
	bus     *events.Bus
	streams *streams.Manager
	clock   Clock

	warnMu   sync.Mutex
	lastWarn *models.PersistenceWarning
}

// New creates and initializes a new Controller.
// streamMgr and clock may both be nil: a nil streamMgr falls back to direct
// state mutation for stream commands (used in tests and mock-only mode); a
// nil clock defaults to the real wall clock.
func New(hw hardware.Driver, profile *hardware.HardwareProfile, store config.Store, bus *events.Bus, streamMgr *streams.Manager, clock Clock) (*Controller, error) {
	state, err := store.Load()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = systemClock{}
	}

	c := &Controller{
		state:   *state,
		hw:      hw,
		profile: profile,
		store:   store,
		bus:     bus,
		streams: streamMgr,
		clock:   clock,
	}

	// Apply initial state to hardware. Not fatal if it fails — the
	// controller can still run in mock/debug mode without real hardware.
	ctx := context.Background()
	_ = c.applyStateToHW(ctx, *state)

	return c, nil
}

// State returns a deep copy of the current system state.
func (c *Controller) State() models.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.DeepCopy()
}

// LastPersistenceWarning returns and clears any non-fatal store-write
// warning recorded by the most recent apply(). Returns nil if none pending.
func (c *Controller) LastPersistenceWarning() *models.PersistenceWarning {
	c.warnMu.Lock()
	defer c.warnMu.Unlock()
	w := c.lastWarn
	c.lastWarn = nil
	return w
}

func (c *Controller) recordPersistenceWarning(msg string) {
	c.warnMu.Lock()
	defer c.warnMu.Unlock()
	c.lastWarn = &models.PersistenceWarning{Message: msg}
}

// apply is the core mutation primitive. It acquires the write lock,
// deep-copies the current state, calls fn against the copy and a fresh txn,
// and — if fn succeeds — swaps in the new state, schedules a store save,
// and publishes the new state on the event bus. fn is responsible for its
// own rollback on failure (see withTxn).
func (c *Controller) apply(ctx context.Context, fn func(*txn, *models.State) error) (models.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state.DeepCopy()
	t := newTxn(ctx)
	if err := fn(t, &next); err != nil {
		return models.State{}, err
	}

	c.state = next
	if c.streams != nil {
		if serr := c.streams.Sync(ctx, c.state.Streams, c.state.Sources); serr != nil {
			slog.Warn("controller: stream sync failed", "err", serr)
		}
	}
	if err := c.store.Save(&c.state); err != nil {
		c.recordPersistenceWarning(err.Error())
	}
	c.bus.Publish(c.state)
	return c.state, nil
}

// UpdateStreamInfo is the onChange callback cmd/ampctld hands to
// streams.NewManager; the Manager stores it but does not call it. It merges the info
// into the matching stream and publishes the new state; it does not go
// through apply()/txn since it is not a user-initiated command and has no
// hardware effects to roll back.
func (c *Controller) UpdateStreamInfo(id int, info models.StreamInfo) {
	c.mu.Lock()
	st := findStream(&c.state, id)
	if st == nil {
		c.mu.Unlock()
		return
	}
	st.Info = info
	state := c.state.DeepCopy()
	if err := c.store.Save(&c.state); err != nil {
		c.recordPersistenceWarning(err.Error())
	}
	c.mu.Unlock()
	c.bus.Publish(state)
}

// withTxn wraps apply for the common case: fn runs against a fresh txn, and
// if it fails, the txn's already-applied hardware effects are rolled back
// before the error is returned to the caller. This is what gives set_zone,
// set_group, set_source, and load_preset their atomicity: a mid-operation
// hardware failure leaves both the in-memory state AND the physical
// hardware as they were before the call.
func (c *Controller) withTxn(ctx context.Context, fn func(*txn, *models.State) error) (models.State, *models.AppError) {
	state, err := c.apply(ctx, func(t *txn, s *models.State) error {
		if ferr := fn(t, s); ferr != nil {
			rolledBack := t.rollback()
			return wrapEffectError(ferr, rolledBack)
		}
		return nil
	})
	if err != nil {
		if appErr, ok := err.(*models.AppError); ok {
			return models.State{}, appErr
		}
		return models.State{}, models.ErrInternal(err.Error())
	}
	return state, nil
}

// wrapEffectError classifies an error raised inside a txn closure: context
// deadline/cancellation becomes DriverTimeout, an *AppError passes through
// unchanged (it already carries a precise kind such as NotFound or
// InvalidField from a resolve-phase check), anything else is a genuine
// hardware failure.
func wrapEffectError(err error, rolledBack bool) error {
	if appErr, ok := err.(*models.AppError); ok {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.ErrDriverTimeout(err.Error())
	}
	return models.ErrHardwareFailure(err.Error(), rolledBack)
}

// applyStateToHW writes the complete state to the hardware driver.
// Called at startup, after factory reset, and after bulk config load.
func (c *Controller) applyStateToHW(ctx context.Context, state models.State) error {
	for _, unit := range c.hw.Units() {
		var analog [4]bool
		for _, src := range state.Sources {
			if src.ID >= 0 && src.ID <= 3 {
				analog[src.ID] = isAnalogInput(src.Input, &state)
			}
		}
		if err := c.hw.SetSourceTypes(ctx, unit, analog); err != nil {
			return err
		}

		baseZone := unit * 6
		var sources [6]int
		var mutes [6]bool
		var enables [6]bool
		var stby [6]bool

		for i := 0; i < 6; i++ {
			zoneIdx := baseZone + i
			if zoneIdx < len(state.Zones) {
				z := state.Zones[zoneIdx]
				if z.SourceID >= 0 && z.SourceID <= 3 {
					sources[i] = z.SourceID
				}
				mutes[i] = z.Mute
				enables[i] = !z.Disabled
				stby[i] = z.Stby
			} else {
				mutes[i] = true
				enables[i] = false
			}
		}

		if err := c.hw.SetZoneSources(ctx, unit, sources); err != nil {
			return err
		}
		if err := c.hw.SetZoneMutes(ctx, unit, mutes); err != nil {
			return err
		}
		if err := c.hw.SetAmpEnables(ctx, unit, enables); err != nil {
			return err
		}
		if err := c.hw.SetZoneStandby(ctx, unit, stby); err != nil {
			return err
		}

		for i := 0; i < 6; i++ {
			zoneIdx := baseZone + i
			if zoneIdx < len(state.Zones) {
				vol := state.Zones[zoneIdx].Vol
				if err := c.hw.SetZoneVol(ctx, unit, i, vol); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// findZone returns a pointer to the zone with the given ID in the state, or nil.
func findZone(state *models.State, id int) *models.Zone {
	for i := range state.Zones {
		if state.Zones[i].ID == id {
			return &state.Zones[i]
		}
	}
	return nil
}

// findGroup returns a pointer to the group with the given ID, or nil.
func findGroup(state *models.State, id int) *models.Group {
	for i := range state.Groups {
		if state.Groups[i].ID == id {
			return &state.Groups[i]
		}
	}
	return nil
}

// findStream returns a pointer to the stream with the given ID, or nil.
func findStream(state *models.State, id int) *models.Stream {
	for i := range state.Streams {
		if state.Streams[i].ID == id {
			return &state.Streams[i]
		}
	}
	return nil
}

// findPreset returns a pointer to the preset with the given ID, or nil.
func findPreset(state *models.State, id int) *models.Preset {
	for i := range state.Presets {
		if state.Presets[i].ID == id {
			return &state.Presets[i]
		}
	}
	return nil
}

// findSourceInState returns a pointer to the source with the given ID, or nil.
func findSourceInState(s *models.State, id int) *models.Source {
	for i := range s.Sources {
		if s.Sources[i].ID == id {
			return &s.Sources[i]
		}
	}
	return nil
}

// nextGroupID returns the next available group ID (groups start at 100).
func nextGroupID(state *models.State) int {
	maxID := 99
	for _, g := range state.Groups {
		if g.ID > maxID {
			maxID = g.ID
		}
	}
	return maxID + 1
}

// nextStreamID returns the next available stream ID (streams start at 1000).
func nextStreamID(state *models.State) int {
	maxID := 999
	for _, s := range state.Streams {
		if s.ID > maxID {
			maxID = s.ID
		}
	}
	return maxID + 1
}

// nextPresetID returns the next available preset ID (user presets start at
// 10001; 9999 and 10000 are reserved — last_config snapshot and Mute All).
func nextPresetID(state *models.State) int {
	maxID := models.MuteAllPresetID
	for _, p := range state.Presets {
		if p.ID > maxID && p.ID != models.LastPresetID {
			maxID = p.ID
		}
	}
	return maxID + 1
}
