package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/stagehand-audio/ampctld/internal/models"
)

const (
	// announcePresetID is the fixed preset id holding the in-progress
	// announcement's zone/source configuration.
	announcePresetID = 9998
	// announceRestorePresetID reuses the reserved last_config slot (9999):
	// whatever was there before an announcement starts is overwritten with
	// the pre-announcement snapshot and restored when it ends.
	announceRestorePresetID = models.LastPresetID
	announcePollInterval    = 100 * time.Millisecond
	announceStartTimeout    = 5 * time.Second
	announceMaxDuration     = 10 * time.Minute
)

// Announce plays a one-shot PA-style announcement: it snapshots the current
// state, routes the given zones/groups to a transient file-player stream at
// the requested volume, blocks until the stream finishes (or times out), then
// restores whatever was playing before. Used for doorbell/intercom-style
// interrupts rather than ordinary playback.
func (c *Controller) Announce(ctx context.Context, req models.AnnounceRequest) (models.State, *models.AppError) {
	if req.Media == "" {
		return models.State{}, models.ErrBadRequest("media URL is required")
	}

	sourceID := 3
	if req.SourceID != nil {
		sourceID = *req.SourceID
	}
	if sourceID < 0 || sourceID >= models.MaxSources {
		return models.State{}, models.ErrBadRequest(fmt.Sprintf("source_id must be 0-%d", models.MaxSources-1))
	}

	volF := 0.5
	if req.VolF != nil {
		volF = *req.VolF
		if volF < 0.0 || volF > 1.0 {
			return models.State{}, models.ErrBadRequest("vol_f must be between 0.0 and 1.0")
		}
	}

	if appErr := c.snapshotForAnnounce(ctx); appErr != nil {
		return models.State{}, appErr
	}

	streamID, appErr := c.createAnnouncementStream(ctx, req.Media)
	if appErr != nil {
		_, _ = c.endAnnounce(ctx, 0)
		return models.State{}, appErr
	}

	targetZones, appErr := c.resolveAnnounceZones(req.Zones, req.Groups)
	if appErr != nil {
		_, _ = c.endAnnounce(ctx, streamID)
		return models.State{}, appErr
	}

	announcementState, appErr := c.routeAnnounce(ctx, sourceID, streamID, targetZones, req.Vol, volF)
	if appErr != nil {
		_, _ = c.endAnnounce(ctx, streamID)
		return models.State{}, appErr
	}

	if appErr := c.blockUntilAnnounceDone(ctx, streamID); appErr != nil {
		_, _ = c.endAnnounce(ctx, streamID)
		return models.State{}, appErr
	}

	finalState, appErr := c.endAnnounce(ctx, streamID)
	if appErr != nil {
		// Announcement played fine; only the restore step failed, so give the
		// caller the (still valid) announcement state rather than nothing.
		return announcementState, appErr
	}
	return finalState, nil
}

// snapshotForAnnounce writes the current sources/zones/groups into the
// reserved last_config preset so endAnnounce can restore them afterward.
func (c *Controller) snapshotForAnnounce(ctx context.Context) *models.AppError {
	_, appErr := c.withTxn(ctx, func(t *txn, s *models.State) error {
		snapshotCurrentState(s)
		return nil
	})
	return appErr
}

// createAnnouncementStream creates the transient file-player stream that
// will carry the announcement's media.
func (c *Controller) createAnnouncementStream(ctx context.Context, mediaURL string) (int, *models.AppError) {
	state, appErr := c.CreateStream(ctx, models.StreamCreate{
		Name: "PA - Announcement",
		Type: models.StreamTypeFileplayer,
		Config: map[string]interface{}{
			"path":      mediaURL,
			"temporary": true,
		},
	})
	if appErr != nil {
		return 0, appErr
	}
	for _, st := range state.Streams {
		if st.Name == "PA - Announcement" {
			return st.ID, nil
		}
	}
	return 0, models.ErrInternal("announcement stream not found after creation")
}

// resolveAnnounceZones expands an explicit zone/group id list into the set
// of enabled target zones; an empty list means every enabled zone.
func (c *Controller) resolveAnnounceZones(zoneIDs, groupIDs []int) ([]int, *models.AppError) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	targets := make(map[int]bool)
	addZone := func(zid int) {
		if z := findZone(&c.state, zid); z != nil && !z.Disabled {
			targets[zid] = true
		}
	}

	if len(zoneIDs) == 0 && len(groupIDs) == 0 {
		for _, z := range c.state.Zones {
			if !z.Disabled {
				targets[z.ID] = true
			}
		}
	} else {
		for _, zid := range zoneIDs {
			addZone(zid)
		}
		for _, gid := range groupIDs {
			if g := findGroup(&c.state, gid); g != nil {
				for _, zid := range g.ZoneIDs {
					addZone(zid)
				}
			}
		}
	}

	result := make([]int, 0, len(targets))
	for zid := range targets {
		result = append(result, zid)
	}
	if len(result) == 0 {
		return nil, models.ErrBadRequest("no enabled zones found for announcement")
	}
	return result, nil
}

// routeAnnounce builds the announcement preset (route the target zones to
// the transient stream, mute any other zone currently fed by sourceID so the
// interrupted program doesn't bleed through) and loads it immediately.
func (c *Controller) routeAnnounce(ctx context.Context, sourceID, streamID int, targetZones []int, volDB *int, volF float64) (models.State, *models.AppError) {
	srcInput := fmt.Sprintf("stream=%d", streamID)
	srcID := sourceID
	sourceUpdate := models.SourceUpdate{ID: &srcID, Input: &srcInput}

	inTarget := make(map[int]bool, len(targetZones))
	var zoneUpdates []models.ZoneUpdate
	for _, zid := range targetZones {
		inTarget[zid] = true
		id, src, mute := zid, sourceID, false
		upd := models.ZoneUpdate{ID: &id, SourceID: &src, Mute: &mute}
		if volDB != nil {
			vol := *volDB
			upd.Vol = &vol
		} else {
			vf := volF
			upd.VolF = &vf
		}
		zoneUpdates = append(zoneUpdates, upd)
	}

	c.mu.RLock()
	var silenced []int
	for _, z := range c.state.Zones {
		if z.SourceID == sourceID && !inTarget[z.ID] {
			silenced = append(silenced, z.ID)
		}
	}
	c.mu.RUnlock()
	for _, zid := range silenced {
		id, src, mute := zid, sourceID, true
		zoneUpdates = append(zoneUpdates, models.ZoneUpdate{ID: &id, SourceID: &src, Mute: &mute})
	}

	presetState := models.PresetState{
		Sources: []models.SourceUpdate{sourceUpdate},
		Zones:   zoneUpdates,
	}

	_, appErr := c.withTxn(ctx, func(t *txn, s *models.State) error {
		upsertAnnouncePreset(s, announcePresetID, "PA - Active Announcement", &presetState)
		return nil
	})
	if appErr != nil {
		return models.State{}, appErr
	}

	return c.LoadPreset(ctx, announcePresetID)
}

// upsertAnnouncePreset creates or overwrites the preset at id with the given
// name/state, used for both the active-announcement and restore presets.
func upsertAnnouncePreset(s *models.State, id int, name string, state *models.PresetState) {
	if existing := findPreset(s, id); existing != nil {
		existing.Name = name
		existing.State = state
		return
	}
	s.Presets = append(s.Presets, models.Preset{ID: id, Name: name, State: state})
}

// blockUntilAnnounceDone polls the announcement stream's reported playback
// state: first waiting for it to start (failing if it never does within
// announceStartTimeout), then waiting for it to stop or disappear.
func (c *Controller) blockUntilAnnounceDone(ctx context.Context, streamID int) *models.AppError {
	ticker := time.NewTicker(announcePollInterval)
	defer ticker.Stop()

	if appErr := waitForTicks(ctx, ticker, time.Now().Add(announceStartTimeout), "announcement stream failed to start", func() (bool, *models.AppError) {
		st := c.streamState(streamID)
		if st == nil {
			return false, models.ErrInternal("announcement stream was deleted before starting")
		}
		return st.Info.State == "playing" || st.Info.State == "loading", nil
	}); appErr != nil {
		return appErr
	}

	return waitForTicks(ctx, ticker, time.Now().Add(announceMaxDuration), "announcement timeout exceeded", func() (bool, *models.AppError) {
		st := c.streamState(streamID)
		if st == nil {
			return true, nil
		}
		switch st.Info.State {
		case "stopped", "disconnected", "":
			return true, nil
		}
		return false, nil
	})
}

// waitForTicks polls cond on every ticker tick until it reports done, the
// deadline passes (timeoutMsg), or ctx is cancelled.
func waitForTicks(ctx context.Context, ticker *time.Ticker, deadline time.Time, timeoutMsg string, cond func() (bool, *models.AppError)) *models.AppError {
	for {
		select {
		case <-ctx.Done():
			return models.ErrInternal("announcement cancelled")
		case <-ticker.C:
			if time.Now().After(deadline) {
				return models.ErrInternal(timeoutMsg)
			}
			done, appErr := cond()
			if appErr != nil {
				return appErr
			}
			if done {
				return nil
			}
		}
	}
}

func (c *Controller) streamState(id int) *models.Stream {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := findStream(&c.state, id)
	if st == nil {
		return nil
	}
	cp := *st
	return &cp
}

// endAnnounce restores the pre-announcement snapshot and removes the
// transient preset/stream created for it. Called on both normal completion
// and on any error partway through Announce, so cleanup never leaks the
// temporary stream or the 9998 preset.
func (c *Controller) endAnnounce(ctx context.Context, streamID int) (models.State, *models.AppError) {
	state, appErr := c.LoadPreset(ctx, announceRestorePresetID)
	if appErr != nil {
		return models.State{}, appErr
	}
	_, _ = c.DeletePreset(ctx, announcePresetID)
	if streamID != 0 {
		_, _ = c.DeleteStream(ctx, streamID)
	}
	return state, nil
}
