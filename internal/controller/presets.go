package controller

import (
	"context"
	"fmt"

	"github.com/stagehand-audio/ampctld/internal/models"
)

// GetPresets returns all presets.
func (c *Controller) GetPresets() []models.Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]models.Preset, len(c.state.Presets))
	copy(result, c.state.Presets)
	return result
}

// GetPreset returns a single preset by ID.
func (c *Controller) GetPreset(id int) (*models.Preset, *models.AppError) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := findPreset(&c.state, id)
	if p == nil {
		return nil, models.ErrNotFound("preset not found")
	}
	cp := *p
	return &cp, nil
}

// CreatePreset creates a new preset.
func (c *Controller) CreatePreset(ctx context.Context, req models.PresetCreate) (models.State, *models.AppError) {
	if req.Name == "" {
		return models.State{}, models.ErrInvalidField("name", "preset name is required")
	}

	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		p := models.Preset{
			ID:       nextPresetID(s),
			Name:     req.Name,
			State:    req.State,
			Commands: req.Commands,
		}
		s.Presets = append(s.Presets, p)
		return nil
	})
}

// SetPreset updates a preset by ID. The two reserved presets (9999 last_config,
// 10000 Mute All) cannot be renamed or redefined.
func (c *Controller) SetPreset(ctx context.Context, id int, upd models.PresetUpdate) (models.State, *models.AppError) {
	if id == models.LastPresetID || id == models.MuteAllPresetID {
		return models.State{}, models.ErrUnsupportedCommand("this preset id is reserved and cannot be modified")
	}

	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		p := findPreset(s, id)
		if p == nil {
			return models.ErrNotFound(fmt.Sprintf("preset %d not found", id))
		}
		if upd.Name != nil {
			p.Name = *upd.Name
		}
		if upd.State != nil {
			p.State = upd.State
		}
		if upd.Commands != nil {
			p.Commands = upd.Commands
		}
		return nil
	})
}

// DeletePreset removes a preset by ID. The reserved presets cannot be deleted.
func (c *Controller) DeletePreset(ctx context.Context, id int) (models.State, *models.AppError) {
	if id == models.LastPresetID || id == models.MuteAllPresetID {
		return models.State{}, models.ErrUnsupportedCommand("this preset id is reserved and cannot be deleted")
	}

	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		for i, p := range s.Presets {
			if p.ID == id {
				s.Presets = append(s.Presets[:i], s.Presets[i+1:]...)
				return nil
			}
		}
		return models.ErrNotFound(fmt.Sprintf("preset %d not found", id))
	})
}

// LoadPreset applies a preset's saved state to the system. Before applying
// anything it snapshots the CURRENT state into the reserved last_config
// preset (9999), so a load can always be undone by loading 9999 again.
// Sections apply in order streams, sources, zones, groups: a stream rebind
// must land before a source references it, and a source change must land
// before a zone or group aggregate is recomputed from it. All of this runs
// inside one txn, so any failure partway through unwinds every hardware
// effect already applied by this load, not just the failed section.
func (c *Controller) LoadPreset(ctx context.Context, id int) (models.State, *models.AppError) {
	c.mu.RLock()
	p := findPreset(&c.state, id)
	if p == nil {
		c.mu.RUnlock()
		return models.State{}, models.ErrNotFound(fmt.Sprintf("preset %d not found", id))
	}
	preset := *p
	c.mu.RUnlock()

	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		snapshotCurrentState(s)

		if preset.State == nil {
			return nil
		}
		ps := preset.State

		for _, upd := range ps.Streams {
			if upd.ID == nil {
				continue
			}
			st := findStream(s, *upd.ID)
			if st == nil {
				return models.ErrNotFound(fmt.Sprintf("preset references unknown stream %d", *upd.ID))
			}
			if upd.Name != nil {
				st.Name = *upd.Name
			}
			if upd.Config != nil {
				if st.Config == nil {
					st.Config = make(map[string]interface{})
				}
				for k, v := range upd.Config {
					st.Config[k] = v
				}
			}
		}

		for _, upd := range ps.Sources {
			if upd.ID == nil {
				continue
			}
			src := findSourceInState(s, *upd.ID)
			if src == nil {
				return models.ErrNotFound(fmt.Sprintf("preset references unknown source %d", *upd.ID))
			}
			if upd.Name != nil {
				src.Name = *upd.Name
			}
			if upd.Input != nil && *upd.Input != src.Input {
				if id, ok := parseStreamInput(*upd.Input); ok && findStream(s, id) == nil {
					return models.ErrNotFound(fmt.Sprintf("preset references unknown stream %d", id))
				}
				prevAnalog := computeAnalogSources(s)
				src.Input = *upd.Input
				if err := pushSourceTypes(c, t, s, prevAnalog); err != nil {
					return err
				}
			}
		}

		for _, upd := range ps.Zones {
			if upd.ID == nil {
				continue
			}
			z := findZone(s, *upd.ID)
			if z == nil {
				return models.ErrNotFound(fmt.Sprintf("preset references unknown zone %d", *upd.ID))
			}
			if err := applyZoneUpdate(c, t, s, z, upd); err != nil {
				return err
			}
		}

		for _, upd := range ps.Groups {
			if upd.ID == nil {
				continue
			}
			g := findGroup(s, *upd.ID)
			if g == nil {
				return models.ErrNotFound(fmt.Sprintf("preset references unknown group %d", *upd.ID))
			}
			if upd.Name != nil {
				g.Name = *upd.Name
			}
			if upd.ZoneIDs != nil {
				g.ZoneIDs = upd.ZoneIDs
			}
			if upd.SourceID != nil {
				src := *upd.SourceID
				for _, zid := range g.ZoneIDs {
					z := findZone(s, zid)
					if z == nil {
						return models.ErrNotFound(fmt.Sprintf("preset references unknown zone %d", zid))
					}
					zupd := models.ZoneUpdate{SourceID: &src}
					if err := applyZoneUpdate(c, t, s, z, zupd); err != nil {
						return err
					}
				}
			}
			if upd.Mute != nil {
				m := *upd.Mute
				for _, zid := range g.ZoneIDs {
					z := findZone(s, zid)
					if z == nil {
						return models.ErrNotFound(fmt.Sprintf("preset references unknown zone %d", zid))
					}
					zupd := models.ZoneUpdate{Mute: &m}
					if err := applyZoneUpdate(c, t, s, z, zupd); err != nil {
						return err
					}
				}
			}
		}

		updateGroupAggregates(s)

		if loaded := findPreset(s, preset.ID); loaded != nil {
			now := c.clock.Now()
			loaded.LastUsed = &now
		}
		return nil
	})
}

// snapshotCurrentState writes s's current sources/zones/groups into the
// reserved last_config preset (9999), overwriting whatever was there
// before. This runs before a preset's own changes are applied, so loading
// 9999 always returns to the state immediately prior to the last load.
func snapshotCurrentState(s *models.State) {
	snap := &models.PresetState{}
	for _, src := range s.Sources {
		id := src.ID
		name := src.Name
		input := src.Input
		snap.Sources = append(snap.Sources, models.SourceUpdate{ID: &id, Name: &name, Input: &input})
	}
	for _, z := range s.Zones {
		id := z.ID
		name := z.Name
		srcID := z.SourceID
		mute := z.Mute
		stby := z.Stby
		vol := z.Vol
		volMin := z.VolMin
		volMax := z.VolMax
		disabled := z.Disabled
		snap.Zones = append(snap.Zones, models.ZoneUpdate{
			ID: &id, Name: &name, SourceID: &srcID, Mute: &mute, Stby: &stby,
			Vol: &vol, VolMin: &volMin, VolMax: &volMax, Disabled: &disabled,
		})
	}
	for _, g := range s.Groups {
		id := g.ID
		name := g.Name
		zoneIDs := append([]int(nil), g.ZoneIDs...)
		upd := models.GroupUpdate{ID: &id, Name: &name, ZoneIDs: zoneIDs}
		if g.SourceID != nil {
			v := *g.SourceID
			upd.SourceID = &v
		}
		if g.Mute != nil {
			v := *g.Mute
			upd.Mute = &v
		}
		if g.Stby != nil {
			v := *g.Stby
			upd.Stby = &v
		}
		snap.Groups = append(snap.Groups, upd)
	}

	if existing := findPreset(s, models.LastPresetID); existing != nil {
		existing.State = snap
		return
	}
	s.Presets = append(s.Presets, models.Preset{
		ID:    models.LastPresetID,
		Name:  "last_config",
		State: snap,
	})
}
