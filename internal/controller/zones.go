package controller

import (
	"context"
	"fmt"

	"github.com/stagehand-audio/ampctld/internal/models"
)

// GetZones returns all zones.
func (c *Controller) GetZones() []models.Zone {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]models.Zone, len(c.state.Zones))
	copy(result, c.state.Zones)
	return result
}

// GetZone returns a single zone by ID.
func (c *Controller) GetZone(id int) (*models.Zone, *models.AppError) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, z := range c.state.Zones {
		if z.ID == id {
			cp := z
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound("zone not found")
}

// SetZone updates a zone by ID.
func (c *Controller) SetZone(ctx context.Context, id int, upd models.ZoneUpdate) (models.State, *models.AppError) {
	if id < 0 || id >= models.MaxZones {
		return models.State{}, models.ErrInvalidField("id", fmt.Sprintf("zone id must be 0-%d", models.MaxZones-1))
	}
	if appErr := models.ValidateZoneUpdate(upd); appErr != nil {
		return models.State{}, appErr
	}

	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		z := findZone(s, id)
		if z == nil {
			return models.ErrNotFound("zone not found")
		}
		return applyZoneUpdate(c, t, s, z, upd)
	})
}

// SetZones performs a bulk zone update across multiple zones atomically.
func (c *Controller) SetZones(ctx context.Context, req models.MultiZoneUpdate) (models.State, *models.AppError) {
	if appErr := models.ValidateZoneUpdate(req.Update); appErr != nil {
		return models.State{}, appErr
	}

	c.mu.RLock()
	for _, id := range req.ZoneIDs {
		if z := findZone(&c.state, id); z == nil {
			c.mu.RUnlock()
			return models.State{}, models.ErrNotFound(fmt.Sprintf("zone %d not found", id))
		}
	}
	c.mu.RUnlock()

	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		for _, id := range req.ZoneIDs {
			z := findZone(s, id)
			if z == nil {
				return models.ErrNotFound(fmt.Sprintf("zone %d not found", id))
			}
			if err := applyZoneUpdate(c, t, s, z, req.Update); err != nil {
				return err
			}
		}
		return nil
	})
}

// applyZoneUpdate merges upd into z and pushes the resulting hardware state
// through t, so a later failure in the same command unwinds every effect
// applied so far, not just this zone's.
func applyZoneUpdate(c *Controller, t *txn, s *models.State, z *models.Zone, upd models.ZoneUpdate) error {
	oldVol := z.Vol
	oldMute := z.Mute
	oldSource := z.SourceID
	oldStby := z.Stby

	if upd.Name != nil {
		z.Name = *upd.Name
	}
	if upd.Disabled != nil {
		z.Disabled = *upd.Disabled
	}
	if upd.SourceID != nil {
		z.SourceID = *upd.SourceID
	}
	if upd.VolMin != nil {
		z.VolMin = *upd.VolMin
	}
	if upd.VolMax != nil {
		z.VolMax = *upd.VolMax
	}

	// Volume updates: vol_f takes precedence, then vol, then vol_delta_f
	if upd.VolF != nil {
		z.Vol = models.VolFToDB(*upd.VolF)
	} else if upd.Vol != nil {
		z.Vol = *upd.Vol
	} else if upd.VolDeltaF != nil {
		rangeDB := float64(z.VolMax - z.VolMin)
		deltaDB := int(*upd.VolDeltaF * rangeDB)
		z.Vol = z.Vol + deltaDB
	}
	z.Vol = models.ClampVol(z.Vol, z.VolMin, z.VolMax)
	z.VolF = models.DBToVolF(z.Vol)

	if upd.Mute != nil {
		z.Mute = *upd.Mute
	}
	if upd.Stby != nil {
		z.Stby = *upd.Stby
	}

	unit := z.ID / 6
	localZone := z.ID % 6

	if z.SourceID != oldSource {
		if err := pushZoneSources(c, t, s, unit, localZone, oldSource); err != nil {
			return err
		}
	}

	if z.Vol != oldVol {
		prevVol, newVol := oldVol, z.Vol
		if err := t.do(
			func(ctx context.Context) error { return c.hw.SetZoneVol(ctx, unit, localZone, newVol) },
			func() error {
				ctx, cancel := context.WithTimeout(context.Background(), driverTimeout)
				defer cancel()
				return c.hw.SetZoneVol(ctx, unit, localZone, prevVol)
			},
		); err != nil {
			return err
		}
	}

	if z.Mute != oldMute {
		if err := pushZoneMutes(c, t, s, unit, localZone, oldMute); err != nil {
			return err
		}
	}

	if z.Stby != oldStby {
		if err := pushZoneStandby(c, t, s, unit, localZone, oldStby); err != nil {
			return err
		}
	}

	updateGroupAggregates(s)
	return nil
}

// pushZoneSources writes the source assignment for all 6 zones of a unit.
// localZone/oldSource identify the one zone slot that changed in this call,
// so the recorded inverse reverts only that slot rather than clobbering
// sibling zones' values with a stale snapshot.
func pushZoneSources(c *Controller, t *txn, s *models.State, unit, localZone, oldSource int) error {
	baseZone := unit * 6
	var sources [6]int
	for i := 0; i < 6; i++ {
		if z := findZone(s, baseZone+i); z != nil {
			src := z.SourceID
			if src < 0 || src > 3 {
				src = 0
			}
			sources[i] = src
		}
	}
	prev := sources
	if oldSource < 0 || oldSource > 3 {
		oldSource = 0
	}
	prev[localZone] = oldSource
	return t.do(
		func(ctx context.Context) error { return c.hw.SetZoneSources(ctx, unit, sources) },
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), driverTimeout)
			defer cancel()
			return c.hw.SetZoneSources(ctx, unit, prev)
		},
	)
}

// pushZoneMutes writes the mute state for all 6 zones of a unit. localZone/
// oldMute identify the one zone slot that changed in this call.
func pushZoneMutes(c *Controller, t *txn, s *models.State, unit, localZone int, oldMute bool) error {
	baseZone := unit * 6
	var mutes [6]bool
	for i := 0; i < 6; i++ {
		if z := findZone(s, baseZone+i); z != nil {
			mutes[i] = z.Mute
		} else {
			mutes[i] = true
		}
	}
	prev := mutes
	prev[localZone] = oldMute
	return t.do(
		func(ctx context.Context) error { return c.hw.SetZoneMutes(ctx, unit, mutes) },
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), driverTimeout)
			defer cancel()
			return c.hw.SetZoneMutes(ctx, unit, prev)
		},
	)
}

// pushZoneStandby writes the standby state for all 6 zones of a unit.
// localZone/oldStby identify the one zone slot that changed in this call.
func pushZoneStandby(c *Controller, t *txn, s *models.State, unit, localZone int, oldStby bool) error {
	baseZone := unit * 6
	var stby [6]bool
	for i := 0; i < 6; i++ {
		if z := findZone(s, baseZone+i); z != nil {
			stby[i] = z.Stby
		}
	}
	prev := stby
	prev[localZone] = oldStby
	return t.do(
		func(ctx context.Context) error { return c.hw.SetZoneStandby(ctx, unit, stby) },
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), driverTimeout)
			defer cancel()
			return c.hw.SetZoneStandby(ctx, unit, prev)
		},
	)
}
