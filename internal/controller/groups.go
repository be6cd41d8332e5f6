package controller

import (
	"context"
	"fmt"

	"github.com/stagehand-audio/ampctld/internal/models"
)

// GetGroups returns all groups.
func (c *Controller) GetGroups() []models.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]models.Group, len(c.state.Groups))
	copy(result, c.state.Groups)
	return result
}

// GetGroup returns a single group by ID.
func (c *Controller) GetGroup(id int) (*models.Group, *models.AppError) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g := findGroup(&c.state, id)
	if g == nil {
		return nil, models.ErrNotFound("group not found")
	}
	cp := *g
	return &cp, nil
}

// CreateGroup creates a new group and returns the updated state.
func (c *Controller) CreateGroup(ctx context.Context, req models.GroupUpdate) (models.State, *models.AppError) {
	if req.Name == nil || *req.Name == "" {
		return models.State{}, models.ErrInvalidField("name", "group name is required")
	}
	if appErr := models.ValidateGroupZoneIDs(req.ZoneIDs); appErr != nil {
		return models.State{}, appErr
	}

	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		for _, zid := range req.ZoneIDs {
			z := findZone(s, zid)
			if z == nil {
				return models.ErrInvariantViolation(fmt.Sprintf("zone %d does not exist", zid))
			}
			if z.Disabled {
				return models.ErrInvariantViolation(fmt.Sprintf("zone %d is disabled", zid))
			}
		}

		g := models.Group{
			ID:      nextGroupID(s),
			Name:    *req.Name,
			ZoneIDs: req.ZoneIDs,
		}
		if req.SourceID != nil {
			v := *req.SourceID
			g.SourceID = &v
		}
		if req.Mute != nil {
			v := *req.Mute
			g.Mute = &v
		}
		s.Groups = append(s.Groups, g)
		updateGroupAggregates(s)
		return nil
	})
}

// SetGroup updates a group by ID. All member-zone effects share a single
// txn, so a hardware failure partway through (e.g. zone 3 of 6 fails to
// take the new source) rolls back every zone already changed by this call,
// not just the failed one.
func (c *Controller) SetGroup(ctx context.Context, id int, upd models.GroupUpdate) (models.State, *models.AppError) {
	if upd.ZoneIDs != nil {
		if appErr := models.ValidateGroupZoneIDs(upd.ZoneIDs); appErr != nil {
			return models.State{}, appErr
		}
	}

	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		g := findGroup(s, id)
		if g == nil {
			return models.ErrNotFound("group not found")
		}

		if upd.Name != nil {
			g.Name = *upd.Name
		}
		if upd.ZoneIDs != nil {
			for _, zid := range upd.ZoneIDs {
				z := findZone(s, zid)
				if z == nil {
					return models.ErrInvariantViolation(fmt.Sprintf("zone %d does not exist", zid))
				}
				if z.Disabled {
					return models.ErrInvariantViolation(fmt.Sprintf("zone %d is disabled", zid))
				}
			}
			g.ZoneIDs = upd.ZoneIDs
		}

		if upd.SourceID != nil {
			src := *upd.SourceID
			for _, zid := range g.ZoneIDs {
				z := findZone(s, zid)
				if z == nil {
					continue
				}
				zupd := models.ZoneUpdate{SourceID: &src}
				if err := applyZoneUpdate(c, t, s, z, zupd); err != nil {
					return err
				}
			}
		}

		switch {
		case upd.Vol != nil:
			for _, zid := range g.ZoneIDs {
				z := findZone(s, zid)
				if z == nil {
					continue
				}
				newVol := models.ClampVol(z.Vol+*upd.Vol, z.VolMin, z.VolMax)
				zupd := models.ZoneUpdate{Vol: &newVol}
				if err := applyZoneUpdate(c, t, s, z, zupd); err != nil {
					return err
				}
			}
		case upd.VolF != nil:
			for _, zid := range g.ZoneIDs {
				z := findZone(s, zid)
				if z == nil {
					continue
				}
				vf := *upd.VolF
				zupd := models.ZoneUpdate{VolF: &vf}
				if err := applyZoneUpdate(c, t, s, z, zupd); err != nil {
					return err
				}
			}
		}

		if upd.Mute != nil {
			for _, zid := range g.ZoneIDs {
				z := findZone(s, zid)
				if z == nil {
					continue
				}
				m := *upd.Mute
				zupd := models.ZoneUpdate{Mute: &m}
				if err := applyZoneUpdate(c, t, s, z, zupd); err != nil {
					return err
				}
			}
		}

		if upd.Stby != nil {
			for _, zid := range g.ZoneIDs {
				z := findZone(s, zid)
				if z == nil {
					continue
				}
				st := *upd.Stby
				zupd := models.ZoneUpdate{Stby: &st}
				if err := applyZoneUpdate(c, t, s, z, zupd); err != nil {
					return err
				}
			}
		}

		updateGroupAggregates(s)
		return nil
	})
}

// DeleteGroup removes a group by ID.
func (c *Controller) DeleteGroup(ctx context.Context, id int) (models.State, *models.AppError) {
	return c.withTxn(ctx, func(t *txn, s *models.State) error {
		for i, g := range s.Groups {
			if g.ID == id {
				s.Groups = append(s.Groups[:i], s.Groups[i+1:]...)
				return nil
			}
		}
		return models.ErrNotFound(fmt.Sprintf("group %d not found", id))
	})
}

// updateGroupAggregates recomputes aggregate vol, mute, source_id, and
// standby for all groups from their current member zones. A group aggregate
// is unanimous (non-nil) only when every member zone agrees; otherwise it is
// left nil to signal a mixed state.
func updateGroupAggregates(s *models.State) {
	for gi := range s.Groups {
		g := &s.Groups[gi]
		if len(g.ZoneIDs) == 0 {
			continue
		}

		allMuted := true
		anyMuted := false
		allStby := true
		anyStby := false
		totalVol := 0
		validZones := 0
		var unanimousSource *int

		for _, zid := range g.ZoneIDs {
			z := findZone(s, zid)
			if z == nil {
				continue
			}
			totalVol += z.Vol
			validZones++
			if z.Mute {
				anyMuted = true
			} else {
				allMuted = false
			}
			if z.Stby {
				anyStby = true
			} else {
				allStby = false
			}

			if unanimousSource == nil {
				src := z.SourceID
				unanimousSource = &src
			} else if *unanimousSource != z.SourceID {
				unanimousSource = nil
			}
		}

		if validZones > 0 {
			avgVol := totalVol / validZones
			g.Vol = &avgVol
			avgVolF := models.DBToVolF(avgVol)
			g.VolF = &avgVolF
		}

		if allMuted || !anyMuted {
			mute := allMuted
			g.Mute = &mute
		} else {
			g.Mute = nil
		}

		if allStby || !anyStby {
			stby := allStby
			g.Stby = &stby
		} else {
			g.Stby = nil
		}

		g.SourceID = unanimousSource
	}
}
