package models

import (
	"fmt"

	"github.com/stagehand-audio/ampctld/internal/hardware"
)

// DefaultState returns a minimal default system state — 4 sources, 6 zones, no groups,
// the Aux and four RCA streams, and the Mute All preset.
// This is the minimal state used when no config file is found.
// Based on Python's defaults.py DEFAULT_CONFIG.
func DefaultState() State {
	sources := make([]Source, 4)
	for i := range sources {
		sources[i] = Source{
			ID:    i,
			Name:  fmt.Sprintf("Output %d", i+1),
			Input: "",
		}
	}

	zones := make([]Zone, 6)
	for i := range zones {
		zones[i] = Zone{
			ID:       i,
			Name:     fmt.Sprintf("Zone %d", i+1),
			SourceID: 0,
			Mute:     true,
			Vol:      MinVolDB,
			VolF:     0.0,
			VolMin:   MinVolDB,
			VolMax:   MaxVolDB,
			Disabled: false,
		}
	}

	// Mute All preset (id 10000) matching Python defaults.MUTE_ALL_ID
	muteAllZones := make([]ZoneUpdate, 6)
	for i := range muteAllZones {
		id := i
		mute := true
		muteAllZones[i] = ZoneUpdate{ID: &id, Mute: &mute}
	}
	presets := []Preset{
		{
			ID:   MuteAllPresetID,
			Name: "Mute All",
			State: &PresetState{
				Zones: muteAllZones,
			},
		},
	}

	// Default streams: Aux + 4 RCA inputs
	f := false
	streams := []Stream{
		{ID: AuxStreamID, Name: "Aux", Type: StreamTypeAux, Disabled: &f, Browsable: &f},
		{ID: RCAStream0, Name: "Input 1", Type: StreamTypeRCA, Disabled: &f, Browsable: &f},
		{ID: RCAStream1, Name: "Input 2", Type: StreamTypeRCA, Disabled: &f, Browsable: &f},
		{ID: RCAStream2, Name: "Input 3", Type: StreamTypeRCA, Disabled: &f, Browsable: &f},
		{ID: RCAStream3, Name: "Input 4", Type: StreamTypeRCA, Disabled: &f, Browsable: &f},
	}

	return State{
		Sources: sources,
		Zones:   zones,
		Groups:  []Group{},
		Streams: streams,
		Presets: presets,
		Info: Info{
			Version: "0.0.1",
			Offline: false,
		},
	}
}

// DefaultStateFromProfile returns a default state scaled to the detected
// hardware: one zone per ZoneBase/ZoneCount entry across all units, sources
// only present if the profile has a main unit (TotalSources > 0), and the
// default Aux/RCA streams only present alongside those sources. A nil
// profile falls back to the plain single-unit DefaultState().
func DefaultStateFromProfile(profile *hardware.HardwareProfile) State {
	if profile == nil {
		return DefaultState()
	}

	var zones []Zone
	for _, u := range profile.Units {
		for i := 0; i < u.ZoneCount; i++ {
			id := u.ZoneBase + i
			zones = append(zones, Zone{
				ID:       id,
				Name:     fmt.Sprintf("Zone %d", id+1),
				SourceID: 0,
				Mute:     true,
				Vol:      MinVolDB,
				VolF:     0.0,
				VolMin:   MinVolDB,
				VolMax:   MaxVolDB,
				Disabled: false,
			})
		}
	}
	if zones == nil {
		zones = []Zone{}
	}

	var sources []Source
	for i := 0; i < profile.TotalSources; i++ {
		sources = append(sources, Source{
			ID:    i,
			Name:  fmt.Sprintf("Output %d", i+1),
			Input: "",
		})
	}
	if sources == nil {
		sources = []Source{}
	}

	muteAllZones := make([]ZoneUpdate, len(zones))
	for i, z := range zones {
		id := z.ID
		mute := true
		muteAllZones[i] = ZoneUpdate{ID: &id, Mute: &mute}
	}
	presets := []Preset{
		{
			ID:    MuteAllPresetID,
			Name:  "Mute All",
			State: &PresetState{Zones: muteAllZones},
		},
	}

	var streams []Stream
	if profile.TotalSources > 0 {
		f := false
		streams = []Stream{
			{ID: AuxStreamID, Name: "Aux", Type: StreamTypeAux, Disabled: &f, Browsable: &f},
			{ID: RCAStream0, Name: "Input 1", Type: StreamTypeRCA, Disabled: &f, Browsable: &f},
			{ID: RCAStream1, Name: "Input 2", Type: StreamTypeRCA, Disabled: &f, Browsable: &f},
			{ID: RCAStream2, Name: "Input 3", Type: StreamTypeRCA, Disabled: &f, Browsable: &f},
			{ID: RCAStream3, Name: "Input 4", Type: StreamTypeRCA, Disabled: &f, Browsable: &f},
		}
	} else {
		streams = []Stream{}
	}

	return State{
		Sources: sources,
		Zones:   zones,
		Groups:  []Group{},
		Streams: streams,
		Presets: presets,
		Info: Info{
			Version: "0.0.1",
			Offline: false,
		},
	}
}

// Preset IDs from Python defaults.
const (
	MuteAllPresetID  = 10000
	LastPresetID     = 9999
)

// VolFToDB converts a float volume [0.0, 1.0] to dB [-79, 0].
func VolFToDB(f float64) int {
	if f < 0.0 {
		f = 0.0
	}
	if f > 1.0 {
		f = 1.0
	}
	return int(f*float64(MaxVolDB-MinVolDB)) + MinVolDB
}

// DBToVolF converts a dB volume [-79, 0] to float [0.0, 1.0].
func DBToVolF(db int) float64 {
	if db < MinVolDB {
		db = MinVolDB
	}
	if db > MaxVolDB {
		db = MaxVolDB
	}
	return float64(db-MinVolDB) / float64(MaxVolDB-MinVolDB)
}

// ClampVol clamps a volume value to the zone's configured min/max.
func ClampVol(vol, volMin, volMax int) int {
	if vol < volMin {
		return volMin
	}
	if vol > volMax {
		return volMax
	}
	return vol
}
