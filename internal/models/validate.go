package models

import "fmt"

// ValidateZoneUpdate checks a ZoneUpdate's fields are individually well-formed.
// Cross-entity checks (does source_id refer to a real source) are the
// Controller's job, since they need the rest of State to resolve.
func ValidateZoneUpdate(upd ZoneUpdate) *AppError {
	if upd.SourceID != nil && (*upd.SourceID < 0 || *upd.SourceID > 3) {
		return ErrInvalidField("source_id", "source_id must be 0-3")
	}
	if upd.Vol != nil && (*upd.Vol < MinVolDB || *upd.Vol > MaxVolDB) {
		return ErrInvalidField("vol", fmt.Sprintf("vol must be %d-%d", MinVolDB, MaxVolDB))
	}
	if upd.VolF != nil && (*upd.VolF < 0.0 || *upd.VolF > 1.0) {
		return ErrInvalidField("vol_f", "vol_f must be 0.0-1.0")
	}
	if upd.VolMin != nil && (*upd.VolMin < MinVolDB || *upd.VolMin > MaxVolDB) {
		return ErrInvalidField("vol_min", fmt.Sprintf("vol_min must be %d-%d", MinVolDB, MaxVolDB))
	}
	if upd.VolMax != nil && (*upd.VolMax < MinVolDB || *upd.VolMax > MaxVolDB) {
		return ErrInvalidField("vol_max", fmt.Sprintf("vol_max must be %d-%d", MinVolDB, MaxVolDB))
	}
	if upd.VolMin != nil && upd.VolMax != nil && *upd.VolMin > *upd.VolMax {
		return ErrInvalidField("vol_min", "vol_min must not exceed vol_max")
	}
	return nil
}

// ValidateStreamCommand reports whether cmd is syntactically a known command
// shape. Whether a given stream TYPE supports it is a separate, later check
// (streams.Streamer.SupportsCmd) since it depends on the stream's type.
func ValidateStreamCommand(cmd string) *AppError {
	if cmd == "" {
		return ErrInvalidField("cmd", "command must not be empty")
	}
	return nil
}

// knownStreamTypes lists the stream type strings the registry can construct.
var knownStreamTypes = map[string]bool{
	StreamTypePandora: true, StreamTypeAirPlay: true, StreamTypeSpotify: true,
	StreamTypeDLNA: true, StreamTypeInternetRadio: true, StreamTypeFMRadio: true,
	StreamTypeLMS: true, StreamTypeBluetooth: true, StreamTypeRCA: true,
	StreamTypeAux: true, StreamTypeFileplayer: true,
}

// ValidateStreamType reports whether typ is a recognized stream type.
func ValidateStreamType(typ string) *AppError {
	if !knownStreamTypes[typ] {
		return ErrInvalidField("type", fmt.Sprintf("unknown stream type %q", typ))
	}
	return nil
}

// ValidateGroupZoneIDs checks a group's member list has no duplicates.
func ValidateGroupZoneIDs(zoneIDs []int) *AppError {
	seen := make(map[int]bool, len(zoneIDs))
	for _, id := range zoneIDs {
		if seen[id] {
			return ErrInvalidField("zones", fmt.Sprintf("zone %d listed more than once", id))
		}
		seen[id] = true
	}
	return nil
}
