package config

// Polygon flags understood by query filters. The tile cache marks walkable
// polygons with SAMPLE_POLYFLAGS_WALK and obstacle polygons with
// SAMPLE_POLYFLAGS_DISABLED.
const (
	SAMPLE_POLYFLAGS_WALK     = 0x01   // Ability to walk (ground, grass, road)
	SAMPLE_POLYFLAGS_SWIM     = 0x02   // Ability to swim (water).
	SAMPLE_POLYFLAGS_DOOR     = 0x04   // Ability to move through doors.
	SAMPLE_POLYFLAGS_JUMP     = 0x08   // Ability to jump.
	SAMPLE_POLYFLAGS_DISABLED = 0x10   // Disabled polygon
	SAMPLE_POLYFLAGS_ALL      = 0xffff // All abilities.

	DESC_SAMPLE_POLYFLAGS_WALK     = "walk"
	DESC_SAMPLE_POLYFLAGS_SWIM     = "swim"
	DESC_SAMPLE_POLYFLAGS_DOOR     = "door"
	DESC_SAMPLE_POLYFLAGS_JUMP     = "jump"
	DESC_SAMPLE_POLYFLAGS_DISABLED = "disabled"
	DESC_SAMPLE_POLYFLAGS_ALL      = "all"
)

var polyFlagsByDesc = map[string]uint16{
	DESC_SAMPLE_POLYFLAGS_WALK:     SAMPLE_POLYFLAGS_WALK,
	DESC_SAMPLE_POLYFLAGS_SWIM:     SAMPLE_POLYFLAGS_SWIM,
	DESC_SAMPLE_POLYFLAGS_DOOR:     SAMPLE_POLYFLAGS_DOOR,
	DESC_SAMPLE_POLYFLAGS_JUMP:     SAMPLE_POLYFLAGS_JUMP,
	DESC_SAMPLE_POLYFLAGS_DISABLED: SAMPLE_POLYFLAGS_DISABLED,
	DESC_SAMPLE_POLYFLAGS_ALL:      SAMPLE_POLYFLAGS_ALL,
}

const (
	DT_STRAIGHTPATH_NONE_CROSSINGS = "none"
	DT_STRAIGHTPATH_AREA_CROSSINGS = "area"
	DT_STRAIGHTPATH_ALL_CROSSINGS  = "all"
)
