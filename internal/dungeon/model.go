// Package dungeon decodes the dungeon catalog payload served by the game API
// into Dungeon and DungeonFloor records.
package dungeon

// FileName is the conventional name of the pulled dungeon data file.
const FileName = "download_dungeon_data.json"

// SupportedVersion is the only payload schema version Parse accepts.
const SupportedVersion = 4

// Dungeon is a top-level entry in the dungeon catalog.
//
// Floors holds the floors that followed this dungeon's line in the payload,
// in payload order.
type Dungeon struct {
	DungeonID      int            `json:"dungeon_id" yaml:"dungeon_id"`
	Name           string         `json:"name" yaml:"name"`
	Unknown002     int            `json:"unknown_002" yaml:"unknown_002"`
	CleanName      string         `json:"clean_name" yaml:"clean_name"`
	AltDungeonType AltDungeonType `json:"alt_dungeon_type" yaml:"alt_dungeon_type"`
	DungeonType    *DungeonType   `json:"dungeon_type" yaml:"dungeon_type"`
	DungeonComment DungeonComment `json:"dungeon_comment" yaml:"dungeon_comment"`
	RepeatDay      RepeatDay      `json:"repeat_day" yaml:"repeat_day"`
	Prefix         string         `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Floors         []DungeonFloor `json:"floors" yaml:"floors"`
	Raw            []string       `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// HasPrefix reports whether a prefix rule matched the dungeon's name.
func (d Dungeon) HasPrefix() bool {
	return d.Prefix != ""
}

// DungeonFloor is one floor listed inside a Dungeon. Apart from FloorNumber
// and RawName the fields are kept verbatim and are not interpreted.
type DungeonFloor struct {
	FloorNumber int      `json:"floor_number" yaml:"floor_number"`
	RawName     string   `json:"raw_name" yaml:"raw_name"`
	Unknown002  string   `json:"unknown_002" yaml:"unknown_002"`
	Unknown003  string   `json:"unknown_003" yaml:"unknown_003"`
	Stamina     string   `json:"stamina" yaml:"stamina"`
	Unknown005  string   `json:"unknown_005" yaml:"unknown_005"`
	Unknown006  string   `json:"unknown_006" yaml:"unknown_006"`
	Unknown007  string   `json:"unknown_007" yaml:"unknown_007"`
	Unknown008  string   `json:"unknown_008" yaml:"unknown_008"`
	Unknown009  string   `json:"unknown_009" yaml:"unknown_009"`
	Unknown010  string   `json:"unknown_010" yaml:"unknown_010"`
	Raw         []string `json:"raw,omitempty" yaml:"raw,omitempty"`
}
