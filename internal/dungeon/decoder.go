package dungeon

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	dungeonFields = 6
	floorFields   = 11
)

// Decoder turns tokenized records and whole payloads into Dungeons using a
// fixed set of lookup Tables. A Decoder holds no per-parse state and may be
// reused.
type Decoder struct {
	tables Tables
	logger *zap.Logger
}

// NewDecoder constructs a Decoder.
//
// Precondition: tables.AltTypes must be non-nil for any dungeon to decode.
// A nil logger is replaced by a no-op logger.
func NewDecoder(tables Tables, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{tables: tables, logger: logger}
}

// DecodeDungeon builds a Dungeon from the fields of one d; record.
//
// Precondition: fields holds at least 6 entries; extra trailing fields are
// logged and ignored.
// Postcondition: returns a fully populated Dungeon with an empty floor list,
// or a non-nil error.
func (d *Decoder) DecodeDungeon(fields []string) (Dungeon, error) {
	if len(fields) < dungeonFields {
		return Dungeon{}, &MalformedRecordError{Kind: "dungeon", Fields: len(fields), Want: dungeonFields}
	}

	id, err := intField(fields, 0, "dungeon_id")
	if err != nil {
		return Dungeon{}, err
	}
	if id < 0 {
		return Dungeon{}, &DecodeError{Field: "dungeon_id", Raw: fields, Err: ErrNegativeID}
	}
	unknown002, err := intField(fields, 2, "unknown_002")
	if err != nil {
		return Dungeon{}, err
	}
	typeCode, err := intField(fields, 3, "alt_dungeon_type")
	if err != nil {
		return Dungeon{}, err
	}
	dayCode, err := intField(fields, 4, "repeat_day")
	if err != nil {
		return Dungeon{}, err
	}
	commentCode, err := intField(fields, 5, "dungeon_comment")
	if err != nil {
		return Dungeon{}, err
	}

	out := Dungeon{
		DungeonID:  id,
		Name:       fields[1],
		Unknown002: unknown002,
		CleanName:  StripColors(fields[1]),
		Floors:     []DungeonFloor{},
		Raw:        append([]string(nil), fields...),
	}

	out.AltDungeonType, err = d.tables.AltType(typeCode)
	if err != nil {
		return Dungeon{}, err
	}

	// DungeonType comes only from the name prefix; the type code above is
	// kept separately as AltDungeonType and never feeds into it.
	if rule, ok := d.tables.MatchPrefix(out.CleanName); ok {
		t := rule.Type
		out.DungeonType = &t
		out.Prefix = rule.Prefix
		out.CleanName = strings.TrimPrefix(out.CleanName, rule.Prefix)
	}

	out.DungeonComment = d.tables.Comment(commentCode)
	out.RepeatDay = d.tables.RepeatDay(dayCode)

	if len(fields) > dungeonFields {
		d.logger.Warn("unexpected field count",
			zap.Int("dungeon_id", id),
			zap.Int("fields", len(fields)),
			zap.String("raw", strings.Join(fields, ",")),
		)
	}
	return out, nil
}

// DecodeFloor builds a DungeonFloor from the fields of one f; record.
//
// Precondition: fields holds at least 11 entries.
// Postcondition: returns the floor or a non-nil error.
func (d *Decoder) DecodeFloor(fields []string) (DungeonFloor, error) {
	if len(fields) < floorFields {
		return DungeonFloor{}, &MalformedRecordError{Kind: "floor", Fields: len(fields), Want: floorFields}
	}
	number, err := intField(fields, 0, "floor_number")
	if err != nil {
		return DungeonFloor{}, err
	}
	return DungeonFloor{
		FloorNumber: number,
		RawName:     fields[1],
		Unknown002:  fields[2],
		Unknown003:  fields[3],
		Stamina:     fields[4],
		Unknown005:  fields[5],
		Unknown006:  fields[6],
		Unknown007:  fields[7],
		Unknown008:  fields[8],
		Unknown009:  fields[9],
		Unknown010:  fields[10],
		Raw:         append([]string(nil), fields...),
	}, nil
}

func intField(fields []string, i int, name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(fields[i]))
	if err != nil {
		return 0, &DecodeError{Field: name, Raw: fields, Err: err}
	}
	return n, nil
}
