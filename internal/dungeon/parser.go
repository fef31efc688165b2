package dungeon

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Line tags.
const (
	tagDungeon = "d;"
	tagFloor   = "f;"
	tagComment = "c;"
)

// noCurrentDungeon marks the parser state before the first d; line.
const noCurrentDungeon = -1

// Payload is the JSON envelope the API returns for dungeon data.
type Payload struct {
	Version  int    `json:"v"`
	Dungeons string `json:"dungeons"`
}

// Parse decodes a full dungeon payload.
//
// Precondition: version is the schema version declared alongside payload.
// Postcondition: returns every dungeon in payload order with its floors
// attached, or a nil slice and the first error encountered.
func (d *Decoder) Parse(version int, payload string) ([]Dungeon, error) {
	if version != SupportedVersion {
		return nil, &UnsupportedVersionError{Version: version}
	}

	if payload == "" {
		return []Dungeon{}, nil
	}

	// One trailing newline is tolerated, so "\n" alone decodes to nothing.
	lines := strings.Split(payload, "\n")
	if n := len(lines); lines[n-1] == "" {
		lines = lines[:n-1]
	}

	dungeons := []Dungeon{}
	current := noCurrentDungeon

	for i, line := range lines {
		lineNo := i + 1
		tag, rest := splitTag(line)

		switch tag {
		case tagDungeon:
			fields, err := SplitRecord(rest)
			if err != nil {
				return nil, &LineError{Line: lineNo, Err: err}
			}
			dg, err := d.DecodeDungeon(fields)
			if err != nil {
				return nil, &LineError{Line: lineNo, Err: err}
			}
			dungeons = append(dungeons, dg)
			current = len(dungeons) - 1

		case tagFloor:
			if current == noCurrentDungeon {
				return nil, &MissingContextError{Line: lineNo}
			}
			fields, err := SplitRecord(rest)
			if err != nil {
				return nil, &LineError{Line: lineNo, Err: err}
			}
			floor, err := d.DecodeFloor(fields)
			if err != nil {
				return nil, &LineError{Line: lineNo, Err: err}
			}
			dungeons[current].Floors = append(dungeons[current].Floors, floor)

		case tagComment:
			// Separator records carry nothing we decode.

		default:
			return nil, &UnrecognizedLineError{Line: lineNo, Text: line}
		}
	}

	return dungeons, nil
}

// ParseJSON decodes a Payload envelope and parses its dungeon text.
func (d *Decoder) ParseJSON(data []byte) ([]Dungeon, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding dungeon payload: %w", err)
	}
	return d.Parse(p.Version, p.Dungeons)
}

// LoadFile reads and parses a dungeon data file written by the API pull.
func (d *Decoder) LoadFile(path string) ([]Dungeon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dungeon file %s: %w", path, err)
	}
	dungeons, err := d.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing dungeon file %s: %w", path, err)
	}
	return dungeons, nil
}

func splitTag(line string) (tag, rest string) {
	if len(line) < 2 {
		return line, ""
	}
	return line[:2], line[2:]
}
