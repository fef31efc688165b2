package dungeon_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/padetl/internal/dungeon"
)

const samplePayload = "c;header,1\n" +
	"d;12345,'Tower of Trials',0,2,0,3\n" +
	"f;1,'Floor One',0,0,10,0,0,0,0,0,0\n" +
	"f;2,'Floor Two',0,0,15,0,0,0,0,0,0\n" +
	"c;separator\n" +
	"d;200,'#G#Ruins of the Star Vault 25',0,1,6,0\n" +
	"f;1,'Vault',0,0,50,0,0,0,0,0,0"

func floorLine(n int) string {
	return fmt.Sprintf("f;%d,'Floor %d',0,0,%d,0,0,0,0,0,0", n, n, n*5)
}

func TestParse_Sample(t *testing.T) {
	dungeons, err := newDecoder().Parse(4, samplePayload)
	require.NoError(t, err)
	require.Len(t, dungeons, 2)

	first := dungeons[0]
	assert.Equal(t, 12345, first.DungeonID)
	assert.Equal(t, "Tower of Trials", first.CleanName)
	assert.Nil(t, first.DungeonType)
	require.Len(t, first.Floors, 2)
	assert.Equal(t, 1, first.Floors[0].FloorNumber)
	assert.Equal(t, "Floor Two", first.Floors[1].RawName)
	assert.Equal(t, "15", first.Floors[1].Stamina)

	second := dungeons[1]
	require.NotNil(t, second.DungeonType)
	assert.Equal(t, dungeon.TypeGuerrilla, *second.DungeonType)
	assert.Equal(t, "#G#", second.Prefix)
	assert.Equal(t, "Ruins of the Star Vault 25", second.CleanName)
	assert.Equal(t, dungeon.RepeatSaturday, second.RepeatDay)
	require.Len(t, second.Floors, 1)
	assert.Equal(t, "Vault", second.Floors[0].RawName)
}

func TestParse_TrailingNewline(t *testing.T) {
	dungeons, err := newDecoder().Parse(4, samplePayload+"\n")
	require.NoError(t, err)
	assert.Len(t, dungeons, 2)
}

func TestParse_EmptyPayload(t *testing.T) {
	dungeons, err := newDecoder().Parse(4, "")
	require.NoError(t, err)
	assert.Empty(t, dungeons)
}

func TestParse_InteriorBlankLine(t *testing.T) {
	_, err := newDecoder().Parse(4, "d;1,a,0,0,0,0\n\nd;2,b,0,0,0,0")
	var lineErr *dungeon.UnrecognizedLineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
}

func TestParse_UnsupportedVersion(t *testing.T) {
	for _, v := range []int{0, 2, 3, 5} {
		dungeons, err := newDecoder().Parse(v, samplePayload)
		var verErr *dungeon.UnsupportedVersionError
		require.True(t, errors.As(err, &verErr), "version %d", v)
		assert.Equal(t, v, verErr.Version)
		assert.Nil(t, dungeons)
	}
}

func TestParse_UnsupportedVersionBeforeLines(t *testing.T) {
	// The payload is garbage; only the version error may surface.
	_, err := newDecoder().Parse(3, "x;nonsense")
	var verErr *dungeon.UnsupportedVersionError
	assert.True(t, errors.As(err, &verErr))
}

func TestParse_FloorBeforeDungeon(t *testing.T) {
	dungeons, err := newDecoder().Parse(4, floorLine(1)+"\nd;1,a,0,0,0,0")
	var ctxErr *dungeon.MissingContextError
	require.True(t, errors.As(err, &ctxErr))
	assert.Equal(t, 1, ctxErr.Line)
	assert.Nil(t, dungeons)
}

func TestParse_UnrecognizedTagAbortsWholeParse(t *testing.T) {
	payload := "d;1,a,0,0,0,0\n" + floorLine(1) + "\nx;oops"
	dungeons, err := newDecoder().Parse(4, payload)
	var lineErr *dungeon.UnrecognizedLineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 3, lineErr.Line)
	assert.Equal(t, "x;oops", lineErr.Text)
	assert.Nil(t, dungeons)
}

func TestParse_UnknownTypeAbortsWholeParse(t *testing.T) {
	payload := "d;1,a,0,0,0,0\nd;2,b,0,77,0,0"
	dungeons, err := newDecoder().Parse(4, payload)
	var typeErr *dungeon.UnknownDungeonTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, 77, typeErr.Code)
	var lineErr *dungeon.LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
	assert.Nil(t, dungeons)
}

func TestParse_MalformedFloor(t *testing.T) {
	_, err := newDecoder().Parse(4, "d;1,a,0,0,0,0\nf;1,short")
	var malformed *dungeon.MalformedRecordError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "floor", malformed.Kind)
}

func TestParse_NonNumericDungeonID(t *testing.T) {
	_, err := newDecoder().Parse(4, "d;abc,a,0,0,0,0")
	var decErr *dungeon.DecodeError
	assert.True(t, errors.As(err, &decErr))
}

func TestParse_NegativeDungeonIDAbortsWholeParse(t *testing.T) {
	dungeons, err := newDecoder().Parse(4, "d;1,a,0,0,0,0\nd;-7,'X',0,0,0,0")
	assert.ErrorIs(t, err, dungeon.ErrNegativeID)
	var lineErr *dungeon.LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
	assert.Nil(t, dungeons)
}

func TestParse_SingleNewline(t *testing.T) {
	dungeons, err := newDecoder().Parse(4, "\n")
	require.NoError(t, err)
	assert.Empty(t, dungeons)
	assert.NotNil(t, dungeons)
}

func TestParseJSON(t *testing.T) {
	data, err := json.Marshal(dungeon.Payload{Version: 4, Dungeons: samplePayload})
	require.NoError(t, err)
	dungeons, err := newDecoder().ParseJSON(data)
	require.NoError(t, err)
	assert.Len(t, dungeons, 2)
}

func TestParseJSON_WrongVersion(t *testing.T) {
	_, err := newDecoder().ParseJSON([]byte(`{"v": 3, "dungeons": "d;1,a,0,0,0,0"}`))
	var verErr *dungeon.UnsupportedVersionError
	assert.True(t, errors.As(err, &verErr))
}

func TestParseJSON_Invalid(t *testing.T) {
	_, err := newDecoder().ParseJSON([]byte(`{not json`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), dungeon.FileName)
	data, err := json.Marshal(dungeon.Payload{Version: 4, Dungeons: samplePayload})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	dungeons, err := newDecoder().LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, dungeons, 2)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := newDecoder().LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestParse_JSONShape(t *testing.T) {
	dungeons, err := newDecoder().Parse(4, "d;12345,'Tower of Trials',0,2,0,3")
	require.NoError(t, err)
	data, err := json.Marshal(dungeons)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Nil(t, decoded[0]["dungeon_type"])
	assert.Contains(t, decoded[0], "dungeon_type")
	assert.NotContains(t, decoded[0], "prefix")
	assert.Equal(t, "Tower of Trials", decoded[0]["clean_name"])
	assert.Equal(t, []any{}, decoded[0]["floors"])
}

// Property: each dungeon's floors appear exactly in the order of the f;
// lines that followed it in the payload.
func TestParse_FloorOrderPreserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		counts := rapid.SliceOfN(rapid.IntRange(0, 6), 1, 6).Draw(t, "floorsPerDungeon")

		var lines []string
		var want [][]int
		for i, n := range counts {
			lines = append(lines, fmt.Sprintf("d;%d,'Dungeon %d',0,0,0,0", i+1, i+1))
			numbers := rapid.SliceOfN(rapid.IntRange(1, 99), n, n).Draw(t, fmt.Sprintf("floors%d", i))
			for _, num := range numbers {
				lines = append(lines, floorLine(num))
				if rapid.Bool().Draw(t, "separator") {
					lines = append(lines, "c;sep")
				}
			}
			want = append(want, append([]int{}, numbers...))
		}

		dungeons, err := newDecoder().Parse(4, strings.Join(lines, "\n"))
		require.NoError(t, err)
		require.Len(t, dungeons, len(counts))
		for i, dg := range dungeons {
			got := make([]int, 0, len(dg.Floors))
			for _, f := range dg.Floors {
				got = append(got, f.FloorNumber)
			}
			assert.Equal(t, want[i], got, "dungeon %d", i+1)
		}
	})
}

// Property: an unrecognized tag anywhere aborts the parse with no results.
func TestParse_UnrecognizedTagAnywhere(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "lines")
		bad := rapid.IntRange(0, n).Draw(t, "badIndex")
		tag := rapid.SampledFrom([]string{"x;", "D;", "ff", "d:", "z"}).Draw(t, "tag")

		lines := make([]string, 0, n+1)
		for i := 0; i < n; i++ {
			lines = append(lines, fmt.Sprintf("d;%d,a,0,0,0,0", i))
		}
		lines = append(lines[:bad], append([]string{tag + "1,2,3"}, lines[bad:]...)...)

		dungeons, err := newDecoder().Parse(4, strings.Join(lines, "\n"))
		var lineErr *dungeon.UnrecognizedLineError
		require.True(t, errors.As(err, &lineErr))
		assert.Equal(t, bad+1, lineErr.Line)
		assert.Nil(t, dungeons)
	})
}
