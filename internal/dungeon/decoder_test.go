package dungeon_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/padetl/internal/dungeon"
)

func newDecoder() *dungeon.Decoder {
	return dungeon.NewDecoder(dungeon.DefaultTables(), zap.NewNop())
}

func TestDecodeDungeon_NoPrefix(t *testing.T) {
	dg, err := newDecoder().DecodeDungeon([]string{"12345", "Tower of Trials", "0", "2", "0", "3"})
	require.NoError(t, err)

	assert.Equal(t, 12345, dg.DungeonID)
	assert.Equal(t, "Tower of Trials", dg.Name)
	assert.Equal(t, "Tower of Trials", dg.CleanName)
	assert.Equal(t, dungeon.AltTypeTechnical, dg.AltDungeonType)
	assert.Equal(t, dungeon.RepeatNone, dg.RepeatDay)
	assert.Equal(t, dungeon.CommentRareDrops, dg.DungeonComment)
	assert.Nil(t, dg.DungeonType)
	assert.False(t, dg.HasPrefix())
	assert.Empty(t, dg.Floors)
	assert.NotNil(t, dg.Floors)
}

func TestDecodeDungeon_GuerrillaPrefix(t *testing.T) {
	dg, err := newDecoder().DecodeDungeon([]string{"200", "#G#Ruins of the Star Vault 25", "0", "1", "0", "0"})
	require.NoError(t, err)

	require.NotNil(t, dg.DungeonType)
	assert.Equal(t, dungeon.TypeGuerrilla, *dg.DungeonType)
	assert.Equal(t, "#G#", dg.Prefix)
	assert.Equal(t, "Ruins of the Star Vault 25", dg.CleanName)
	assert.Equal(t, "#G#Ruins of the Star Vault 25", dg.Name)
}

func TestDecodeDungeon_PrefixAfterColorMarkup(t *testing.T) {
	dg, err := newDecoder().DecodeDungeon([]string{"201", "^fcd000^#C#Rurouni Kenshin", "0", "1", "0", "0"})
	require.NoError(t, err)

	require.NotNil(t, dg.DungeonType)
	assert.Equal(t, dungeon.TypeCollab, *dg.DungeonType)
	assert.Equal(t, "Rurouni Kenshin", dg.CleanName)
}

func TestDecodeDungeon_PrefixOnlyAtStart(t *testing.T) {
	dg, err := newDecoder().DecodeDungeon([]string{"202", "Vault #G# 25", "0", "1", "0", "0"})
	require.NoError(t, err)
	assert.Nil(t, dg.DungeonType)
	assert.Equal(t, "Vault #G# 25", dg.CleanName)
}

func TestDecodeDungeon_FirstPrefixWins(t *testing.T) {
	tables := dungeon.DefaultTables()
	tables.Prefixes = []dungeon.PrefixRule{
		{Prefix: "#G", Type: dungeon.TypeUnknown1},
		{Prefix: "#G#", Type: dungeon.TypeGuerrilla},
	}
	dg, err := dungeon.NewDecoder(tables, nil).DecodeDungeon([]string{"1", "#G#Vault", "0", "0", "0", "0"})
	require.NoError(t, err)
	require.NotNil(t, dg.DungeonType)
	assert.Equal(t, dungeon.TypeUnknown1, *dg.DungeonType)
	assert.Equal(t, "#G", dg.Prefix)
	assert.Equal(t, "#Vault", dg.CleanName)
}

func TestDecodeDungeon_RepeatDays(t *testing.T) {
	want := map[int]dungeon.RepeatDay{
		0:  dungeon.RepeatNone,
		1:  dungeon.RepeatMonday,
		3:  dungeon.RepeatWednesday,
		7:  dungeon.RepeatSunday,
		8:  dungeon.RepeatNone,
		-1: dungeon.RepeatNone,
	}
	for code, day := range want {
		dg, err := newDecoder().DecodeDungeon([]string{"1", "x", "0", "0", strconv.Itoa(code), "0"})
		require.NoError(t, err)
		assert.Equal(t, day, dg.RepeatDay, "code %d", code)
	}
}

func TestDecodeDungeon_UnknownCommentDefaults(t *testing.T) {
	dg, err := newDecoder().DecodeDungeon([]string{"1", "x", "0", "0", "0", "999999"})
	require.NoError(t, err)
	assert.Equal(t, dungeon.CommentNone, dg.DungeonComment)
}

func TestDecodeDungeon_UnknownType(t *testing.T) {
	_, err := newDecoder().DecodeDungeon([]string{"1", "x", "0", "42", "0", "0"})
	var typeErr *dungeon.UnknownDungeonTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, 42, typeErr.Code)
}

func TestDecodeDungeon_NonNumericID(t *testing.T) {
	_, err := newDecoder().DecodeDungeon([]string{"abc", "x", "0", "0", "0", "0"})
	var decErr *dungeon.DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "dungeon_id", decErr.Field)
	assert.Equal(t, []string{"abc", "x", "0", "0", "0", "0"}, decErr.Raw)
}

func TestDecodeDungeon_NegativeID(t *testing.T) {
	_, err := newDecoder().DecodeDungeon([]string{"-7", "X", "0", "0", "0", "0"})
	var decErr *dungeon.DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "dungeon_id", decErr.Field)
	assert.ErrorIs(t, err, dungeon.ErrNegativeID)
}

func TestDecodeDungeon_TooFewFields(t *testing.T) {
	_, err := newDecoder().DecodeDungeon([]string{"1", "x", "0", "0", "0"})
	var malformed *dungeon.MalformedRecordError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "dungeon", malformed.Kind)
	assert.Equal(t, 5, malformed.Fields)
}

func TestDecodeDungeon_ExtraFieldsWarn(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dec := dungeon.NewDecoder(dungeon.DefaultTables(), zap.New(core))

	dg, err := dec.DecodeDungeon([]string{"7", "Extra", "0", "0", "0", "0", "surprise"})
	require.NoError(t, err)
	assert.Equal(t, 7, dg.DungeonID)
	assert.Equal(t, "Extra", dg.CleanName)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "unexpected field count", logs.All()[0].Message)
}

func TestDecodeDungeon_KeepsRawCopy(t *testing.T) {
	fields := []string{"1", "x", "0", "0", "0", "0"}
	dg, err := newDecoder().DecodeDungeon(fields)
	require.NoError(t, err)
	fields[1] = "mutated"
	assert.Equal(t, "x", dg.Raw[1])
}

func TestDecodeFloor(t *testing.T) {
	fields := []string{"3", "Floor Three", "a", "b", "25", "c", "d", "e", "f", "g", "h"}
	floor, err := newDecoder().DecodeFloor(fields)
	require.NoError(t, err)

	assert.Equal(t, 3, floor.FloorNumber)
	assert.Equal(t, "Floor Three", floor.RawName)
	assert.Equal(t, "a", floor.Unknown002)
	assert.Equal(t, "b", floor.Unknown003)
	assert.Equal(t, "25", floor.Stamina)
	assert.Equal(t, "c", floor.Unknown005)
	assert.Equal(t, "h", floor.Unknown010)
	assert.Equal(t, fields, floor.Raw)
}

func TestDecodeFloor_TooFewFields(t *testing.T) {
	_, err := newDecoder().DecodeFloor([]string{"1", "x", "0"})
	var malformed *dungeon.MalformedRecordError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "floor", malformed.Kind)
	assert.Equal(t, 11, malformed.Want)
}

func TestDecodeFloor_NonNumericNumber(t *testing.T) {
	_, err := newDecoder().DecodeFloor([]string{"one", "x", "", "", "", "", "", "", "", "", ""})
	var decErr *dungeon.DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "floor_number", decErr.Field)
}

// Property: prefix stripping and colour stripping compose losslessly.
func TestDecodeDungeon_PrefixRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.SampledFrom([]string{"", "#G#", "#1#", "#C#"}).Draw(t, "prefix")
		color := rapid.StringMatching(`([$^][0-9a-f]{6}[$^])?`).Draw(t, "color")
		body := rapid.StringMatching(`[A-Za-z0-9 ]{0,20}`).Draw(t, "body")
		name := color + prefix + body

		dg, err := newDecoder().DecodeDungeon([]string{"1", name, "0", "0", "0", "0"})
		require.NoError(t, err)

		assert.Equal(t, dungeon.StripColors(name), dg.Prefix+dg.CleanName)
		if prefix != "" {
			assert.NotContains(t, dg.CleanName, dg.Prefix)
		}
		assert.Equal(t, prefix, dg.Prefix)
		assert.Equal(t, prefix != "", dg.DungeonType != nil)
	})
}

// Property: every code absent from the type table is rejected.
func TestDecodeDungeon_UnknownTypeCodes(t *testing.T) {
	tables := dungeon.DefaultTables()
	rapid.Check(t, func(t *rapid.T) {
		code := rapid.IntRange(-1000, 1000).Filter(func(c int) bool {
			_, ok := tables.AltTypes[c]
			return !ok
		}).Draw(t, "code")
		_, err := newDecoder().DecodeDungeon([]string{"1", "x", "0", strconv.Itoa(code), "0", "0"})
		var typeErr *dungeon.UnknownDungeonTypeError
		assert.True(t, errors.As(err, &typeErr))
	})
}
