package dungeon

import "strings"

// AltDungeonType is the catalog category carried by the type code field.
type AltDungeonType string

// Known AltDungeonType values.
const (
	AltTypeNormal      AltDungeonType = "normal"
	AltTypeSpecial     AltDungeonType = "special"
	AltTypeTechnical   AltDungeonType = "technical"
	AltTypeGift        AltDungeonType = "gift"
	AltTypeRanking     AltDungeonType = "ranking"
	AltTypeUnknown5    AltDungeonType = "unknown-5"
	AltTypeThreePlayer AltDungeonType = "three-player"
	AltTypeMultiplayer AltDungeonType = "multiplayer"
	AltTypeStory       AltDungeonType = "story"
	AltTypeSolo        AltDungeonType = "solo"
)

// DungeonType is the classification inferred from a name prefix.
type DungeonType string

// Known DungeonType values.
const (
	TypeGuerrilla DungeonType = "guerrilla"
	TypeUnknown1  DungeonType = "unknown-1"
	TypeCollab    DungeonType = "collab"
)

// DungeonComment is a secondary annotation that singles out some dungeons
// independently of their type.
type DungeonComment string

// Known DungeonComment values. CommentNone is used for every unlisted code.
const (
	CommentNone        DungeonComment = ""
	CommentLimitedTime DungeonComment = "limited-time"
	CommentCollab      DungeonComment = "collab"
	CommentRareDrops   DungeonComment = "rare-drops"
	CommentSkillUp     DungeonComment = "skill-up"
	CommentEvolution   DungeonComment = "evolution"
	CommentExperience  DungeonComment = "experience"
	CommentCoins       DungeonComment = "coins"
)

// RepeatDay is the weekday on which a dungeon recurs.
type RepeatDay string

// RepeatDay values. RepeatNone covers zero and out-of-range codes.
const (
	RepeatNone      RepeatDay = ""
	RepeatMonday    RepeatDay = "monday"
	RepeatTuesday   RepeatDay = "tuesday"
	RepeatWednesday RepeatDay = "wednesday"
	RepeatThursday  RepeatDay = "thursday"
	RepeatFriday    RepeatDay = "friday"
	RepeatSaturday  RepeatDay = "saturday"
	RepeatSunday    RepeatDay = "sunday"
)

// PrefixRule maps a leading name marker to a DungeonType.
type PrefixRule struct {
	Prefix string
	Type   DungeonType
}

// Tables holds the code lookups used by a Decoder. Prefixes is ordered and
// the first matching rule wins.
type Tables struct {
	AltTypes   map[int]AltDungeonType
	Comments   map[int]DungeonComment
	RepeatDays map[int]RepeatDay
	Prefixes   []PrefixRule
}

// DefaultTables returns the curated lookup tables for the current payload
// format. Each call returns fresh maps, so callers may modify the result.
func DefaultTables() Tables {
	return Tables{
		AltTypes: map[int]AltDungeonType{
			0: AltTypeNormal,
			1: AltTypeSpecial,
			2: AltTypeTechnical,
			3: AltTypeGift,
			4: AltTypeRanking,
			5: AltTypeUnknown5,
			6: AltTypeThreePlayer,
			7: AltTypeMultiplayer,
			8: AltTypeStory,
			9: AltTypeSolo,
		},
		Comments: map[int]DungeonComment{
			0: CommentNone,
			1: CommentLimitedTime,
			2: CommentCollab,
			3: CommentRareDrops,
			4: CommentSkillUp,
			5: CommentEvolution,
			6: CommentExperience,
			7: CommentCoins,
		},
		RepeatDays: map[int]RepeatDay{
			1: RepeatMonday,
			2: RepeatTuesday,
			3: RepeatWednesday,
			4: RepeatThursday,
			5: RepeatFriday,
			6: RepeatSaturday,
			7: RepeatSunday,
		},
		Prefixes: []PrefixRule{
			// #G#Ruins of the Star Vault 25
			{Prefix: "#G#", Type: TypeGuerrilla},
			// #1#Star Treasure of the Night Sky 25
			{Prefix: "#1#", Type: TypeUnknown1},
			// #C#Rurouni Kenshin dung
			{Prefix: "#C#", Type: TypeCollab},
		},
	}
}

// AltType looks up the catalog type for code.
//
// Postcondition: returns *UnknownDungeonTypeError when code has no entry.
func (t Tables) AltType(code int) (AltDungeonType, error) {
	v, ok := t.AltTypes[code]
	if !ok {
		return "", &UnknownDungeonTypeError{Code: code}
	}
	return v, nil
}

// Comment looks up the annotation for code, defaulting to CommentNone.
func (t Tables) Comment(code int) DungeonComment {
	if v, ok := t.Comments[code]; ok {
		return v
	}
	return CommentNone
}

// RepeatDay looks up the weekday for code, defaulting to RepeatNone.
func (t Tables) RepeatDay(code int) RepeatDay {
	if v, ok := t.RepeatDays[code]; ok {
		return v
	}
	return RepeatNone
}

// MatchPrefix returns the first rule whose prefix starts name.
func (t Tables) MatchPrefix(name string) (PrefixRule, bool) {
	for _, rule := range t.Prefixes {
		if rule.Prefix != "" && strings.HasPrefix(name, rule.Prefix) {
			return rule, true
		}
	}
	return PrefixRule{}, false
}
