package dungeon

import (
	"errors"
	"regexp"
	"strings"
)

// colorCode matches in-game colour markup such as ^ff0000^ or $00FF00$.
var colorCode = regexp.MustCompile(`(?i)[$^][a-f0-9]{6}[$^]`)

// StripColors removes all colour markup sequences from s.
func StripColors(s string) string {
	return colorCode.ReplaceAllString(s, "")
}

const (
	fieldSep = ','
	quote    = '\''
)

// ErrUnterminatedQuote is returned by SplitRecord when a quoted field is
// still open at the end of the record.
var ErrUnterminatedQuote = errors.New("unterminated quoted field")

type scanState int

const (
	startField scanState = iota
	inField
	inQuoted
	quoteInQuoted
)

// SplitRecord tokenizes s as a single comma-separated row whose quote
// character is '. Inside a quoted field '' stands for one quote. Text after
// a closing quote is appended to the same field, and a quote inside an
// unquoted field is literal. An empty string yields no fields.
func SplitRecord(s string) ([]string, error) {
	s = strings.TrimSuffix(s, "\r")
	if s == "" {
		return []string{}, nil
	}

	var (
		fields []string
		field  strings.Builder
		state  = startField
	)
	for _, r := range s {
		switch state {
		case startField:
			switch r {
			case quote:
				state = inQuoted
			case fieldSep:
				fields = append(fields, "")
			default:
				field.WriteRune(r)
				state = inField
			}
		case inField:
			if r == fieldSep {
				fields = append(fields, field.String())
				field.Reset()
				state = startField
				continue
			}
			field.WriteRune(r)
		case inQuoted:
			if r == quote {
				state = quoteInQuoted
				continue
			}
			field.WriteRune(r)
		case quoteInQuoted:
			switch r {
			case quote:
				field.WriteRune(quote)
				state = inQuoted
			case fieldSep:
				fields = append(fields, field.String())
				field.Reset()
				state = startField
			default:
				field.WriteRune(r)
				state = inField
			}
		}
	}
	if state == inQuoted {
		return nil, ErrUnterminatedQuote
	}
	return append(fields, field.String()), nil
}
