package dungeon

import (
	"errors"
	"fmt"
	"strings"
)

// UnsupportedVersionError is returned when a payload declares a schema
// version other than SupportedVersion. No line is read in that case.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported dungeon data version %d (want %d)", e.Version, SupportedVersion)
}

// UnrecognizedLineError is returned for a line whose tag is not d;, f; or c;.
type UnrecognizedLineError struct {
	Line int
	Text string
}

func (e *UnrecognizedLineError) Error() string {
	return fmt.Sprintf("line %d: unexpected line: %q", e.Line, e.Text)
}

// MissingContextError is returned when a floor line precedes every dungeon line.
type MissingContextError struct {
	Line int
}

func (e *MissingContextError) Error() string {
	return fmt.Sprintf("line %d: floor record has no enclosing dungeon", e.Line)
}

// UnknownDungeonTypeError is returned when a type code is absent from the
// AltTypes table.
type UnknownDungeonTypeError struct {
	Code int
}

func (e *UnknownDungeonTypeError) Error() string {
	return fmt.Sprintf("unknown dungeon type code %d", e.Code)
}

// MalformedRecordError is returned when a record has fewer fields than its
// kind requires.
type MalformedRecordError struct {
	Kind   string
	Fields int
	Want   int
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record: %d field(s), want at least %d", e.Kind, e.Fields, e.Want)
}

// ErrNegativeID is wrapped by a DecodeError when a dungeon id is below zero.
var ErrNegativeID = errors.New("negative id")

// DecodeError reports a required field that could not be converted.
type DecodeError struct {
	Field string
	Raw   []string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s from [%s]: %v", e.Field, strings.Join(e.Raw, ","), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// LineError attaches the 1-based payload line number to a record failure.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }
