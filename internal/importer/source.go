package importer

import (
	"context"
	"fmt"

	"github.com/cory-johannsen/padetl/internal/dungeon"
)

// Source produces decoded dungeons for an import run.
//
// Postcondition: returns the dungeons in catalog order, or a non-nil error.
type Source interface {
	Load(ctx context.Context) ([]dungeon.Dungeon, error)
}

// FileSource reads a pulled download_dungeon_data.json file.
type FileSource struct {
	Path    string
	Decoder *dungeon.Decoder
}

// NewFileSource constructs a FileSource.
//
// Precondition: decoder must be non-nil.
func NewFileSource(path string, decoder *dungeon.Decoder) *FileSource {
	return &FileSource{Path: path, Decoder: decoder}
}

// Load decodes the file. ctx is checked before the read only; decoding is
// in-memory.
func (s *FileSource) Load(ctx context.Context) ([]dungeon.Dungeon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dungeons, err := s.Decoder.LoadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.Path, err)
	}
	return dungeons, nil
}
