package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/padetl/internal/dungeon"
)

// Output formats understood by FileSink.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Sink receives the decoded dungeons of an import run.
type Sink interface {
	Name() string
	Write(ctx context.Context, dungeons []dungeon.Dungeon) error
}

// PullStore persists one pull of dungeons for a server and returns its id.
type PullStore interface {
	SavePull(ctx context.Context, server string, dungeons []dungeon.Dungeon) (uuid.UUID, error)
}

// FileSink writes dungeons into Dir. By default all dungeons go into a single
// dungeons.<format> file; with PerDungeon each dungeon gets its own file
// named <id>_<slug>.<format>.
type FileSink struct {
	Dir        string
	Format     string
	PerDungeon bool
	logger     *zap.Logger
}

// NewFileSink validates format and constructs a FileSink.
func NewFileSink(dir, format string, perDungeon bool, logger *zap.Logger) (*FileSink, error) {
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("unsupported output format %q (want %s or %s)", format, FormatJSON, FormatYAML)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSink{Dir: dir, Format: format, PerDungeon: perDungeon, logger: logger}, nil
}

// Name implements Sink.
func (s *FileSink) Name() string { return s.Format + ":" + s.Dir }

// Write implements Sink. Every encoded document is decoded again and checked
// before it is written.
func (s *FileSink) Write(ctx context.Context, dungeons []dungeon.Dungeon) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", s.Dir, err)
	}
	if !s.PerDungeon {
		return s.writeFile(filepath.Join(s.Dir, "dungeons."+s.Format), dungeons)
	}
	for _, dg := range dungeons {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := strconv.Itoa(dg.DungeonID)
		if slug := Slug(dg.CleanName); slug != "" {
			name += "_" + slug
		}
		if err := s.writeFile(filepath.Join(s.Dir, name+"."+s.Format), []dungeon.Dungeon{dg}); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSink) writeFile(path string, dungeons []dungeon.Dungeon) error {
	data, err := s.encode(dungeons)
	if err != nil {
		return fmt.Errorf("serialising %s: %w", path, err)
	}
	if err := s.verify(data, dungeons); err != nil {
		return fmt.Errorf("%s failed validation: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	s.logger.Debug("wrote", zap.String("path", path), zap.Int("dungeons", len(dungeons)))
	return nil
}

func (s *FileSink) encode(dungeons []dungeon.Dungeon) ([]byte, error) {
	if s.Format == FormatYAML {
		return yaml.Marshal(dungeons)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(dungeons); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// verify decodes data and checks that dungeon ids and floor counts survived.
func (s *FileSink) verify(data []byte, want []dungeon.Dungeon) error {
	var got []dungeon.Dungeon
	var err error
	if s.Format == FormatYAML {
		err = yaml.Unmarshal(data, &got)
	} else {
		err = json.Unmarshal(data, &got)
	}
	if err != nil {
		return err
	}
	if len(got) != len(want) {
		return fmt.Errorf("decoded %d dungeons, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].DungeonID != want[i].DungeonID || len(got[i].Floors) != len(want[i].Floors) {
			return fmt.Errorf("dungeon %d did not survive encoding", want[i].DungeonID)
		}
	}
	return nil
}

// StoreSink records the dungeons as a new pull in a PullStore.
type StoreSink struct {
	Store  PullStore
	Server string
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink.
//
// Precondition: store must be non-nil and server non-empty.
func NewStoreSink(store PullStore, server string, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{Store: store, Server: server, logger: logger}
}

// Name implements Sink.
func (s *StoreSink) Name() string { return "store:" + s.Server }

// Write implements Sink.
func (s *StoreSink) Write(ctx context.Context, dungeons []dungeon.Dungeon) error {
	id, err := s.Store.SavePull(ctx, s.Server, dungeons)
	if err != nil {
		return fmt.Errorf("saving pull for %s: %w", s.Server, err)
	}
	s.logger.Info("stored pull", zap.String("server", s.Server), zap.Stringer("pull_id", id), zap.Int("dungeons", len(dungeons)))
	return nil
}
