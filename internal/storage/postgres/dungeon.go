package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/padetl/internal/dungeon"
)

// ErrPullNotFound is returned when a pull lookup yields no results.
var ErrPullNotFound = errors.New("dungeon pull not found")

// Pull describes one stored dungeon catalog.
type Pull struct {
	ID           uuid.UUID
	Server       string
	DungeonCount int
	FloorCount   int
	PulledAt     time.Time
}

var dungeonColumns = []string{
	"pull_id", "position", "dungeon_id", "name", "unknown_002", "clean_name",
	"alt_dungeon_type", "dungeon_type", "dungeon_comment", "repeat_day", "prefix", "raw",
}

var floorColumns = []string{
	"pull_id", "dungeon_position", "position", "floor_number", "raw_name",
	"unknown_002", "unknown_003", "stamina", "unknown_005", "unknown_006",
	"unknown_007", "unknown_008", "unknown_009", "unknown_010", "raw",
}

// DungeonRepository stores decoded dungeon catalogs, one pull at a time.
type DungeonRepository struct {
	db *pgxpool.Pool
}

// NewDungeonRepository creates a DungeonRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewDungeonRepository(db *pgxpool.Pool) *DungeonRepository {
	return &DungeonRepository{db: db}
}

// SavePull stores dungeons as a new pull for server in a single transaction.
//
// Postcondition: Returns the new pull id; either the whole catalog is stored
// or nothing is.
func (r *DungeonRepository) SavePull(ctx context.Context, server string, dungeons []dungeon.Dungeon) (uuid.UUID, error) {
	id := uuid.New()

	dungeonRows := make([][]any, 0, len(dungeons))
	var floorRows [][]any
	for i, dg := range dungeons {
		var dungeonType *string
		if dg.DungeonType != nil {
			s := string(*dg.DungeonType)
			dungeonType = &s
		}
		dungeonRows = append(dungeonRows, []any{
			id, i, dg.DungeonID, dg.Name, dg.Unknown002, dg.CleanName,
			string(dg.AltDungeonType), dungeonType, string(dg.DungeonComment),
			string(dg.RepeatDay), dg.Prefix, nonNil(dg.Raw),
		})
		for j, f := range dg.Floors {
			floorRows = append(floorRows, []any{
				id, i, j, f.FloorNumber, f.RawName,
				f.Unknown002, f.Unknown003, f.Stamina, f.Unknown005, f.Unknown006,
				f.Unknown007, f.Unknown008, f.Unknown009, f.Unknown010, nonNil(f.Raw),
			})
		}
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO dungeon_pulls (id, server, dungeon_count, floor_count)
			VALUES ($1, $2, $3, $4)`,
			id, server, len(dungeonRows), len(floorRows),
		); err != nil {
			return fmt.Errorf("inserting pull: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"dungeons"}, dungeonColumns, pgx.CopyFromRows(dungeonRows)); err != nil {
			return fmt.Errorf("copying dungeons: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"dungeon_floors"}, floorColumns, pgx.CopyFromRows(floorRows)); err != nil {
			return fmt.Errorf("copying floors: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// GetPull returns the pull with the given id.
//
// Postcondition: Returns the Pull or ErrPullNotFound.
func (r *DungeonRepository) GetPull(ctx context.Context, id uuid.UUID) (Pull, error) {
	return r.scanPull(r.db.QueryRow(ctx, `
		SELECT id, server, dungeon_count, floor_count, pulled_at
		FROM dungeon_pulls WHERE id = $1`, id))
}

// LatestPull returns the most recent pull stored for server.
//
// Postcondition: Returns the Pull or ErrPullNotFound.
func (r *DungeonRepository) LatestPull(ctx context.Context, server string) (Pull, error) {
	return r.scanPull(r.db.QueryRow(ctx, `
		SELECT id, server, dungeon_count, floor_count, pulled_at
		FROM dungeon_pulls WHERE server = $1
		ORDER BY pulled_at DESC, id
		LIMIT 1`, server))
}

func (r *DungeonRepository) scanPull(row pgx.Row) (Pull, error) {
	var p Pull
	err := row.Scan(&p.ID, &p.Server, &p.DungeonCount, &p.FloorCount, &p.PulledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pull{}, ErrPullNotFound
		}
		return Pull{}, fmt.Errorf("querying pull: %w", err)
	}
	return p, nil
}

// ListDungeons returns the dungeons of a pull in catalog order, each with
// its floors in payload order.
//
// Postcondition: Returns the dungeons (may be empty) or ErrPullNotFound.
func (r *DungeonRepository) ListDungeons(ctx context.Context, pullID uuid.UUID) ([]dungeon.Dungeon, error) {
	if _, err := r.GetPull(ctx, pullID); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT dungeon_id, name, unknown_002, clean_name, alt_dungeon_type,
		       dungeon_type, dungeon_comment, repeat_day, prefix, raw
		FROM dungeons WHERE pull_id = $1 ORDER BY position`, pullID)
	if err != nil {
		return nil, fmt.Errorf("listing dungeons: %w", err)
	}
	dungeons, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (dungeon.Dungeon, error) {
		var dg dungeon.Dungeon
		var altType, comment, repeat string
		var dungeonType *string
		err := row.Scan(&dg.DungeonID, &dg.Name, &dg.Unknown002, &dg.CleanName, &altType,
			&dungeonType, &comment, &repeat, &dg.Prefix, &dg.Raw)
		if err != nil {
			return dg, err
		}
		dg.AltDungeonType = dungeon.AltDungeonType(altType)
		dg.DungeonComment = dungeon.DungeonComment(comment)
		dg.RepeatDay = dungeon.RepeatDay(repeat)
		if dungeonType != nil {
			t := dungeon.DungeonType(*dungeonType)
			dg.DungeonType = &t
		}
		dg.Floors = []dungeon.DungeonFloor{}
		return dg, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning dungeons: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT dungeon_position, floor_number, raw_name, unknown_002, unknown_003,
		       stamina, unknown_005, unknown_006, unknown_007, unknown_008,
		       unknown_009, unknown_010, raw
		FROM dungeon_floors WHERE pull_id = $1
		ORDER BY dungeon_position, position`, pullID)
	if err != nil {
		return nil, fmt.Errorf("listing floors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pos int
		var f dungeon.DungeonFloor
		if err := rows.Scan(&pos, &f.FloorNumber, &f.RawName, &f.Unknown002, &f.Unknown003,
			&f.Stamina, &f.Unknown005, &f.Unknown006, &f.Unknown007, &f.Unknown008,
			&f.Unknown009, &f.Unknown010, &f.Raw); err != nil {
			return nil, fmt.Errorf("scanning floor: %w", err)
		}
		if pos < 0 || pos >= len(dungeons) {
			return nil, fmt.Errorf("floor references missing dungeon position %d", pos)
		}
		dungeons[pos].Floors = append(dungeons[pos].Floors, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating floors: %w", err)
	}
	return dungeons, nil
}

// DeletePull removes a pull and, by cascade, its dungeons and floors.
//
// Postcondition: Returns ErrPullNotFound if no pull had the id.
func (r *DungeonRepository) DeletePull(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM dungeon_pulls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting pull: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPullNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
