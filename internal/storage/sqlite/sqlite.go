package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/potlab/ecx/internal/log"
	"github.com/potlab/ecx/internal/model"
	"github.com/potlab/ecx/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateGroup creates a new run group in the repository.
func (r *Repository) CreateGroup(ctx context.Context, g model.RunGroup) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO run_groups (id, experiment_name, subdir, client_datetime, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query, g.ID, g.ExperimentName, g.Subdir, g.ClientDateTime.Unix(), g.CreatedAt.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: run_groups.") {
			return fmt.Errorf("group already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert group: %w", err)
	}

	for _, ref := range g.Refs {
		if err := insertRunRef(ctx, tx, ref); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Created group in repository: %s", g.ID)
	return nil
}

// AddRunRef appends one run ref to an existing group.
func (r *Repository) AddRunRef(ctx context.Context, ref model.RunRef) error {
	if err := insertRunRef(ctx, r.db, ref); err != nil {
		return err
	}

	r.logger.Debugf("Added run ref to group %s: run %s on box %s", ref.GroupID, ref.RunID, ref.BoxID)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRunRef(ctx context.Context, db execer, ref model.RunRef) error {
	query := `
		INSERT INTO run_refs (group_id, box_id, run_id, well_id, slot)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query, ref.GroupID, ref.BoxID, ref.RunID, ref.WellID, ref.Slot)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: run_refs.") {
			return fmt.Errorf("run ref already exists: %w", model.ErrAlreadyExists)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return fmt.Errorf("group %s: %w", ref.GroupID, model.ErrNotFound)
		}
		return fmt.Errorf("could not insert run ref: %w", err)
	}
	return nil
}

// GetGroup retrieves a group and its run refs by id. Refs keep dispatch order.
func (r *Repository) GetGroup(ctx context.Context, id string) (*model.RunGroup, error) {
	query := `
		SELECT id, experiment_name, subdir, client_datetime, created_at
		FROM run_groups
		WHERE id = ?
	`

	var g model.RunGroup
	var clientDateTime, createdAt int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.ExperimentName, &g.Subdir, &clientDateTime, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query group: %w", err)
	}
	g.ClientDateTime = timeFromUnix(clientDateTime)
	g.CreatedAt = timeFromUnix(createdAt)

	refs, err := r.groupRefs(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Refs = refs

	return &g, nil
}

// ListGroups returns all groups, newest first, with their run refs.
func (r *Repository) ListGroups(ctx context.Context) ([]model.RunGroup, error) {
	query := `
		SELECT id, experiment_name, subdir, client_datetime, created_at
		FROM run_groups
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query groups: %w", err)
	}
	defer rows.Close()

	var groups []model.RunGroup
	for rows.Next() {
		var g model.RunGroup
		var clientDateTime, createdAt int64
		if err := rows.Scan(&g.ID, &g.ExperimentName, &g.Subdir, &clientDateTime, &createdAt); err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		g.ClientDateTime = timeFromUnix(clientDateTime)
		g.CreatedAt = timeFromUnix(createdAt)
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	for i := range groups {
		refs, err := r.groupRefs(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].Refs = refs
	}

	return groups, nil
}

// DeleteGroup deletes a group and its run refs.
func (r *Repository) DeleteGroup(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM run_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete group: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("group %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Deleted group from repository: %s", id)
	return nil
}

func (r *Repository) groupRefs(ctx context.Context, groupID string) ([]model.RunRef, error) {
	// rowid order is insertion order, which is dispatch order.
	query := `
		SELECT group_id, box_id, run_id, well_id, slot
		FROM run_refs
		WHERE group_id = ?
		ORDER BY rowid ASC
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("could not query run refs: %w", err)
	}
	defer rows.Close()

	var refs []model.RunRef
	for rows.Next() {
		var ref model.RunRef
		if err := rows.Scan(&ref.GroupID, &ref.BoxID, &ref.RunID, &ref.WellID, &ref.Slot); err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return refs, nil
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }
