// Package drafts persists unpublished working copies of bots. Drafts are
// only ever written on explicit request; nothing here saves on its own.
package drafts

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcms/pkg/db"
	"github.com/jingkaihe/skillcms/pkg/db/migrations"
	"github.com/jingkaihe/skillcms/pkg/logger"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

// ErrNotFound is returned when no draft with the given id belongs to the owner
var ErrNotFound = errors.New("draft not found")

// Store saves and loads drafts keyed by the owning account
type Store interface {
	Save(ctx context.Context, owner string, draft skills.Draft) (string, error)
	Load(ctx context.Context, owner, id string) (skills.Draft, error)
	List(ctx context.Context, owner string) ([]skills.DraftSummary, error)
	Delete(ctx context.Context, owner, id string) error
}

// jsonObject stores a value as a JSON text column
type jsonObject[T any] struct {
	Data T
}

func (j *jsonObject[T]) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, &j.Data)
	case string:
		return json.Unmarshal([]byte(v), &j.Data)
	default:
		return errors.Errorf("cannot scan %T into draft object", value)
	}
}

func (j jsonObject[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type dbDraft struct {
	ID        string                   `db:"id"`
	Owner     string                   `db:"owner"`
	Name      string                   `db:"name"`
	Category  string                   `db:"category"`
	Language  string                   `db:"language"`
	Object    jsonObject[skills.Draft] `db:"object"`
	CreatedAt time.Time                `db:"created_at"`
}

// SQLiteStore is a Store backed by the local SQLite database
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens the database at path, migrates it and returns a store over it
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	conn, err := db.Open(ctx, path, migrations.All())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open draft database")
	}
	return NewSQLiteStore(conn), nil
}

// NewSQLiteStore wraps an already migrated connection
func NewSQLiteStore(conn *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: conn, now: time.Now}
}

// Close closes the underlying connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save writes draft as a new record and returns its id
func (s *SQLiteStore) Save(ctx context.Context, owner string, draft skills.Draft) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", errors.New("draft owner cannot be empty")
	}

	row := dbDraft{
		ID:        uuid.NewString(),
		Owner:     owner,
		Name:      draft.Name,
		Category:  draft.Category,
		Language:  draft.Language,
		Object:    jsonObject[skills.Draft]{Data: draft},
		CreatedAt: s.now().UTC(),
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO drafts (id, owner, name, category, language, object, created_at)
		VALUES (:id, :owner, :name, :category, :language, :object, :created_at)
	`, row)
	if err != nil {
		return "", errors.Wrap(err, "failed to save draft")
	}

	logger.G(ctx).WithField("draft_id", row.ID).Debug("draft saved")
	return row.ID, nil
}

// Load returns the draft body for id
func (s *SQLiteStore) Load(ctx context.Context, owner, id string) (skills.Draft, error) {
	var row dbDraft
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner, name, category, language, object, created_at
		FROM drafts WHERE id = ? AND owner = ?
	`, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return skills.Draft{}, errors.Wrapf(ErrNotFound, "draft %s", id)
	}
	if err != nil {
		return skills.Draft{}, errors.Wrap(err, "failed to load draft")
	}
	return row.Object.Data, nil
}

// List returns the owner's drafts, newest first
func (s *SQLiteStore) List(ctx context.Context, owner string) ([]skills.DraftSummary, error) {
	summaries := []skills.DraftSummary{}
	err := s.db.SelectContext(ctx, &summaries, `
		SELECT id, owner, name, category, language, created_at
		FROM drafts WHERE owner = ?
		ORDER BY created_at DESC, id
	`, owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list drafts")
	}
	return summaries, nil
}

// Delete removes a draft
func (s *SQLiteStore) Delete(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE id = ? AND owner = ?", id, owner)
	if err != nil {
		return errors.Wrap(err, "failed to delete draft")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to delete draft")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "draft %s", id)
	}
	return nil
}
