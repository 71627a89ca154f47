package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// SessionRecord is one persisted session slot (token, user, pendingLogin).
type SessionRecord struct {
	bun.BaseModel `bun:"table:session_state,alias:ss"`
	Key           string     `bun:"key,pk" json:"key"`
	Value         string     `bun:"value,notnull" json:"value"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// BunStorage is the durable Storage, backed by sqlite through bun. It
// survives restarts the way the browser portal's local storage does.
type BunStorage struct {
	db *bun.DB
}

var _ Storage = (*BunStorage)(nil)

// NewBunStorage wraps an existing bun DB. Call EnsureTable once before use.
func NewBunStorage(db *bun.DB) *BunStorage {
	return &BunStorage{db: db}
}

// OpenDefaultStorage opens a sqlite-backed storage at dsn, for example
// `file:session.db` or `file::memory:?cache=shared`.
func OpenDefaultStorage(ctx context.Context, dsn string) (*BunStorage, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	storage := NewBunStorage(bun.NewDB(sqldb, sqlitedialect.New()))
	if err := storage.EnsureTable(ctx); err != nil {
		return nil, err
	}
	return storage, nil
}

// EnsureTable creates the backing table if needed.
func (b *BunStorage) EnsureTable(ctx context.Context) error {
	_, err := b.db.NewCreateTable().
		Model((*SessionRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (b *BunStorage) Get(ctx context.Context, key string) (string, bool, error) {
	record := &SessionRecord{}
	err := b.db.NewSelect().
		Model(record).
		Where("ss.key = ?", key).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return record.Value, true, nil
}

func (b *BunStorage) Set(ctx context.Context, key, value string) error {
	now := time.Now()
	record := &SessionRecord{
		Key:       key,
		Value:     value,
		UpdatedAt: &now,
	}

	_, err := b.db.NewInsert().
		Model(record).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (b *BunStorage) Delete(ctx context.Context, key string) error {
	_, err := b.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	return err
}
