// Package store persists studies and their trials.
package store

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotInitialized is returned by stores used before Init.
	ErrNotInitialized = errors.New("store is not initialized")
	// ErrStudyExists is returned by CreateStudy when the id is taken.
	ErrStudyExists = errors.New("study already exists")
)

// Store is the persistence contract shared by the memory and SQLite
// backends. Trials are append-only and numbered by the caller.
type Store interface {
	Init(ctx context.Context) error
	// CreateStudy inserts a new study and fails with ErrStudyExists when
	// the id is already stored. SaveStudy inserts or replaces.
	CreateStudy(ctx context.Context, study Study) error
	SaveStudy(ctx context.Context, study Study) error
	GetStudy(ctx context.Context, id string) (Study, bool, error)
	ListStudies(ctx context.Context) ([]Study, error)
	DeleteStudy(ctx context.Context, id string) error
	AppendTrial(ctx context.Context, trial Trial) error
	ListTrials(ctx context.Context, studyID string) ([]Trial, error)
	Close() error
}

// NewStore builds a backend by kind: "memory" (the default) or "sqlite".
func NewStore(kind, dsn string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(dsn), nil
	default:
		return nil, errors.Newf("unsupported store backend: %s", kind)
	}
}

func encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func decode[T any](data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}
