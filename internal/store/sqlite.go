package store

import (
	"context"
	"database/sql"
	"sync"

	"github.com/cockroachdb/errors"

	_ "modernc.org/sqlite"
)

// SQLiteStore stores JSON payloads in a pure-Go SQLite database.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore returns a store for the database at path. ":memory:" is
// accepted for throwaway databases.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.Wrap(err, "open sqlite")
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "ping sqlite")
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "create tables")
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) CreateStudy(ctx context.Context, study Study) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := encode(study)
	if err != nil {
		return errors.Wrapf(err, "encode study %s", study.ID)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO studies (id, created_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, study.ID, study.CreatedAt.UnixNano(), payload)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(ErrStudyExists, "study %s", study.ID)
	}
	return nil
}

func (s *SQLiteStore) SaveStudy(ctx context.Context, study Study) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := encode(study)
	if err != nil {
		return errors.Wrapf(err, "encode study %s", study.ID)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO studies (id, created_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload
	`, study.ID, study.CreatedAt.UnixNano(), payload)
	return err
}

func (s *SQLiteStore) GetStudy(ctx context.Context, id string) (Study, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Study{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM studies WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Study{}, false, nil
		}
		return Study{}, false, err
	}

	study, err := decode[Study](payload)
	if err != nil {
		return Study{}, false, errors.Wrapf(err, "decode study %s", id)
	}
	return study, true, nil
}

func (s *SQLiteStore) ListStudies(ctx context.Context) ([]Study, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM studies ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Study
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		study, err := decode[Study](payload)
		if err != nil {
			return nil, errors.Wrap(err, "decode study")
		}
		out = append(out, study)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteStudy(ctx context.Context, id string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trials WHERE study_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM studies WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) AppendTrial(ctx context.Context, trial Trial) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := encode(trial)
	if err != nil {
		return errors.Wrapf(err, "encode trial %s/%d", trial.StudyID, trial.Number)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO trials (study_id, number, payload)
		VALUES (?, ?, ?)
	`, trial.StudyID, trial.Number, payload)
	return err
}

func (s *SQLiteStore) ListTrials(ctx context.Context, studyID string) ([]Trial, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM trials WHERE study_id = ? ORDER BY number`, studyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Trial
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		trial, err := decode[Trial](payload)
		if err != nil {
			return nil, errors.Wrapf(err, "decode trial of %s", studyID)
		}
		out = append(out, trial)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS studies (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS trials (
			study_id TEXT NOT NULL,
			number INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (study_id, number)
		);
	`)
	return err
}
