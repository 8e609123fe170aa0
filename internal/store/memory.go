package store

import (
	"context"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
)

// MemoryStore keeps everything in maps. It is the default backend and the
// one used in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	studies     map[string]Study
	trials      map[string][]Trial
}

// NewMemoryStore returns an uninitialized store; call Init before use.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.studies = make(map[string]Study)
	s.trials = make(map[string][]Trial)
	return nil
}

func (s *MemoryStore) CreateStudy(_ context.Context, study Study) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if _, ok := s.studies[study.ID]; ok {
		return errors.Wrapf(ErrStudyExists, "study %s", study.ID)
	}
	s.studies[study.ID] = study
	return nil
}

func (s *MemoryStore) SaveStudy(_ context.Context, study Study) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.studies[study.ID] = study
	return nil
}

func (s *MemoryStore) GetStudy(_ context.Context, id string) (Study, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return Study{}, false, ErrNotInitialized
	}
	study, ok := s.studies[id]
	return study, ok, nil
}

func (s *MemoryStore) ListStudies(_ context.Context) ([]Study, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]Study, 0, len(s.studies))
	for _, st := range s.studies {
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b Study) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteStudy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	delete(s.studies, id)
	delete(s.trials, id)
	return nil
}

func (s *MemoryStore) AppendTrial(_ context.Context, trial Trial) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.trials[trial.StudyID] = append(s.trials[trial.StudyID], trial)
	return nil
}

func (s *MemoryStore) ListTrials(_ context.Context, studyID string) ([]Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	return slices.Clone(s.trials[studyID]), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
