package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/catalog"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/classify"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/config"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/dataset"
	apierrors "github.com/OptimLLab/Globalizer-Benchmarks/internal/errors"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/logging"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/metrics"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/problem"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/space"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/store"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/study"
)

// Option configures a Server.
type Option func(*Server)

// WithStore sets the study store. The caller owns it and closes it.
func WithStore(s store.Store) Option {
	return func(srv *Server) { srv.store = s }
}

// WithMetrics sets the collectors updated by studies and evaluations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(srv *Server) { srv.metrics = m }
}

// WithDataset sets the dataset classifier problems train on.
func WithDataset(d *dataset.Dataset) Option {
	return func(srv *Server) { srv.dataset = d }
}

// WithRunnerOptions passes extra options to the study runner.
func WithRunnerOptions(opts ...study.Option) Option {
	return func(srv *Server) { srv.runnerOpts = append(srv.runnerOpts, opts...) }
}

// Server implements the HTTP and JSON-RPC API. Studies run in background
// goroutines; their state lives in the store and can be polled or cancelled.
type Server struct {
	cfg     *config.Config
	logger  *logging.Logger
	store   store.Store
	metrics *metrics.Metrics
	dataset *dataset.Dataset
	runner  *study.Runner

	runnerOpts []study.Option

	// baseCtx parents every study so Close can stop them all.
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	running map[string]context.CancelFunc
}

// NewServer creates a server. Without WithStore studies are kept in memory.
func NewServer(cfg *config.Config, logger *logging.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		running: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.baseCtx, s.stop = context.WithCancel(context.Background())

	if s.store == nil {
		s.store = store.NewMemoryStore()
		if err := s.store.Init(s.baseCtx); err != nil {
			return nil, err
		}
	}

	runnerOpts := append([]study.Option{
		study.WithStore(s.store),
		study.WithMetrics(s.metrics),
		study.WithLogger(logger.Zap()),
	}, s.runnerOpts...)
	runner, err := study.NewRunner(s.baseCtx, runnerOpts...)
	if err != nil {
		return nil, err
	}
	s.runner = runner

	if err := s.failOrphans(s.baseCtx); err != nil {
		return nil, err
	}
	return s, nil
}

// failOrphans marks studies left pending or running by a previous process
// as failed. No goroutine of this process owns them.
func (s *Server) failOrphans(ctx context.Context) error {
	studies, err := s.store.ListStudies(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, st := range studies {
		if st.Status.Terminal() {
			continue
		}
		st.Status = store.StatusFailed
		st.Error = "interrupted by server restart"
		st.UpdatedAt = now
		if err := s.store.SaveStudy(ctx, st); err != nil {
			return err
		}
		s.logger.Warn("Marked orphaned study as failed", map[string]interface{}{"study_id": st.ID})
	}
	return nil
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/studies", func(r chi.Router) {
			r.Get("/", s.handleListStudies)
			r.Post("/", s.handleCreateStudy)
			r.Get("/{id}", s.handleGetStudy)
			r.Get("/{id}/trials", s.handleListTrials)
			r.Delete("/{id}", s.handleDeleteStudy)
		})
		r.Route("/problems", func(r chi.Router) {
			r.Get("/", s.handleListProblems)
			r.Get("/{name}", s.handleDescribeProblem)
			r.Post("/{name}/evaluate", s.handleEvaluate)
		})
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// StudyRequest starts a study. Unset numeric fields take the configured
// study defaults.
type StudyRequest struct {
	ID            string `json:"id,omitempty"`
	Problem       string `json:"problem"`
	Dimension     int    `json:"dimension,omitempty"`
	Sampler       string `json:"sampler,omitempty"`
	Acquisition   string `json:"acquisition,omitempty"`
	Kernel        string `json:"kernel,omitempty"`
	MaxIterations *int   `json:"max_iterations,omitempty"`
	InitialPoints *int   `json:"initial_points,omitempty"`
	Seed          *int64 `json:"seed,omitempty"`
	Refine        *bool  `json:"refine,omitempty"`
	ErrorPolicy   string `json:"error_policy,omitempty"`
	Folds         int    `json:"folds,omitempty"`
	Metric        string `json:"metric,omitempty"`
}

func (s *Server) studyConfig(req StudyRequest) (study.Config, error) {
	def := s.cfg.Study
	cfg := study.Config{
		ID:            req.ID,
		Sampler:       req.Sampler,
		Acquisition:   req.Acquisition,
		Kernel:        req.Kernel,
		MaxIterations: def.MaxIterations,
		InitialPoints: def.InitialPoints,
		Seed:          def.Seed,
		Refine:        def.Refine,
	}
	if cfg.Sampler == "" {
		cfg.Sampler = def.Sampler
	}
	if cfg.Acquisition == "" {
		cfg.Acquisition = def.Acquisition
	}
	if cfg.Kernel == "" {
		cfg.Kernel = def.Kernel
	}
	if req.MaxIterations != nil {
		cfg.MaxIterations = *req.MaxIterations
	}
	if req.InitialPoints != nil {
		cfg.InitialPoints = *req.InitialPoints
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.Refine != nil {
		cfg.Refine = *req.Refine
	}
	if cfg.MaxIterations < 0 || cfg.InitialPoints < 0 {
		return cfg, apierrors.InvalidParams("iteration budgets must be non-negative")
	}

	policy := req.ErrorPolicy
	if policy == "" {
		policy = def.ErrorPolicy
	}
	p, err := study.ParseErrorPolicy(policy)
	if err != nil {
		return cfg, err
	}
	cfg.ErrorPolicy = p

	// Reject unknown samplers before anything runs in the background.
	if _, err := study.NewOptimizer(cfg, zap.NewNop()); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// problemSpec selects a catalog problem and its cross-validation settings.
type problemSpec struct {
	name   string
	dim    int
	folds  int
	seed   int64
	metric string
}

func (s *Server) newProblem(ps problemSpec) (*problem.Problem, error) {
	entry, err := catalog.Lookup(ps.name)
	if err != nil {
		return nil, apierrors.NotFound("problem %q not found", ps.name)
	}
	if ps.folds <= 0 {
		ps.folds = s.cfg.Dataset.Folds
	}
	opts := []classify.EvaluatorOption{classify.WithFolds(ps.folds), classify.WithSeed(ps.seed)}
	if ps.metric != "" {
		m, err := classify.ParseMetric(ps.metric)
		if err != nil {
			return nil, err
		}
		opts = append(opts, classify.WithMetric(m))
	}
	return entry.NewProblem(ps.dim, s.dataset, opts...)
}

// startStudy records a pending study and runs it in the background.
func (s *Server) startStudy(ctx context.Context, req StudyRequest) (store.Study, error) {
	if req.Problem == "" {
		return store.Study{}, apierrors.InvalidParams("problem is required")
	}
	cfg, err := s.studyConfig(req)
	if err != nil {
		return store.Study{}, err
	}
	p, err := s.newProblem(problemSpec{
		name:   req.Problem,
		dim:    req.Dimension,
		folds:  req.Folds,
		seed:   cfg.Seed,
		metric: req.Metric,
	})
	if err != nil {
		return store.Study{}, err
	}

	// Refuse branch counts the runner would reject before reporting 202.
	if _, err := study.BranchCount(p.LabelSets()); err != nil {
		return store.Study{}, err
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	st := store.Study{
		ID:            cfg.ID,
		Problem:       p.Name(),
		Dimension:     p.Dimension(),
		Sense:         p.Sense().String(),
		Sampler:       cfg.Sampler,
		MaxIterations: cfg.MaxIterations,
		InitialPoints: cfg.InitialPoints,
		Seed:          cfg.Seed,
		ErrorPolicy:   string(cfg.ErrorPolicy),
		Status:        store.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Reserve the id and the wait group slot together so Close either sees
	// this study or refuses it.
	runCtx, cancel := context.WithCancel(s.baseCtx)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return store.Study{}, apierrors.Unavailable("server is shutting down")
	}
	if _, ok := s.running[cfg.ID]; ok {
		s.mu.Unlock()
		cancel()
		return store.Study{}, apierrors.Conflict("study %s already exists", cfg.ID)
	}
	s.running[cfg.ID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	if err := s.store.CreateStudy(ctx, st); err != nil {
		s.mu.Lock()
		delete(s.running, cfg.ID)
		s.mu.Unlock()
		cancel()
		s.wg.Done()
		if errors.Is(err, store.ErrStudyExists) {
			return store.Study{}, apierrors.Conflict("study %s already exists", cfg.ID)
		}
		return store.Study{}, err
	}

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, cfg.ID)
			s.mu.Unlock()
			cancel()
		}()

		if _, err := s.runner.Run(runCtx, p, cfg); err != nil {
			s.logger.Warn("Study ended with error", map[string]interface{}{
				"study_id": cfg.ID,
				"error":    err,
			})
		}
	}()

	s.logger.Info("Study submitted", map[string]interface{}{
		"study_id": cfg.ID,
		"problem":  p.Name(),
		"sampler":  cfg.Sampler,
	})
	return st, nil
}

func (s *Server) getStudy(ctx context.Context, id string) (store.Study, error) {
	st, ok, err := s.store.GetStudy(ctx, id)
	if err != nil {
		return store.Study{}, err
	}
	if !ok {
		return store.Study{}, apierrors.NotFound("study %s not found", id)
	}
	return st, nil
}

// cancelStudy stops a running study. It reports false when the study is
// not running in this process.
func (s *Server) cancelStudy(id string) bool {
	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		cancel()
		s.logger.Info("Study cancelled", map[string]interface{}{"study_id": id})
	}
	return ok
}

// EvaluateRequest evaluates one coordinate of a catalog problem.
type EvaluateRequest struct {
	Dimension  int              `json:"dimension,omitempty"`
	Coordinate space.Coordinate `json:"coordinate"`
	Folds      int              `json:"folds,omitempty"`
	Metric     string           `json:"metric,omitempty"`
}

// EvaluateResponse reports the evaluator's raw fitness. Constraints are
// present only for constrained problems.
type EvaluateResponse struct {
	Arguments   space.Arguments `json:"arguments"`
	Value       float64         `json:"value"`
	Constraints []float64       `json:"constraints,omitempty"`
	Feasible    bool            `json:"feasible"`
}

func (s *Server) evaluate(ctx context.Context, name string, req EvaluateRequest) (EvaluateResponse, error) {
	p, err := s.newProblem(problemSpec{
		name:   name,
		dim:    req.Dimension,
		folds:  req.Folds,
		seed:   s.cfg.Study.Seed,
		metric: req.Metric,
	})
	if err != nil {
		return EvaluateResponse{}, err
	}
	args, err := p.Resolve(req.Coordinate)
	if err != nil {
		return EvaluateResponse{}, err
	}

	start := time.Now()
	values, err := p.EvaluateAll(ctx, req.Coordinate)
	took := time.Since(start)
	if err != nil {
		s.metrics.ObserveEvaluation(p.Name(), metrics.OutcomeError, took)
		return EvaluateResponse{}, err
	}

	resp := EvaluateResponse{
		Arguments: args,
		Value:     values[len(values)-1] * p.Sense().Sign(),
		Feasible:  problem.Feasible(values),
	}
	if len(values) > 1 {
		resp.Constraints = values[:len(values)-1]
	}
	outcome := metrics.OutcomeOK
	if !resp.Feasible {
		outcome = metrics.OutcomeInfeasible
	}
	s.metrics.ObserveEvaluation(p.Name(), outcome, took)
	return resp, nil
}

// ProblemSummary is one entry of the problem listing.
type ProblemSummary struct {
	catalog.Entry
	Sense     string `json:"sense"`
	Evaluable bool   `json:"evaluable"`
}

func (s *Server) describe(name string, dim int) (problem.Description, error) {
	entry, err := catalog.Lookup(name)
	if err != nil {
		return problem.Description{}, apierrors.NotFound("problem %q not found", name)
	}
	if entry.HasEvaluator() && (!entry.NeedsDataset || s.dataset != nil) {
		p, err := entry.NewProblem(dim, s.dataset, classify.WithFolds(s.cfg.Dataset.Folds))
		if err != nil {
			return problem.Description{}, err
		}
		return p.Describe(), nil
	}

	// Without an evaluator only the space can be described.
	sp, err := entry.Space(dim)
	if err != nil {
		return problem.Description{}, err
	}
	d := problem.Description{
		Name:        entry.Name,
		Sense:       entry.Sense.String(),
		Dimension:   sp.Dimension(),
		LowerBounds: sp.LowerBounds(),
		UpperBounds: sp.UpperBounds(),
		LabelSets:   sp.LabelSets(),
	}
	for _, desc := range sp.Params() {
		d.Parameters = append(d.Parameters, problem.DescribeParameter(desc))
	}
	return d, nil
}

// Close cancels running studies and waits for them to record their final
// state.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()
	s.wg.Wait()
	return nil
}

func (s *Server) handleCreateStudy(w http.ResponseWriter, r *http.Request) {
	var req StudyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, apierrors.InvalidParams("invalid request body: %v", err))
		return
	}
	st, err := s.startStudy(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, st)
}

func (s *Server) handleListStudies(w http.ResponseWriter, r *http.Request) {
	studies, err := s.store.ListStudies(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if studies == nil {
		studies = []store.Study{}
	}
	respondJSON(w, http.StatusOK, studies)
}

func (s *Server) handleGetStudy(w http.ResponseWriter, r *http.Request) {
	st, err := s.getStudy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleListTrials(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.getStudy(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	trials, err := s.store.ListTrials(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if trials == nil {
		trials = []store.Trial{}
	}
	respondJSON(w, http.StatusOK, trials)
}

// handleDeleteStudy cancels a running study, or deletes a finished one.
func (s *Server) handleDeleteStudy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.getStudy(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !st.Status.Terminal() && s.cancelStudy(id) {
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "cancellation requested"})
		return
	}
	if err := s.store.DeleteStudy(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.metrics.ForgetStudy(id, st.Problem)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListProblems(w http.ResponseWriter, r *http.Request) {
	entries := catalog.All()
	out := make([]ProblemSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, ProblemSummary{
			Entry:     e,
			Sense:     e.Sense.String(),
			Evaluable: e.HasEvaluator() && (!e.NeedsDataset || s.dataset != nil),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleDescribeProblem(w http.ResponseWriter, r *http.Request) {
	dim := 0
	if v := r.URL.Query().Get("dimension"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, r, apierrors.InvalidParams("dimension must be an integer, got %q", v))
			return
		}
		dim = n
	}
	d, err := s.describe(chi.URLParam(r, "name"), dim)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, apierrors.InvalidParams("invalid request body: %v", err))
		return
	}
	resp, err := s.evaluate(r.Context(), chi.URLParam(r, "name"), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apierrors.Status(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("Request failed", map[string]interface{}{"error": err})
	}
	respondJSON(w, status, apierrors.NewBody(err))
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
