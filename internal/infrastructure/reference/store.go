package reference

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
	"github.com/kirillkom/meal-nutrition/internal/core/ports"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/lexical"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/resilience"
)

const (
	loadKey    = "load"
	refreshKey = "refresh"
)

type Options struct {
	Scorer   lexical.SimilarityFunc
	Executor *resilience.Executor
	Recorder ports.ReferenceRecorder
	Logger   *slog.Logger
}

// snapshot is one immutable generation of the reference indices.
type snapshot struct {
	byID    map[string]*domain.FoodRecord
	byName  map[string]*domain.FoodRecord
	byAlias map[string]*domain.FoodRecord
	corpus  *lexical.Corpus
	stats   domain.ReferenceStats
}

// Store is the in-memory reference dataset. The first read loads the
// dataset; concurrent first reads share one load. Refresh builds a new
// snapshot and publishes it with a single pointer swap.
type Store struct {
	source   ports.DatasetSource
	scorer   lexical.SimilarityFunc
	executor *resilience.Executor
	recorder ports.ReferenceRecorder
	logger   *slog.Logger
	now      func() time.Time

	group      singleflight.Group
	current    atomic.Pointer[snapshot]
	generation atomic.Uint64

	mu      sync.Mutex
	loadErr error
}

func NewStore(source ports.DatasetSource, opts Options) *Store {
	if opts.Scorer == nil {
		opts.Scorer = lexical.ContainmentSimilarity
	}
	if opts.Recorder == nil {
		opts.Recorder = ports.NoopRecorder
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		source:   source,
		scorer:   opts.Scorer,
		executor: opts.Executor,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// EnsureLoaded loads the dataset once. A failed first load is returned to
// every caller until Refresh succeeds.
func (s *Store) EnsureLoaded(ctx context.Context) error {
	if s.current.Load() != nil {
		return nil
	}
	if err := s.stickyErr(); err != nil {
		return err
	}
	return s.shared(ctx, loadKey, func() error {
		if s.current.Load() != nil {
			return nil
		}
		if err := s.stickyErr(); err != nil {
			return err
		}
		err := s.reload()
		if err != nil {
			s.setStickyErr(err)
		}
		return err
	})
}

// Refresh reloads the dataset. On failure the previous snapshot stays
// published and the error is returned.
func (s *Store) Refresh(ctx context.Context) error {
	return s.shared(ctx, refreshKey, func() error {
		err := s.reload()
		if err != nil {
			if s.current.Load() == nil {
				s.setStickyErr(err)
			}
			return err
		}
		s.setStickyErr(nil)
		return nil
	})
}

// shared runs fn once per key across concurrent callers. The load itself is
// detached from the caller's cancellation; a caller whose context ends stops
// waiting without aborting the load for the others.
func (s *Store) shared(ctx context.Context, key string, fn func() error) error {
	ch := s.group.DoChan(key, func() (any, error) {
		return nil, fn()
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (s *Store) reload() error {
	start := s.now()
	ctx := context.Background()
	payload, err := resilience.Do(ctx, s.executor, "reference.fetch", s.source.Fetch, resilience.ContextClassifier(classifyFetchError))
	if err != nil {
		s.recorder.RecordReferenceLoad("failed", 0, s.now().Sub(start))
		s.logger.Error("reference_load_failed", "source", s.source.Describe(), "error", err)
		return domain.WrapError(domain.ErrDatasetUnavailable, "load reference dataset", err)
	}

	decoded := decodeDataset(payload)
	if decoded.shapeErr != nil {
		s.logger.Warn("dataset_shape_invalid", "source", payload.Origin, "error", decoded.shapeErr)
	}

	snap := s.buildSnapshot(decoded, payload.Origin)
	s.current.Store(snap)

	s.recorder.RecordReferenceLoad("ok", snap.stats.Records, s.now().Sub(start))
	s.logger.Info("reference_loaded",
		"source", payload.Origin,
		"version", snap.stats.Version,
		"records", snap.stats.Records,
		"skipped", snap.stats.Skipped,
		"generation", snap.stats.Generation,
	)
	return nil
}

func (s *Store) buildSnapshot(decoded decodedDataset, origin string) *snapshot {
	snap := &snapshot{
		byID:    make(map[string]*domain.FoodRecord, len(decoded.entries)),
		byName:  make(map[string]*domain.FoodRecord, len(decoded.entries)),
		byAlias: make(map[string]*domain.FoodRecord, len(decoded.entries)),
	}

	records := make([]*domain.FoodRecord, 0, len(decoded.entries))
	skipped := 0
	for _, entry := range decoded.entries {
		switch e := entry.(type) {
		case validRecord:
			rec := e.record
			if _, dup := snap.byID[rec.ID]; !dup {
				records = append(records, rec)
			}
			snap.byID[rec.ID] = rec
			if key := lexical.NormalizeKey(rec.Name); key != "" {
				snap.byName[key] = rec
			}
			for _, alias := range rec.Aliases {
				if key := lexical.NormalizeKey(alias); key != "" {
					snap.byAlias[key] = rec
				}
			}
		case invalidRecord:
			skipped++
			s.logger.Warn("dataset_record_invalid", "id", e.id, "reason", e.reason)
		}
	}

	// Drop records superseded by a later entry with the same id.
	live := records[:0]
	for _, rec := range records {
		if snap.byID[rec.ID] == rec {
			live = append(live, rec)
		}
	}
	snap.corpus = lexical.NewCorpus(live)

	snap.stats = domain.ReferenceStats{
		Version:     decoded.version,
		Source:      origin,
		Records:     len(snap.byID),
		Names:       len(snap.byName),
		Aliases:     len(snap.byAlias),
		Skipped:     skipped,
		Generation:  s.generation.Add(1),
		LoadedAtUTC: s.now().UTC().Format(time.RFC3339),
	}
	return snap
}

func (s *Store) loaded(ctx context.Context) (*snapshot, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.current.Load(), nil
}

func (s *Store) stickyErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

func (s *Store) setStickyErr(err error) {
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
}

func (s *Store) Stats(ctx context.Context) (domain.ReferenceStats, error) {
	snap, err := s.loaded(ctx)
	if err != nil {
		return domain.ReferenceStats{}, err
	}
	return snap.stats, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.FoodRecord, error) {
	snap, err := s.loaded(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := snap.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, domain.WrapError(domain.ErrFoodNotFound, "get food by id", errors.New("id="+id))
	}
	return rec, nil
}

// GetByExactName looks the normalized name up in the name index, then in the
// alias index.
func (s *Store) GetByExactName(ctx context.Context, name string) (*domain.FoodRecord, error) {
	snap, err := s.loaded(ctx)
	if err != nil {
		return nil, err
	}
	key := lexical.NormalizeKey(name)
	if rec, ok := snap.byName[key]; ok && key != "" {
		return rec, nil
	}
	if rec, ok := snap.byAlias[key]; ok && key != "" {
		return rec, nil
	}
	return nil, domain.WrapError(domain.ErrFoodNotFound, "get food by name", errors.New("name="+name))
}

// GetByIDs returns the records found among ids; unknown ids are omitted.
func (s *Store) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.FoodRecord, error) {
	snap, err := s.loaded(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.FoodRecord, len(ids))
	for _, id := range ids {
		if rec, ok := snap.byID[strings.TrimSpace(id)]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

func (s *Store) SearchByPartialName(ctx context.Context, query string, limit int) ([]*domain.FoodRecord, error) {
	snap, err := s.loaded(ctx)
	if err != nil {
		return nil, err
	}
	return snap.corpus.Partial(query, limit), nil
}

func (s *Store) SearchByFuzzyMatch(ctx context.Context, query string, limit int) ([]domain.FoodCandidate, error) {
	snap, err := s.loaded(ctx)
	if err != nil {
		return nil, err
	}
	return snap.corpus.Fuzzy(query, limit, s.scorer), nil
}

func (s *Store) SearchByCategory(ctx context.Context, category string, limit int) ([]*domain.FoodRecord, error) {
	snap, err := s.loaded(ctx)
	if err != nil {
		return nil, err
	}
	return snap.corpus.Category(category, limit), nil
}

func classifyFetchError(err error) resilience.ErrorClassification {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
