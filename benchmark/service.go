package benchmark

import (
	"context"
	"time"

	"github.com/Em4Michael/AirHub-Server/generic"
)

// Store persists benchmark definitions.
type Store interface {
	SaveBenchmark(ctx context.Context, b Benchmark) error
	// GetBenchmark returns nil, nil when the benchmark does not exist.
	GetBenchmark(ctx context.Context, id generic.BenchmarkID) (*Benchmark, error)
	ListBenchmarks(ctx context.Context) ([]Benchmark, error)
	DeleteBenchmark(ctx context.Context, id generic.BenchmarkID) error
}

// Service is the administrator-facing CRUD surface plus current-benchmark
// resolution for the payment engine.
//
// ResolveCurrent re-reads storage on every call. There is deliberately no
// cache: an admin switching the active benchmark mid-week must be seen by the
// very next vetting.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock overrides the time source (tests, scenario loading).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ResolveCurrent returns the benchmark in force now, or nil.
func (s *Service) ResolveCurrent(ctx context.Context) (*Benchmark, error) {
	all, err := s.store.ListBenchmarks(ctx)
	if err != nil {
		return nil, err
	}
	return Current(all, s.now().UTC()), nil
}

func (s *Service) List(ctx context.Context) ([]Benchmark, error) {
	return s.store.ListBenchmarks(ctx)
}

func (s *Service) Get(ctx context.Context, id generic.BenchmarkID) (*Benchmark, error) {
	b, err := s.store.GetBenchmark(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, generic.NotFound("benchmark", string(id))
	}
	return b, nil
}

// Create validates and stores a new benchmark.
func (s *Service) Create(ctx context.Context, b Benchmark, actor string) (*Benchmark, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.ID == "" {
		b.ID = generic.BenchmarkID(generic.NewID())
	}
	now := s.now().UTC()
	b.CreatedBy = actor
	b.CreatedAt = now
	b.UpdatedAt = now
	if err := s.store.SaveBenchmark(ctx, b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Update replaces a benchmark's definition, keeping its creation audit fields.
func (s *Service) Update(ctx context.Context, id generic.BenchmarkID, b Benchmark) (*Benchmark, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	b.ID = existing.ID
	b.CreatedBy = existing.CreatedBy
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = s.now().UTC()
	if err := s.store.SaveBenchmark(ctx, b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Service) Delete(ctx context.Context, id generic.BenchmarkID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteBenchmark(ctx, id)
}
