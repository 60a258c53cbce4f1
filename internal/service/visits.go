package service

import (
	"context"

	"github.com/and161185/clipsync/internal/model"
	"github.com/and161185/clipsync/internal/repository"
)

// VisitService maintains the shared visitor counter.
type VisitService interface {
	// Record counts one visit; unique is bumped only for a visitor not counted before.
	Record(ctx context.Context, alreadyCounted bool) (model.VisitCounter, error)
}

type VisitServiceImpl struct {
	repo repository.CounterRepository
}

// NewVisitService constructs VisitService.
func NewVisitService(repo repository.CounterRepository) *VisitServiceImpl {
	return &VisitServiceImpl{repo: repo}
}

// Record performs a single atomic increment.
func (s *VisitServiceImpl) Record(ctx context.Context, alreadyCounted bool) (model.VisitCounter, error) {
	return s.repo.Increment(ctx, !alreadyCounted)
}
