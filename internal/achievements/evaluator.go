package achievements

import (
	"context"
	"fmt"
	"time"

	"github.com/mkovacevic/peakform/internal/telemetry/metrics"
	"github.com/mkovacevic/peakform/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type evaluatorRepo interface {
	ListDefinitions(ctx context.Context, category Category, onlyActive bool) ([]*Definition, error)
	Advance(ctx context.Context, userID, definitionID uuid.UUID, progress, maxProgress int, at time.Time) (*UserAchievement, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*UserAchievement, error)
	PointsTotal(ctx context.Context, userID uuid.UUID) (int, error)
}

type Service struct {
	repo    evaluatorRepo
	metrics *metrics.Manager
}

func NewService(repo evaluatorRepo, metrics *metrics.Manager) *Service {
	return &Service{
		repo:    repo,
		metrics: metrics,
	}
}

// Evaluate matches the event against the active achievement definitions of
// the event's category and advances the matching ones. A definition whose
// metric is absent from the event is skipped. Returns the achievements that
// changed, with the newly earned ones flagged.
func (s *Service) Evaluate(ctx context.Context, userID uuid.UUID, event Event) (_ []*UserAchievement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.achievements.evaluate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("event.category", string(event.Category)))

	defs, err := s.repo.ListDefinitions(ctx, event.Category, true)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}

	earnedBefore, err := s.earnedSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	at := event.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	var updated []*UserAchievement
	for _, def := range defs {
		value, ok := event.Metrics[def.Metric]
		if !ok {
			log.Debugf("achievements evaluate: no metric [%s] in event, skipping [%s]", def.Metric, def.Title)
			continue
		}

		ua, err := s.repo.Advance(ctx, userID, def.ID, value, def.MaxProgress, at)
		if err != nil {
			return nil, fmt.Errorf("advance %s: %w", def.Title, err)
		}

		if ua.Earned && !earnedBefore[def.ID] {
			log.Debugf("achievement earned: [%s] for user %s", def.Title, userID)
			s.metrics.CounterAchievementsEarned.Inc()
		}
		updated = append(updated, ua)
	}

	span.SetAttributes(attribute.Int("achievements.updated", len(updated)))
	return updated, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*UserAchievement, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *Service) ListDefinitions(ctx context.Context) ([]*Definition, error) {
	return s.repo.ListDefinitions(ctx, "", false)
}

func (s *Service) PointsTotal(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.PointsTotal(ctx, userID)
}

func (s *Service) earnedSet(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	existing, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user achievements: %w", err)
	}
	earned := make(map[uuid.UUID]bool, len(existing))
	for _, ua := range existing {
		if ua.Earned {
			earned[ua.DefinitionID] = true
		}
	}
	return earned, nil
}
