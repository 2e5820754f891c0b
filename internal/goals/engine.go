package goals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mkovacevic/peakform/internal/achievements"
	"github.com/mkovacevic/peakform/internal/telemetry/metrics"
	"github.com/mkovacevic/peakform/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type engineRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*Goal, error)
	ApplyUpdate(ctx context.Context, goal *Goal, expectedVersion int, event ProgressEvent) error
	Counts(ctx context.Context, userID uuid.UUID) (*SummaryCounts, error)
	CountCompleted(ctx context.Context, userID uuid.UUID) (int, error)
}

type achievementsEvaluator interface {
	Evaluate(ctx context.Context, userID uuid.UUID, event achievements.Event) ([]*achievements.UserAchievement, error)
	PointsTotal(ctx context.Context, userID uuid.UUID) (int, error)
}

// Engine applies progress events to goals: the new observed value or habit
// check-in, progress recalculation, completion detection and achievement
// evaluation, all behind one repo transaction per event.
type Engine struct {
	repo          engineRepo
	achievements  achievementsEvaluator
	ownerLocation *time.Location
	summaryCache  *freecache.Cache
	summaryTTL    time.Duration
	metrics       *metrics.Manager
}

func NewEngine(
	repo engineRepo,
	achievementsService achievementsEvaluator,
	ownerLocation *time.Location,
	summaryCache *freecache.Cache,
	summaryTTL time.Duration,
	metrics *metrics.Manager,
) *Engine {
	return &Engine{
		repo:          repo,
		achievements:  achievementsService,
		ownerLocation: ownerLocation,
		summaryCache:  summaryCache,
		summaryTTL:    summaryTTL,
		metrics:       metrics,
	}
}

type ApplyProgressEventResult struct {
	Goal *Goal `json:"goal"`
	// Duplicate - the event was applied before and this call changed nothing
	Duplicate           bool                           `json:"duplicate"`
	UpdatedAchievements []*achievements.UserAchievement `json:"updatedAchievements,omitempty"`
}

// ApplyProgressEvent runs the whole progress pipeline for one event. Replayed
// events (same event id) are detected through the store and reported as
// duplicates without modifying anything. A concurrent modification of the
// goal surfaces as ErrVersionConflict, the caller is expected to retry.
func (e *Engine) ApplyProgressEvent(ctx context.Context, event ProgressEvent) (_ *ApplyProgressEventResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "engine.goals.applyprogressevent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("goal.id", event.GoalID.String()))
	span.SetAttributes(attribute.String("event.id", event.ID.String()))

	if err := event.Validate(); err != nil {
		return nil, err
	}

	goal, err := e.repo.Get(ctx, event.GoalID)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}

	expectedVersion := goal.Version
	updated := *goal

	streakAdvanced := false
	if updated.IsHabit {
		streakAdvanced = updated.applyCheckIn(event.Timestamp, e.ownerLocation)
	} else {
		// the event carries the new observed value, not a delta
		updated.CurrentValue = event.Value
	}
	updated.RecalcProgress()

	completedNow := false
	if updated.Status == StatusActive && updated.ProgressPercentage >= 100 {
		updated.Status = StatusCompleted
		completionDate := event.Timestamp
		updated.CompletionDate = &completionDate
		completedNow = true
	}

	if err := e.repo.ApplyUpdate(ctx, &updated, expectedVersion, event); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			log.Debugf("progress event %s already applied to goal %s, skipping", event.ID, event.GoalID)
			e.metrics.CounterDuplicateEvents.Inc()
			return &ApplyProgressEventResult{Goal: goal, Duplicate: true}, nil
		}
		if errors.Is(err, ErrVersionConflict) {
			e.metrics.CounterVersionConflicts.Inc()
		}
		return nil, err
	}

	e.invalidateSummary(updated.UserID)
	e.metrics.CounterProgressEvents.Inc()
	if completedNow {
		e.metrics.CounterGoalsCompleted.Inc()
	}

	result := &ApplyProgressEventResult{Goal: &updated}
	// achievement evaluation is best effort, a failure here must not fail the
	// already committed progress update
	result.UpdatedAchievements = e.evaluateAchievements(ctx, &updated, event, completedNow, streakAdvanced)

	return result, nil
}

func (e *Engine) evaluateAchievements(
	ctx context.Context,
	goal *Goal,
	event ProgressEvent,
	completedNow bool,
	streakAdvanced bool,
) []*achievements.UserAchievement {
	var updated []*achievements.UserAchievement

	if completedNow {
		completedCount, err := e.repo.CountCompleted(ctx, goal.UserID)
		if err != nil {
			log.Errorf("count completed goals for achievements: %s", err)
		} else {
			uas, err := e.achievements.Evaluate(ctx, goal.UserID, achievements.Event{
				Category:  achievements.CategoryMilestones,
				Metrics:   map[string]int{"completed_goals": completedCount},
				Timestamp: event.Timestamp,
			})
			if err != nil {
				log.Errorf("evaluate milestone achievements: %s", err)
			} else {
				updated = append(updated, uas...)
			}
		}
	}

	if streakAdvanced {
		uas, err := e.achievements.Evaluate(ctx, goal.UserID, achievements.Event{
			Category:  achievements.CategoryConsistency,
			Metrics:   map[string]int{"streak_days": goal.CurrentStreak},
			Timestamp: event.Timestamp,
		})
		if err != nil {
			log.Errorf("evaluate consistency achievements: %s", err)
		} else {
			updated = append(updated, uas...)
		}
	}

	return updated
}

type Summary struct {
	TotalGoals        int `json:"totalGoals"`
	CompletedGoals    int `json:"completedGoals"`
	BestStreak        int `json:"bestStreak"`
	AchievementPoints int `json:"achievementPoints"`
}

func summaryCacheKey(userID uuid.UUID) []byte {
	return []byte("goals-summary||" + userID.String())
}

func (e *Engine) Summary(ctx context.Context, userID uuid.UUID) (_ *Summary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "engine.goals.summary")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cacheKey := summaryCacheKey(userID)
	if cached, err := e.summaryCache.Get(cacheKey); err == nil {
		var summary Summary
		if err := json.Unmarshal(cached, &summary); err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &summary, nil
		}
		log.Warnf("unmarshal cached goals summary: %s", err)
	}

	counts, err := e.repo.Counts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("goal counts: %w", err)
	}
	points, err := e.achievements.PointsTotal(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("achievement points: %w", err)
	}

	summary := &Summary{
		TotalGoals:        counts.Total,
		CompletedGoals:    counts.Completed,
		BestStreak:        counts.MaxBestStreak,
		AchievementPoints: points,
	}

	if summaryJson, err := json.Marshal(summary); err == nil {
		if err := e.summaryCache.Set(cacheKey, summaryJson, int(e.summaryTTL.Seconds())); err != nil {
			log.Warnf("cache goals summary: %s", err)
		}
	}

	return summary, nil
}

func (e *Engine) invalidateSummary(userID uuid.UUID) {
	e.summaryCache.Del(summaryCacheKey(userID))
}
