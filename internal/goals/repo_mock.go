package goals

import (
	"context"
	"sync"

	"github.com/mkovacevic/peakform/internal/achievements"

	"github.com/google/uuid"
)

var (
	_ goalsRepo  = (*repoMock)(nil)
	_ engineRepo = (*repoMock)(nil)
)

type repoMock struct {
	mu         sync.Mutex
	goals      map[uuid.UUID]*Goal
	templates  map[uuid.UUID]*Template
	eventsSeen map[uuid.UUID]bool
}

func NewMockGoalsRepo() *repoMock {
	return &repoMock{
		goals:      make(map[uuid.UUID]*Goal),
		templates:  make(map[uuid.UUID]*Template),
		eventsSeen: make(map[uuid.UUID]bool),
	}
}

func (r *repoMock) Create(_ context.Context, goal Goal) (*Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	goal.Version = 1
	goal.RecalcProgress()
	r.goals[goal.ID] = &goal
	stored := goal
	return &stored, nil
}

func (r *repoMock) Get(_ context.Context, id uuid.UUID) (*Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	goal, ok := r.goals[id]
	if !ok {
		return nil, ErrGoalNotFound
	}
	g := *goal
	return &g, nil
}

func (r *repoMock) List(_ context.Context, params ListParams) ([]*Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var goals []*Goal
	for _, goal := range r.goals {
		if goal.UserID != params.UserID {
			continue
		}
		if params.Status != "" && goal.Status != params.Status {
			continue
		}
		g := *goal
		goals = append(goals, &g)
	}
	return goals, nil
}

func (r *repoMock) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	goal, ok := r.goals[id]
	if !ok {
		return ErrGoalNotFound
	}
	goal.Status = status
	goal.Version++
	return nil
}

func (r *repoMock) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.goals[id]; !ok {
		return ErrGoalNotFound
	}
	delete(r.goals, id)
	return nil
}

func (r *repoMock) ApplyUpdate(_ context.Context, goal *Goal, expectedVersion int, event ProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.eventsSeen[event.ID] {
		return ErrDuplicateEvent
	}
	stored, ok := r.goals[goal.ID]
	if !ok {
		return ErrGoalNotFound
	}
	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	r.eventsSeen[event.ID] = true
	goal.Version = expectedVersion + 1
	updated := *goal
	r.goals[goal.ID] = &updated
	return nil
}

func (r *repoMock) Counts(_ context.Context, userID uuid.UUID) (*SummaryCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := &SummaryCounts{}
	for _, goal := range r.goals {
		if goal.UserID != userID {
			continue
		}
		counts.Total++
		if goal.Status == StatusCompleted {
			counts.Completed++
		}
		if goal.BestStreak > counts.MaxBestStreak {
			counts.MaxBestStreak = goal.BestStreak
		}
	}
	return counts, nil
}

func (r *repoMock) CountCompleted(_ context.Context, userID uuid.UUID) (int, error) {
	counts, _ := r.Counts(context.Background(), userID)
	return counts.Completed, nil
}

func (r *repoMock) ListTemplates(_ context.Context) ([]*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var templates []*Template
	for _, t := range r.templates {
		template := *t
		templates = append(templates, &template)
	}
	return templates, nil
}

func (r *repoMock) GetTemplate(_ context.Context, id uuid.UUID) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	template, ok := r.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	t := *template
	return &t, nil
}

func (r *repoMock) BumpTemplateUsage(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	template, ok := r.templates[id]
	if !ok {
		return ErrTemplateNotFound
	}
	template.UsageCount++
	return nil
}

var _ achievementsEvaluator = (*achievementsMock)(nil)

type achievementsMock struct {
	mu     sync.Mutex
	events []achievements.Event
	points int
}

func NewMockAchievementsEvaluator() *achievementsMock {
	return &achievementsMock{}
}

func (a *achievementsMock) Evaluate(_ context.Context, _ uuid.UUID, event achievements.Event) ([]*achievements.UserAchievement, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil, nil
}

func (a *achievementsMock) PointsTotal(context.Context, uuid.UUID) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.points, nil
}

func (a *achievementsMock) Events() []achievements.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]achievements.Event{}, a.events...)
}
