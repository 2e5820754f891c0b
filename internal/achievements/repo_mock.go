package achievements

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ evaluatorRepo = (*repoMock)(nil)

type repoMock struct {
	mu          sync.Mutex
	definitions []*Definition
	progress    map[string]*UserAchievement // key: userID || definitionID
	points      map[uuid.UUID]int           // definitionID -> points
}

func NewMockAchievementsRepo(definitions ...*Definition) *repoMock {
	points := make(map[uuid.UUID]int, len(definitions))
	for _, def := range definitions {
		points[def.ID] = def.Points
	}
	return &repoMock{
		definitions: definitions,
		progress:    make(map[string]*UserAchievement),
		points:      points,
	}
}

func progressKey(userID, definitionID uuid.UUID) string {
	return userID.String() + "||" + definitionID.String()
}

func (r *repoMock) ListDefinitions(_ context.Context, category Category, onlyActive bool) ([]*Definition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var defs []*Definition
	for _, def := range r.definitions {
		if category != "" && def.Category != category {
			continue
		}
		if onlyActive && !def.Active {
			continue
		}
		d := *def
		defs = append(defs, &d)
	}
	return defs, nil
}

func (r *repoMock) Advance(
	_ context.Context,
	userID, definitionID uuid.UUID,
	progress, maxProgress int,
	at time.Time,
) (*UserAchievement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := progressKey(userID, definitionID)
	ua, ok := r.progress[key]
	if !ok {
		ua = &UserAchievement{
			ID:           uuid.New(),
			UserID:       userID,
			DefinitionID: definitionID,
		}
		r.progress[key] = ua
	}

	if progress > ua.Progress {
		ua.Progress = progress
		if ua.Progress > maxProgress {
			ua.Progress = maxProgress
		}
	}
	if progress >= maxProgress && !ua.Earned {
		ua.Earned = true
		earnedAt := at
		ua.EarnedDate = &earnedAt
	}

	result := *ua
	return &result, nil
}

func (r *repoMock) ListForUser(_ context.Context, userID uuid.UUID) ([]*UserAchievement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var uas []*UserAchievement
	for _, ua := range r.progress {
		if ua.UserID != userID {
			continue
		}
		u := *ua
		uas = append(uas, &u)
	}
	return uas, nil
}

func (r *repoMock) PointsTotal(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, ua := range r.progress {
		if ua.UserID == userID && ua.Earned {
			total += r.points[ua.DefinitionID]
		}
	}
	return total, nil
}
