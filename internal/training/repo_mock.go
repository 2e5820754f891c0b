package training

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

var _ trainingRepo = (*repoMock)(nil)

type repoMock struct {
	mu       sync.Mutex
	sessions []*Session
}

func NewMockTrainingRepo() *repoMock {
	return &repoMock{}
}

func (r *repoMock) Add(_ context.Context, session Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	stored := session
	r.sessions = append(r.sessions, &stored)
	s := stored
	return &s, nil
}

func (r *repoMock) List(_ context.Context, params ListParams) ([]*Session, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*Session
	for _, session := range r.sessions {
		if session.UserID != params.UserID {
			continue
		}
		if params.Type != "" && session.Type != params.Type {
			continue
		}
		s := *session
		matched = append(matched, &s)
	}

	total := len(matched)
	offset := (params.Page - 1) * params.Size
	if offset >= total {
		return []*Session{}, total, nil
	}
	end := offset + params.Size
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *repoMock) Count(_ context.Context, userID uuid.UUID, sessionType SessionType) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, session := range r.sessions {
		if session.UserID != userID {
			continue
		}
		if sessionType != "" && session.Type != sessionType {
			continue
		}
		count++
	}
	return count, nil
}
