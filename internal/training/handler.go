package training

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/mkovacevic/peakform/internal/achievements"
	"github.com/mkovacevic/peakform/internal/telemetry/metrics"
	"github.com/mkovacevic/peakform/internal/telemetry/tracing"
	"github.com/mkovacevic/peakform/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type trainingRepo interface {
	Add(ctx context.Context, session Session) (*Session, error)
	List(ctx context.Context, params ListParams) (_ []*Session, total int, err error)
	Count(ctx context.Context, userID uuid.UUID, sessionType SessionType) (int, error)
}

type achievementsEvaluator interface {
	Evaluate(ctx context.Context, userID uuid.UUID, event achievements.Event) ([]*achievements.UserAchievement, error)
}

type SessionsListResponse struct {
	Sessions []*Session `json:"sessions"`
	Total    int        `json:"total"`
}

type AddSessionResponse struct {
	Session             *Session                        `json:"session"`
	UpdatedAchievements []*achievements.UserAchievement `json:"updatedAchievements,omitempty"`
}

type Handler struct {
	repo         trainingRepo
	achievements achievementsEvaluator
	ownerID      uuid.UUID
	metrics      *metrics.Manager
}

func NewHandler(
	repo trainingRepo,
	achievementsService achievementsEvaluator,
	ownerID uuid.UUID,
	metrics *metrics.Manager,
) *Handler {
	return &Handler{
		repo:         repo,
		achievements: achievementsService,
		ownerID:      ownerID,
		metrics:      metrics,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var session Session
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		log.Errorf("new training session, unmarshal json params: %s", err)
		http.Error(w, "add training session failed", http.StatusBadRequest)
		return
	}

	session.UserID = handler.ownerID
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}

	if err := session.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	addedSession, err := handler.repo.Add(ctx, session)
	if err != nil {
		log.Errorf("failed to add training session [%s]: %s", session.Type, err)
		http.Error(w, "error, failed to add training session", http.StatusInternalServerError)
		return
	}

	log.Debugf("new training session added: [%s] %d min: %s", addedSession.Type, addedSession.DurationMinutes, addedSession.ID)
	handler.metrics.CounterTrainingSessions.Inc()

	response := AddSessionResponse{
		Session: addedSession,
	}
	response.UpdatedAchievements = handler.evaluateAchievements(ctx, addedSession)

	responseJson, err := json.Marshal(response)
	if err != nil {
		log.Errorf("failed to marshal added training session: %s", err)
		http.Error(w, "error, failed to add training session", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, responseJson, http.StatusCreated)
}

// evaluateAchievements is best effort, the session is already stored when it
// runs and its errors only get logged. Achievements are evaluated per
// category: every session counts towards the training ones, recovery
// sessions additionally towards the recovery ones.
func (handler *Handler) evaluateAchievements(ctx context.Context, session *Session) []*achievements.UserAchievement {
	var updated []*achievements.UserAchievement

	sessionCount, err := handler.repo.Count(ctx, handler.ownerID, "")
	if err != nil {
		log.Errorf("count training sessions for achievements: %s", err)
		return nil
	}

	uas, err := handler.achievements.Evaluate(ctx, handler.ownerID, achievements.Event{
		Category:  achievements.CategoryTraining,
		Metrics:   map[string]int{"session_count": sessionCount},
		Timestamp: session.StartedAt,
	})
	if err != nil {
		log.Errorf("evaluate training achievements: %s", err)
	} else {
		updated = append(updated, uas...)
	}

	if session.Type == TypeRecovery {
		recoveryCount, err := handler.repo.Count(ctx, handler.ownerID, TypeRecovery)
		if err != nil {
			log.Errorf("count recovery sessions for achievements: %s", err)
			return updated
		}
		uas, err := handler.achievements.Evaluate(ctx, handler.ownerID, achievements.Event{
			Category:  achievements.CategoryRecovery,
			Metrics:   map[string]int{"recovery_count": recoveryCount},
			Timestamp: session.StartedAt,
		})
		if err != nil {
			log.Errorf("evaluate recovery achievements: %s", err)
		} else {
			updated = append(updated, uas...)
		}
	}

	return updated
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.list")
	defer span.End()

	vars := mux.Vars(r)

	page, err := strconv.Atoi(vars["page"])
	if err != nil {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil {
		http.Error(w, "invalid size", http.StatusBadRequest)
		return
	}
	if page < 1 || size < 1 {
		http.Error(w, "invalid page or size", http.StatusBadRequest)
		return
	}

	sessionType := SessionType(r.URL.Query().Get("type"))
	if sessionType != "" && !sessionType.IsValid() {
		http.Error(w, "invalid session type", http.StatusBadRequest)
		return
	}

	sessions, total, err := handler.repo.List(ctx, ListParams{
		UserID: handler.ownerID,
		Type:   sessionType,
		Page:   page,
		Size:   size,
	})
	if err != nil {
		log.Errorf("list training sessions: %s", err)
		http.Error(w, "failed to get training sessions", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []*Session{}
	}

	responseJson, err := json.Marshal(SessionsListResponse{
		Sessions: sessions,
		Total:    total,
	})
	if err != nil {
		log.Errorf("marshal training sessions: %s", err)
		http.Error(w, "failed to get training sessions", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, responseJson)
}
