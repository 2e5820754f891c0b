package goals

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mkovacevic/peakform/internal/telemetry/metrics"
	"github.com/mkovacevic/peakform/internal/telemetry/tracing"
	"github.com/mkovacevic/peakform/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type goalsRepo interface {
	Create(ctx context.Context, goal Goal) (*Goal, error)
	Get(ctx context.Context, id uuid.UUID) (*Goal, error)
	List(ctx context.Context, params ListParams) ([]*Goal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListTemplates(ctx context.Context) ([]*Template, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error)
	BumpTemplateUsage(ctx context.Context, id uuid.UUID) error
}

type progressEngine interface {
	ApplyProgressEvent(ctx context.Context, event ProgressEvent) (*ApplyProgressEventResult, error)
	Summary(ctx context.Context, userID uuid.UUID) (*Summary, error)
}

type Handler struct {
	repo    goalsRepo
	engine  progressEngine
	ownerID uuid.UUID
	metrics *metrics.Manager
}

func NewHandler(
	repo goalsRepo,
	engine progressEngine,
	ownerID uuid.UUID,
	metrics *metrics.Manager,
) *Handler {
	return &Handler{
		repo:    repo,
		engine:  engine,
		ownerID: ownerID,
		metrics: metrics,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var goal Goal
	if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
		log.Errorf("new goal, unmarshal json params: %s", err)
		http.Error(w, "add goal failed", http.StatusBadRequest)
		return
	}

	goal.UserID = handler.ownerID
	if goal.Status == "" {
		goal.Status = StatusActive
	}
	if goal.Priority == "" {
		goal.Priority = PriorityMedium
	}
	if goal.StartDate.IsZero() {
		goal.StartDate = time.Now()
	}

	if err := goal.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	addedGoal, err := handler.repo.Create(ctx, goal)
	if err != nil {
		log.Errorf("failed to add new goal [%s]: %s", goal.Title, err)
		http.Error(w, "error, failed to add new goal", http.StatusInternalServerError)
		return
	}

	log.Debugf("new goal added: [%s] [%s]: %s", addedGoal.Category, addedGoal.Title, addedGoal.ID)
	handler.metrics.CounterGoalsCreated.Inc()

	addedGoalJson, err := json.Marshal(addedGoal)
	if err != nil {
		log.Errorf("failed to marshal new goal: %s", err)
		http.Error(w, "error, failed to add new goal", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedGoalJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.list")
	defer span.End()

	status := Status(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	goals, err := handler.repo.List(ctx, ListParams{
		UserID: handler.ownerID,
		Status: status,
	})
	if err != nil {
		log.Errorf("list goals: %s", err)
		http.Error(w, "failed to get goals", http.StatusInternalServerError)
		return
	}
	if goals == nil {
		goals = []*Goal{}
	}

	goalsJson, err := json.Marshal(goals)
	if err != nil {
		log.Errorf("marshal goals: %s", err)
		http.Error(w, "failed to get goals", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, goalsJson)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.get")
	defer span.End()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid goal id", http.StatusBadRequest)
		return
	}

	goal, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrGoalNotFound) {
			http.Error(w, "goal not found", http.StatusNotFound)
			return
		}
		log.Errorf("get goal %s: %s", id, err)
		http.Error(w, "failed to get goal", http.StatusInternalServerError)
		return
	}

	goalJson, err := json.Marshal(goal)
	if err != nil {
		log.Errorf("marshal goal: %s", err)
		http.Error(w, "failed to get goal", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, goalJson)
}

type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

func (handler *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.updatestatus")
	defer span.End()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid goal id", http.StatusBadRequest)
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if !req.Status.IsValid() {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	if err := handler.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, ErrGoalNotFound) {
			http.Error(w, "goal not found", http.StatusNotFound)
			return
		}
		log.Errorf("update goal %s status: %s", id, err)
		http.Error(w, "failed to update goal", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "updated")
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.delete")
	defer span.End()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid goal id", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrGoalNotFound) {
			http.Error(w, "goal not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete goal %s: %s", id, err)
		http.Error(w, "failed to delete goal", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "deleted")
}

type AddProgressRequest struct {
	EventID   uuid.UUID   `json:"eventId"`
	Value     float64     `json:"value"`
	Note      string      `json:"note,omitempty"`
	Source    EventSource `json:"source,omitempty"`
	Timestamp *time.Time  `json:"timestamp,omitempty"`
}

func (handler *Handler) HandleAddProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.addprogress")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	goalID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid goal id", http.StatusBadRequest)
		return
	}

	var req AddProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add progress, unmarshal json params: %s", err)
		http.Error(w, "add progress failed", http.StatusBadRequest)
		return
	}

	event := ProgressEvent{
		ID:     req.EventID,
		GoalID: goalID,
		Value:  req.Value,
		Note:   req.Note,
		Source: req.Source,
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Source == "" {
		event.Source = SourceManual
	}
	if req.Timestamp != nil {
		event.Timestamp = *req.Timestamp
	} else {
		event.Timestamp = time.Now()
	}

	result, err := handler.engine.ApplyProgressEvent(ctx, event)
	if err != nil {
		var validationErr ValidationError
		switch {
		case errors.As(err, &validationErr):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrGoalNotFound):
			http.Error(w, "goal not found", http.StatusNotFound)
		case errors.Is(err, ErrVersionConflict):
			http.Error(w, "goal was modified, retry", http.StatusConflict)
		default:
			log.Errorf("apply progress event %s to goal %s: %s", event.ID, goalID, err)
			http.Error(w, "failed to apply progress", http.StatusInternalServerError)
		}
		return
	}

	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("marshal progress result: %s", err)
		http.Error(w, "failed to apply progress", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, resultJson)
}

func (handler *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.summary")
	defer span.End()

	summary, err := handler.engine.Summary(ctx, handler.ownerID)
	if err != nil {
		log.Errorf("goals summary: %s", err)
		http.Error(w, "failed to get summary", http.StatusInternalServerError)
		return
	}

	summaryJson, err := json.Marshal(summary)
	if err != nil {
		log.Errorf("marshal summary: %s", err)
		http.Error(w, "failed to get summary", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, summaryJson)
}

func (handler *Handler) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.listtemplates")
	defer span.End()

	templates, err := handler.repo.ListTemplates(ctx)
	if err != nil {
		log.Errorf("list goal templates: %s", err)
		http.Error(w, "failed to get templates", http.StatusInternalServerError)
		return
	}
	if templates == nil {
		templates = []*Template{}
	}

	templatesJson, err := json.Marshal(templates)
	if err != nil {
		log.Errorf("marshal goal templates: %s", err)
		http.Error(w, "failed to get templates", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, templatesJson)
}

// HandleUseTemplate creates a new goal prefilled from a template and bumps
// the template's usage counter.
func (handler *Handler) HandleUseTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.goals.usetemplate")
	defer span.End()

	templateID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid template id", http.StatusBadRequest)
		return
	}

	template, err := handler.repo.GetTemplate(ctx, templateID)
	if err != nil {
		log.Errorf("get goal template %s: %s", templateID, err)
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}

	goal := Goal{
		UserID:      handler.ownerID,
		Title:       template.Title,
		Description: template.Description,
		Specific:    template.Specific,
		Measurable:  template.Measurable,
		Achievable:  template.Achievable,
		Relevant:    template.Relevant,
		Category:    template.Category,
		Priority:    PriorityMedium,
		Status:      StatusActive,
		StartDate:   time.Now(),
	}
	if len(template.TemplateData) > 0 {
		// template data carries optional goal field overrides
		if err := json.Unmarshal(template.TemplateData, &goal); err != nil {
			log.Errorf("unmarshal template data for %s: %s", templateID, err)
			http.Error(w, "invalid template data", http.StatusInternalServerError)
			return
		}
		goal.UserID = handler.ownerID
	}

	if err := goal.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	addedGoal, err := handler.repo.Create(ctx, goal)
	if err != nil {
		log.Errorf("create goal from template %s: %s", templateID, err)
		http.Error(w, "failed to create goal", http.StatusInternalServerError)
		return
	}

	if err := handler.repo.BumpTemplateUsage(ctx, templateID); err != nil {
		// the goal is created, a stale usage counter is not worth failing over
		log.Warnf("bump template %s usage: %s", templateID, err)
	}

	handler.metrics.CounterGoalsCreated.Inc()

	addedGoalJson, err := json.Marshal(addedGoal)
	if err != nil {
		log.Errorf("marshal goal from template: %s", err)
		http.Error(w, "failed to create goal", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedGoalJson, http.StatusCreated)
}
