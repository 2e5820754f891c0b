package goals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkovacevic/peakform/internal/telemetry/metrics"

	"github.com/coocood/freecache"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	m.Run()
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

type handlerTestSetup struct {
	handler *Handler
	repo    *repoMock
	router  *mux.Router
	ownerID uuid.UUID
}

func newHandlerTestSetup(t *testing.T) *handlerTestSetup {
	t.Helper()

	repo := NewMockGoalsRepo()
	ownerID := uuid.New()
	engine := NewEngine(
		repo,
		NewMockAchievementsEvaluator(),
		time.UTC,
		freecache.NewCache(512*1024),
		30*time.Second,
		metrics.NewTestManager(),
	)
	handler := NewHandler(repo, engine, ownerID, metrics.NewTestManager())

	r := mux.NewRouter()
	r.HandleFunc("/goals", handler.HandleAdd).Methods("POST")
	r.HandleFunc("/goals", handler.HandleList).Methods("GET")
	r.HandleFunc("/goals/summary", handler.HandleSummary).Methods("GET")
	r.HandleFunc("/goals/templates/{id}/use", handler.HandleUseTemplate).Methods("POST")
	r.HandleFunc("/goals/{id}", handler.HandleGet).Methods("GET")
	r.HandleFunc("/goals/{id}", handler.HandleDelete).Methods("DELETE")
	r.HandleFunc("/goals/{id}/status", handler.HandleUpdateStatus).Methods("PUT")
	r.HandleFunc("/goals/{id}/progress", handler.HandleAddProgress).Methods("POST")

	return &handlerTestSetup{
		handler: handler,
		repo:    repo,
		router:  r,
		ownerID: ownerID,
	}
}

func TestGoalsHandler_Add(t *testing.T) {
	setup := newHandlerTestSetup(t)

	reqBody := `{
		"title": "bench press 225",
		"specific": "bench press 225 lbs for one rep",
		"measurable": "one rep max in lbs",
		"achievable": "currently at 200 lbs",
		"relevant": "builds upper body strength",
		"category": "training",
		"priority": "high",
		"targetValue": 225,
		"unit": "lbs"
	}`
	req, err := http.NewRequest("POST", "/goals", bytes.NewBufferString(reqBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	setup.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var added Goal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &added))
	assert.Equal(t, "bench press 225", added.Title)
	assert.Equal(t, "one rep max in lbs", added.Measurable)
	assert.Equal(t, setup.ownerID, added.UserID)
	assert.Equal(t, StatusActive, added.Status)
	assert.Equal(t, 1, added.Version)
}

func TestGoalsHandler_Add_InvalidCategory(t *testing.T) {
	setup := newHandlerTestSetup(t)

	reqBody := `{"title": "whatever", "category": "gaming"}`
	req, err := http.NewRequest("POST", "/goals", bytes.NewBufferString(reqBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	setup.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGoalsHandler_Add_MissingSmartFields(t *testing.T) {
	setup := newHandlerTestSetup(t)

	reqBody := `{
		"title": "vague ambitions",
		"specific": "lift more",
		"category": "training",
		"targetValue": 100
	}`
	req, err := http.NewRequest("POST", "/goals", bytes.NewBufferString(reqBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	setup.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "measurable")
}

func TestGoalsHandler_UseTemplate(t *testing.T) {
	setup := newHandlerTestSetup(t)

	templateID := uuid.New()
	setup.repo.templates[templateID] = &Template{
		ID:           templateID,
		Title:        "Run a 10k",
		Specific:     "run a full 10k without stopping",
		Measurable:   "distance in km",
		Achievable:   "already running 5k weekly",
		Relevant:     "endurance base",
		Category:     CategoryPerformance,
		IsPublic:     true,
		TemplateData: []byte(`{"targetValue": 10, "unit": "km"}`),
	}

	req, err := http.NewRequest("POST", fmt.Sprintf("/goals/templates/%s/use", templateID), nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	setup.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var added Goal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &added))
	assert.Equal(t, "Run a 10k", added.Title)
	assert.Equal(t, "distance in km", added.Measurable)
	assert.Equal(t, float64(10), added.TargetValue)
	assert.Equal(t, setup.ownerID, added.UserID)

	template, err := setup.repo.GetTemplate(context.Background(), templateID)
	require.NoError(t, err)
	assert.Equal(t, 1, template.UsageCount)
}

func TestGoalsHandler_Get_NotFound(t *testing.T) {
	setup := newHandlerTestSetup(t)

	req, err := http.NewRequest("GET", "/goals/"+uuid.NewString(), nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	setup.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGoalsHandler_List(t *testing.T) {
	setup := newHandlerTestSetup(t)
	ctx := context.Background()

	_, err := setup.repo.Create(ctx, Goal{
		UserID: setup.ownerID, Title: "active goal", Category: CategoryTraining,
		Priority: PriorityMedium, Status: StatusActive, StartDate: time.Now(),
	})
	require.NoError(t, err)
	_, err = setup.repo.Create(ctx, Goal{
		UserID: setup.ownerID, Title: "done goal", Category: CategorySleep,
		Priority: PriorityMedium, Status: StatusCompleted, StartDate: time.Now(),
	})
	require.NoError(t, err)

	req, err := http.NewRequest("GET", "/goals?status=active", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	setup.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var goals []*Goal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &goals))
	require.Len(t, goals, 1)
	assert.Equal(t, "active goal", goals[0].Title)
}

func TestGoalsHandler_UpdateStatus(t *testing.T) {
	setup := newHandlerTestSetup(t)
	ctx := context.Background()

	goal, err := setup.repo.Create(ctx, Goal{
		UserID: setup.ownerID, Title: "pause me", Category: CategoryTraining,
		Priority: PriorityMedium, Status: StatusActive, StartDate: time.Now(),
	})
	require.NoError(t, err)

	req, err := http.NewRequest(
		"PUT",
		fmt.Sprintf("/goals/%s/status", goal.ID),
		bytes.NewBufferString(`{"status": "paused"}`),
	)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	setup.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	stored, err := setup.repo.Get(ctx, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, stored.Status)
}

func TestGoalsHandler_AddProgress(t *testing.T) {
	setup := newHandlerTestSetup(t)
	ctx := context.Background()

	goal, err := setup.repo.Create(ctx, Goal{
		UserID: setup.ownerID, Title: "run 100 km", Category: CategoryPerformance,
		Priority: PriorityMedium, Status: StatusActive, TargetValue: 100,
		StartDate: time.Now(),
	})
	require.NoError(t, err)

	reqBody := fmt.Sprintf(`{"eventId": "%s", "value": 100}`, uuid.NewString())
	req, err := http.NewRequest(
		"POST",
		fmt.Sprintf("/goals/%s/progress", goal.ID),
		bytes.NewBufferString(reqBody),
	)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	setup.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var result ApplyProgressEventResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.False(t, result.Duplicate)
	assert.Equal(t, StatusCompleted, result.Goal.Status)
	assert.Equal(t, 100, result.Goal.ProgressPercentage)
	assert.NotNil(t, result.Goal.CompletionDate)
}

func TestGoalsHandler_AddProgress_Conflict(t *testing.T) {
	setup := newHandlerTestSetup(t)
	ctx := context.Background()

	goal, err := setup.repo.Create(ctx, Goal{
		UserID: setup.ownerID, Title: "conflicted", Category: CategoryOther,
		Priority: PriorityMedium, Status: StatusActive, TargetValue: 10,
		StartDate: time.Now(),
	})
	require.NoError(t, err)

	setup.handler.engine = &conflictingEngineMock{}

	reqBody := fmt.Sprintf(`{"eventId": "%s", "value": 1}`, uuid.NewString())
	req, err := http.NewRequest(
		"POST",
		fmt.Sprintf("/goals/%s/progress", goal.ID),
		bytes.NewBufferString(reqBody),
	)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	setup.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestGoalsHandler_Summary(t *testing.T) {
	setup := newHandlerTestSetup(t)
	ctx := context.Background()

	_, err := setup.repo.Create(ctx, Goal{
		UserID: setup.ownerID, Title: "done", Category: CategoryTraining,
		Priority: PriorityMedium, Status: StatusCompleted, StartDate: time.Now(),
		BestStreak: 5,
	})
	require.NoError(t, err)

	req, err := http.NewRequest("GET", "/goals/summary", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	setup.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var summary Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.TotalGoals)
	assert.Equal(t, 1, summary.CompletedGoals)
	assert.Equal(t, 5, summary.BestStreak)
}

type conflictingEngineMock struct{}

func (e *conflictingEngineMock) ApplyProgressEvent(context.Context, ProgressEvent) (*ApplyProgressEventResult, error) {
	return nil, ErrVersionConflict
}

func (e *conflictingEngineMock) Summary(context.Context, uuid.UUID) (*Summary, error) {
	return &Summary{}, nil
}
