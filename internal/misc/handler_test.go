package misc

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkovacevic/peakform/internal/auth"
	"github.com/mkovacevic/peakform/internal/telemetry/metrics"

	"github.com/go-redis/redis_rate/v9"
	"github.com/go-redis/redismock/v8"
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

type rateLimiterMock struct{}

func (rl *rateLimiterMock) Allow(_ context.Context, _ string, _ redis_rate.Limit) (*redis_rate.Result, error) {
	return &redis_rate.Result{Allowed: 1}, nil
}

func newMiscTestSetup(t *testing.T) (*mux.Router, redismock.ClientMock) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	authService := auth.NewAuthService(&auth.Admin{
		Username:     "testuser",
		PasswordHash: "$2a$14$6Gmhg85si2etd3K9oB8nYu1cxfbrdmhkg6wI6OXsa88IF4L2r/L9i", // testpass
	}, time.Hour, db)
	authService.RandStringFunc = func(s int) (string, error) {
		return "test_token", nil
	}

	handler := NewHandler("test-version", authService)
	r := mux.NewRouter()
	handler.SetupRoutes(r, &rateLimiterMock{}, 15, metrics.NewTestManager())

	return r, mock
}

func TestMiscHandler_Root(t *testing.T) {
	router, _ := newMiscTestSetup(t)

	req, err := http.NewRequest("GET", "/", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "I'm OK, thanks ;)", rr.Body.String())
}

func TestMiscHandler_Version(t *testing.T) {
	router, _ := newMiscTestSetup(t)

	req, err := http.NewRequest("GET", "/version", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "test-version", rr.Body.String())
}

func TestMiscHandler_Login(t *testing.T) {
	router, mock := newMiscTestSetup(t)

	mock.Regexp().ExpectSet("peakform-service-session||test_token", `\d+`, 0).SetVal("ok")
	mock.ExpectSAdd("peakform-service-sessions", "test_token").SetVal(1)

	reqBody := `{"username": "testuser", "password": "testpass"}`
	req, err := http.NewRequest("POST", "/a/login", bytes.NewBufferString(reqBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"token": "test_token"}`, rr.Body.String())
}

func TestMiscHandler_Login_WrongCredentials(t *testing.T) {
	router, _ := newMiscTestSetup(t)

	reqBody := `{"username": "testuser", "password": "nope"}`
	req, err := http.NewRequest("POST", "/a/login", bytes.NewBufferString(reqBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
