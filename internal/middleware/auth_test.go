package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkovacevic/peakform/internal/auth"
	"github.com/mkovacevic/peakform/internal/middleware"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestAuthMiddlewareHandler_AuthCheck(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	loginChecker := auth.NewLoginChecker(time.Hour, db)
	authMiddleware := middleware.NewAuthMiddlewareHandler(loginChecker)

	const (
		validToken   = "valid-token"
		invalidToken = "invalid-token"
	)

	testCases := []struct {
		name               string
		path               string
		method             string
		token              string
		expectedStatusCode int
	}{
		{
			name:               "AllowedPathWithoutToken",
			path:               "/version",
			method:             "GET",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "RootAllowedWithoutToken",
			path:               "/",
			method:             "GET",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "LoginAllowedWithoutToken",
			path:               "/a/login",
			method:             "POST",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "ProtectedPathWithoutToken",
			path:               "/goals",
			method:             "GET",
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "ProtectedPathValidToken",
			path:               "/goals",
			method:             "GET",
			token:              validToken,
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "ProtectedPathInvalidToken",
			path:               "/goals/summary",
			method:             "GET",
			token:              invalidToken,
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "OptionsAlwaysAllowed",
			path:               "/goals",
			method:             "OPTIONS",
			expectedStatusCode: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			switch tc.token {
			case validToken:
				mock.ExpectGet("peakform-service-session||" + validToken).
					SetVal(fmt.Sprintf("%d", time.Now().Unix()))
			case invalidToken:
				mock.ExpectGet("peakform-service-session||" + invalidToken).
					SetErr(redis.Nil)
			}

			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("X-PF-TOKEN", tc.token)
			}

			rr := httptest.NewRecorder()
			handler := authMiddleware.AuthCheck()(http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
				},
			))
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
		})
	}
}
