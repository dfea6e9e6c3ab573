package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"maintenance-task-service/internal/domain"

	"github.com/gin-gonic/gin"
)

type stubHealthService struct {
	status domain.HealthStatus
}

func (s stubHealthService) CheckHealth(ctx context.Context) domain.HealthStatus {
	return s.status
}

func TestCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		status domain.HealthStatus
		code   int
		want   string
	}{
		{"healthy", domain.HealthStatus{System: "operational", Database: "up", Redis: "up"}, http.StatusOK, "ok"},
		{"degraded", domain.HealthStatus{System: "degraded", Database: "down: timeout"}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthHandler(stubHealthService{status: tt.status}).Check)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.code {
				t.Fatalf("got status %d, want %d", w.Code, tt.code)
			}

			var body struct {
				Status string              `json:"status"`
				Checks domain.HealthStatus `json:"checks"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.want {
				t.Errorf("got status %q, want %q", body.Status, tt.want)
			}
			if body.Checks.Database != tt.status.Database {
				t.Errorf("got database %q, want %q", body.Checks.Database, tt.status.Database)
			}
		})
	}
}
