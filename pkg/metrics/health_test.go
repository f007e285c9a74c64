package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetHealth(t *testing.T) {
	t.Helper()
	healthChecker = newHealthChecker()
}

func registerCritical(healthy bool, message string) {
	RegisterComponent(ComponentStorage, healthy, message)
	RegisterComponent(ComponentEvents, true, "")
	RegisterComponent(ComponentAPI, true, "")
}

func TestRegisterAndUpdateComponent(t *testing.T) {
	resetHealth(t)

	RegisterComponent("test", true, "ok")
	UpdateComponent("test", false, "error")

	comp := healthChecker.components["test"]
	assert.False(t, comp.Healthy)
	assert.Equal(t, "error", comp.Message)
	assert.Equal(t, []string{"test"}, Components())

	UnregisterComponent("test")
	assert.Empty(t, Components())
}

func TestGetHealth(t *testing.T) {
	tests := []struct {
		name       string
		healthy    bool
		wantStatus string
		wantValue  string
	}{
		{"all healthy", true, "healthy", "healthy"},
		{"one unhealthy", false, "unhealthy", "unhealthy: disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHealth(t)
			SetVersion("1.0.0")
			RegisterComponent(ComponentAPI, true, "")
			RegisterComponent(ComponentStorage, tt.healthy, "disk full")

			health := GetHealth()
			assert.Equal(t, tt.wantStatus, health.Status)
			assert.Len(t, health.Components, 2)
			assert.Equal(t, tt.wantValue, health.Components[ComponentStorage])
			assert.Equal(t, "1.0.0", health.Version)
		})
	}
}

func TestGetReadiness(t *testing.T) {
	resetHealth(t)
	registerCritical(true, "")
	assert.Equal(t, "ready", GetReadiness().Status)

	resetHealth(t)
	RegisterComponent(ComponentAPI, true, "")
	readiness := GetReadiness()
	assert.Equal(t, "not_ready", readiness.Status)
	assert.NotEmpty(t, readiness.Message)
	assert.Equal(t, "not registered", readiness.Components[ComponentStorage])

	resetHealth(t)
	registerCritical(false, "ping failed")
	readiness = GetReadiness()
	assert.Equal(t, "not_ready", readiness.Status)
	assert.Equal(t, "waiting for storage", readiness.Message)

	// Non-critical components do not affect readiness
	resetHealth(t)
	registerCritical(true, "")
	RegisterComponent(ComponentPayments, false, "stripe not configured")
	assert.Equal(t, "ready", GetReadiness().Status)
}

func TestHealthHandlers(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		healthy  bool
		wantCode int
		want     string
	}{
		{"health ok", HealthHandler(), true, http.StatusOK, "healthy"},
		{"health failing", HealthHandler(), false, http.StatusServiceUnavailable, "unhealthy"},
		{"ready ok", ReadyHandler(), true, http.StatusOK, "ready"},
		{"ready failing", ReadyHandler(), false, http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHealth(t)
			registerCritical(tt.healthy, "broken")

			w := httptest.NewRecorder()
			tt.handler(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var status HealthStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
			assert.Equal(t, tt.want, status.Status)
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	resetHealth(t)

	w := httptest.NewRecorder()
	LivenessHandler()(w, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "alive", response["status"])
	assert.NotEmpty(t, response["uptime"])
}
