package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusreg/server/tests/testdata"
)

type healthPayload struct {
	Status string `json:"status"`
}

func TestHealthz(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := env.Server.Client().Get(env.Server.URL + "/healthz")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload healthPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "ok", payload.Status)
}

func TestReadyz(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := env.Server.Client().Get(env.Server.URL + "/readyz")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload healthPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "ready", payload.Status)
}

func TestHealthReportsDatabase(t *testing.T) {
	env := setupTestEnv(t)

	resp := getJSON(t, env, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	// With email disabled the job queue check warns, so overall status is
	// degraded rather than healthy. Degraded still serves traffic.
	assert.Equal(t, "degraded", payload["status"])

	checks, ok := payload["checks"].(map[string]any)
	require.True(t, ok, "health response should carry checks")

	db, ok := checks["database"].(map[string]any)
	require.True(t, ok, "health response should check the database")
	assert.Equal(t, "pass", db["status"])

	queue, ok := checks["job_queue"].(map[string]any)
	require.True(t, ok, "health response should check the job queue")
	assert.Equal(t, "warn", queue["status"])
}

func TestHealthHealthyWithJobQueue(t *testing.T) {
	env := setupTestEnvWithEmail(t)

	resp := getJSON(t, env, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	assert.Equal(t, "healthy", payload["status"])

	checks, ok := payload["checks"].(map[string]any)
	require.True(t, ok, "health response should carry checks")

	queue, ok := checks["job_queue"].(map[string]any)
	require.True(t, ok, "health response should check the job queue")
	assert.Equal(t, "pass", queue["status"])
}

func TestVersionEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	resp := getJSON(t, env, "/version")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	assert.Equal(t, "test", payload["version"])
	assert.Equal(t, "test-commit", payload["git_commit"])
}

func TestMetricsExposesRegistrationCounters(t *testing.T) {
	env := setupTestEnv(t)

	studentID, _ := createStudent(t, env, testdata.StudentInput{Name: "Metric Student", Email: testdata.UniqueEmail("metrics")})
	courseID, _ := createCourse(t, env, testdata.CourseInput{Title: "Observability", Code: testdata.UniqueCourseCode()})
	require.Equal(t, http.StatusCreated, register(t, env, studentID, courseID).StatusCode)

	resp := getJSON(t, env, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	assert.True(t, strings.Contains(text, "campusreg_registrations_total"),
		"metrics should expose the registration counter")
	assert.True(t, strings.Contains(text, "campusreg_http_requests_total"),
		"metrics should expose the HTTP request counter")
}
