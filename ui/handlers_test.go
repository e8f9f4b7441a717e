package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gothresh/domain/threshold"
	"gothresh/internal/testkit"
)

func newTestApp() *App {
	return NewApp(nil, nil)
}

func doJSON(t *testing.T, app *App, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := doJSON(t, newTestApp(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestOptimizeEndpoint_InlineRows(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	rows := make([]geneRow, 0, 30)
	for i := 0; i < 30; i++ {
		rows = append(rows, geneRow{
			GeneID:     fmt.Sprintf("g%02d", i),
			EffectSize: f(0.1 * float64(i%7)),
			PValue:     f(float64(i+1) / 31.0),
		})
	}

	rec := doJSON(t, newTestApp(), http.MethodPost, "/api/optimize", optimizeRequest{
		Goal: "balanced",
		Rows: rows,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var run threshold.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	require.NotNil(t, run.Result)
	assert.Equal(t, threshold.GoalBalanced, run.Result.Goal)
	assert.Len(t, run.Result.Rows, 30)
	assert.NotEmpty(t, run.Result.MethodsText)
	assert.NotEmpty(t, run.ID)
}

func TestOptimizeEndpoint_Demo(t *testing.T) {
	rec := doJSON(t, newTestApp(), http.MethodPost, "/api/optimize", optimizeRequest{
		Goal: "discovery",
		Demo: &testkit.DEGeneratorConfig{
			GeneCount:    500,
			DEProportion: 0.2,
			NullSD:       0.2,
			DEMean:       1.5,
			DESD:         0.5,
			Seed:         7,
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var run threshold.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	require.NotNil(t, run.Result)
	assert.Len(t, run.Result.Rows, 500)
	assert.Greater(t, run.Result.NSignificant, 0)
}

func TestOptimizeEndpoint_BadRequests(t *testing.T) {
	app := newTestApp()

	rec := doJSON(t, app, http.MethodPost, "/api/optimize", optimizeRequest{
		Goal: "exploratory",
		Demo: &testkit.DEGeneratorConfig{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")

	req := httptest.NewRequest(http.MethodPost, "/api/optimize", strings.NewReader("{not json"))
	raw := httptest.NewRecorder()
	app.Router().ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)

	rec = doJSON(t, app, http.MethodPost, "/api/optimize", optimizeRequest{
		Rows: []geneRow{{GeneID: "dup"}, {GeneID: "dup"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunEndpoints_WithoutStorage(t *testing.T) {
	app := newTestApp()

	rec := doJSON(t, app, http.MethodGet, "/api/runs", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, app, http.MethodGet, "/api/runs/some-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
