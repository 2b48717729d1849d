package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosunhq/bosun/pkg/config"
	"github.com/bosunhq/bosun/pkg/environment"
	"github.com/bosunhq/bosun/pkg/log"
	"github.com/bosunhq/bosun/pkg/orchestrator"
	"github.com/bosunhq/bosun/pkg/types"
)

func init() {
	log.Setup(config.LoggingConfig{Level: "error", JSON: true})
}

func testServer(t *testing.T) *Server {
	t.Helper()

	start := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	env, err := environment.NewBuilder().
		Periods(13, start).
		Days(56, start).
		Build()
	require.NoError(t, err)

	cfg, err := config.Load("")
	require.NoError(t, err)

	// The orchestrator is not started: no actors run, but routing,
	// decoding and error mapping are all exercised.
	return NewServer(orchestrator.New(cfg, env, nil))
}

func TestHealthz(t *testing.T) {
	server := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestListAssetsEmpty(t *testing.T) {
	server := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/assets", nil)
	rr := httptest.NewRecorder()

	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestScheduleRejectsInvalidBody(t *testing.T) {
	server := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/assets/DF/strategic/schedule",
		strings.NewReader("{not json"))
	rr := httptest.NewRecorder()

	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "error")
}

func TestScheduleUnknownAsset(t *testing.T) {
	server := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/assets/DF/strategic/schedule",
		strings.NewReader(`{"work_order_number": 1, "period_id": 2}`))
	rr := httptest.NewRecorder()

	server.Router().ServeHTTP(rr, req)

	// No actor set is running for the asset.
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "not running")
}

func TestExportUnknownAsset(t *testing.T) {
	server := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/assets/HB/export", nil)
	rr := httptest.NewRecorder()

	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateOperationalValidation(t *testing.T) {
	server := testServer(t)

	// Missing required fields fail struct validation.
	req := httptest.NewRequest(http.MethodPost, "/v1/assets/DF/operationals",
		strings.NewReader(`{"id": "OP-DF-9"}`))
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateOperationalRequestToWorker(t *testing.T) {
	req := CreateOperationalRequest{
		ID:        "OP-DF-9",
		Resources: []string{"MTN-MECH"},
		Available: "2024-05-16T07:00:00Z/2024-05-30T15:00:00Z",
		Break:     "11:00-12:00",
		OffShift:  "19:00-07:00",
		Toolbox:   "07:00-08:00",
	}
	worker, err := req.toWorker(types.AssetDF)
	require.NoError(t, err)
	assert.Equal(t, types.WorkerID("OP-DF-9"), worker.ID)
	assert.Equal(t, types.AssetDF, worker.Asset)
	require.NoError(t, worker.Validate())

	req.Resources = []string{"NOT-A-CRAFT"}
	_, err = req.toWorker(types.AssetDF)
	assert.Error(t, err)
}
