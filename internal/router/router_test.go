package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lawmon-api/internal/dto"
	"github.com/noah-isme/lawmon-api/internal/handler"
	"github.com/noah-isme/lawmon-api/internal/models"
	"github.com/noah-isme/lawmon-api/internal/repository"
	"github.com/noah-isme/lawmon-api/internal/service"
	"github.com/noah-isme/lawmon-api/pkg/auth"
	"github.com/noah-isme/lawmon-api/pkg/mailer"
	"github.com/noah-isme/lawmon-api/pkg/realtime"
)

var routerNow = time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newTestEngine(t *testing.T, cfg Config, verifier *auth.Verifier) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	now := func() time.Time { return routerNow }

	store := repository.NewMemoryStore(repository.DefaultSeed(routerNow))
	metrics := service.NewMetricsService()
	hub := realtime.NewHub(8, nil)
	t.Cleanup(hub.Close)
	cache := service.NewSnapshotCache(service.SnapshotCacheParams{Repo: repository.NewMemoryCacheRepository(time.Minute, time.Minute), Metrics: metrics, Enabled: true})

	dispatcher := service.NewDispatcher(service.DispatcherParams{
		Broadcaster: service.NewRealtimeBroadcaster(hub),
		Mailer:      mailer.NewLogMailer(nil),
		Metrics:     metrics,
	})
	amendments := service.NewAmendmentService(service.AmendmentServiceParams{
		Store: store, Dispatcher: dispatcher, Cache: cache, Metrics: metrics, Now: now,
	})
	notifications := service.NewNotificationService(store, dispatcher, nil, nil)
	dashboard := service.NewDashboardService(service.DashboardServiceParams{Source: store, Cache: cache, Now: now})
	exporter := service.NewExportService(service.ExportServiceParams{Amendments: amendments, Now: now})

	return New(cfg, Handlers{
		Amendments:    handler.NewAmendmentHandler(amendments, exporter),
		Notifications: handler.NewNotificationHandler(notifications, amendments, hub, nil),
		Dashboard:     handler.NewDashboardHandler(dashboard),
		Metrics:       handler.NewMetricsHandler(metrics, nil),
	}, verifier, metrics, nil)
}

func call(engine *gin.Engine, method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if dest != nil {
		require.NoError(t, json.Unmarshal(env.Data, dest))
	}
	return env
}

func firstOpenAmendment(t *testing.T, engine *gin.Engine) models.AmendmentRecord {
	t.Helper()
	rec := call(engine, http.MethodGet, "/api/law-amendments?status=IN_PROGRESS", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []models.AmendmentRecord
	decode(t, rec, &items)
	require.NotEmpty(t, items)
	return items[0]
}

func TestApprovalFlowThroughHTTP(t *testing.T) {
	engine := newTestEngine(t, Config{APIPrefix: "/api"}, nil)
	target := firstOpenAmendment(t, engine)

	rec := call(engine, http.MethodGet, "/api/dashboard/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var before dto.DashboardSnapshot
	decode(t, rec, &before)

	rec = call(engine, http.MethodPut, "/api/law-amendments/"+target.ID+"/status", `{"status":"COMPLETED","approver":"최부장","approvalComment":"검토 완료"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result dto.TransitionResponse
	decode(t, rec, &result)
	require.NotNil(t, result.Notification)
	assert.Equal(t, models.NotificationTypeApprovalComplete, result.Notification.Type)

	rec = call(engine, http.MethodPut, "/api/law-amendments/"+target.ID+"/status", `{"status":"COMPLETED","approvalComment":"again"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(engine, http.MethodGet, "/api/notifications?unreadOnly=true", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list dto.NotificationListResponse
	decode(t, rec, &list)
	require.NotEmpty(t, list.Items)
	assert.Equal(t, models.NotificationTypeApprovalComplete, list.Items[0].Type)

	rec = call(engine, http.MethodGet, "/api/dashboard/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var after dto.DashboardSnapshot
	env := decode(t, rec, &after)
	assert.Equal(t, false, env.Meta["cache_hit"])
	assert.Equal(t, before.StatusCounts[models.AmendmentStatusCompleted]+1, after.StatusCounts[models.AmendmentStatusCompleted])
}

func TestExportRouteIsNotShadowedByID(t *testing.T) {
	engine := newTestEngine(t, Config{APIPrefix: "/api"}, nil)
	rec := call(engine, http.MethodGet, "/api/law-amendments/export?format=csv", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, rec.Body.String(), "Law Name,Amendment Date")
}

func TestMutatingRoutesRequireTokenWhenEnabled(t *testing.T) {
	verifier := auth.NewVerifier("secret", "")
	engine := newTestEngine(t, Config{APIPrefix: "/api", RequireAuth: true, ApproverRoles: []string{"approver"}}, verifier)
	target := firstOpenAmendment(t, engine)
	path := "/api/law-amendments/" + target.ID + "/status"
	body := `{"status":"COMPLETED","approvalComment":"ok"}`

	assert.Equal(t, http.StatusUnauthorized, call(engine, http.MethodPut, path, body, "").Code)

	viewer, err := verifier.Sign(&auth.Claims{Name: "뷰어", Role: "viewer"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call(engine, http.MethodPut, path, body, viewer).Code)

	approver, err := verifier.Sign(&auth.Claims{Name: "김결재", Role: "approver"})
	require.NoError(t, err)
	rec := call(engine, http.MethodPut, path, body, approver)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result dto.TransitionResponse
	decode(t, rec, &result)
	require.NotNil(t, result.Record.Approver)
	assert.Equal(t, "김결재", *result.Record.Approver)
}

func TestTestEmailRouteIsRateLimited(t *testing.T) {
	engine := newTestEngine(t, Config{APIPrefix: "/api", TestEmailRate: 0.001, TestEmailBurst: 1}, nil)
	body := `{"emailAddress":"ops@example.com"}`

	assert.Equal(t, http.StatusAccepted, call(engine, http.MethodPost, "/api/notifications/test-email", body, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, call(engine, http.MethodPost, "/api/notifications/test-email", body, "").Code)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	engine := newTestEngine(t, Config{}, nil)
	assert.Equal(t, http.StatusOK, call(engine, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, call(engine, http.MethodGet, "/ready", "", "").Code)
	call(engine, http.MethodGet, "/api/law-amendments", "", "")
	rec := call(engine, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `path="/api/law-amendments"`)
}
