package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kioskworks/kiosk-admin-api/internal/dto"
	"github.com/kioskworks/kiosk-admin-api/internal/handler"
	"github.com/kioskworks/kiosk-admin-api/internal/service"
)

type mockActivityService struct {
	listResponse dto.ActivityListResponse
	listErr      error
	detail       dto.ActivityDetailResponse
	detailErr    error
	recorded     *dto.RecordActivityRequest
}

func (m *mockActivityService) List(context.Context, string) (dto.ActivityListResponse, error) {
	return m.listResponse, m.listErr
}

func (m *mockActivityService) Detail(context.Context, string) (dto.ActivityDetailResponse, error) {
	return m.detail, m.detailErr
}

func (m *mockActivityService) Record(_ context.Context, _ service.Actor, payload dto.RecordActivityRequest) (dto.ActivityDetailResponse, error) {
	m.recorded = &payload
	return m.detail, m.detailErr
}

type mockFilterManager struct {
	state service.FilterState
	err   error
}

func (m *mockFilterManager) Snapshot(context.Context, string) (service.FilterState, error) {
	return m.state, m.err
}

func (m *mockFilterManager) SetFilters(context.Context, string, dto.SetFiltersRequest) (service.FilterState, error) {
	return m.state, m.err
}

func (m *mockFilterManager) UpdateFilter(_ context.Context, _, key, _ string) (service.FilterState, error) {
	return m.state, m.err
}

func (m *mockFilterManager) SetSortOrder(context.Context, string, string) (service.FilterState, error) {
	return m.state, m.err
}

func (m *mockFilterManager) SetDateRange(context.Context, string, *time.Time, *time.Time) (service.FilterState, error) {
	return m.state, m.err
}

func (m *mockFilterManager) Verify(context.Context, string, int64) error {
	return nil
}

type mockSelection struct {
	selected []string
	toggled  string
	cleared  bool
	count    int64
	err      error
}

func (m *mockSelection) SelectAll(_ context.Context, _ string, ids []string) error {
	m.selected = append(m.selected, ids...)
	return m.err
}

func (m *mockSelection) Toggle(_ context.Context, _, id string) (bool, error) {
	m.toggled = id
	return true, m.err
}

func (m *mockSelection) Clear(context.Context, string) error {
	m.cleared = true
	return m.err
}

func (m *mockSelection) Count(context.Context, string) (int64, error) {
	return m.count, m.err
}

func (m *mockSelection) Members(context.Context, string) ([]string, error) {
	return m.selected, m.err
}

type mockBulkService struct {
	export     service.ExportPayload
	exportErr  error
	response   dto.BulkOperationResponse
	archiveErr error
	deleteErr  error
	lastActor  service.Actor
}

func (m *mockBulkService) Export(_ context.Context, _ string, actor service.Actor, _ string) (service.ExportPayload, error) {
	m.lastActor = actor
	return m.export, m.exportErr
}

func (m *mockBulkService) Archive(_ context.Context, _ string, actor service.Actor) (dto.BulkOperationResponse, error) {
	m.lastActor = actor
	return m.response, m.archiveErr
}

func (m *mockBulkService) Delete(_ context.Context, _ string, actor service.Actor) (dto.BulkOperationResponse, error) {
	m.lastActor = actor
	return m.response, m.deleteErr
}

type handlerMocks struct {
	activities *mockActivityService
	filters    *mockFilterManager
	selection  *mockSelection
	bulk       *mockBulkService
}

func setupActivityApp(t *testing.T, permissions []string) (*fiber.App, *handlerMocks) {
	t.Helper()

	mocks := &handlerMocks{
		activities: &mockActivityService{},
		filters:    &mockFilterManager{},
		selection:  &mockSelection{},
		bulk:       &mockBulkService{},
	}

	app := fiber.New()
	group := app.Group("/api/v1/activity-logs", func(c *fiber.Ctx) error {
		c.Locals("admin_id", "admin-1")
		c.Locals("session_id", "sess-1")
		c.Locals("permissions", permissions)
		return c.Next()
	})

	logger := zerolog.New(io.Discard)
	handler.NewActivityLogHandler(mocks.activities, mocks.filters, mocks.selection, mocks.bulk, logger).Register(group)
	return app, mocks
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

func TestActivityLogHandler_ListSuccess(t *testing.T) {
	app, mocks := setupActivityApp(t, nil)
	mocks.activities.listResponse = dto.ActivityListResponse{
		Items: []dto.FormattedActivity{{
			EntryID:      "entry-1",
			Icon:         "credit-card",
			Color:        "emerald",
			Title:        "Payment completed",
			RelativeTime: "moments ago",
		}},
		Pagination: dto.PaginationMeta{Page: 1, Limit: 25, TotalItems: 1, TotalPages: 1},
	}

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/activity-logs", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool                     `json:"success"`
		Data    dto.ActivityListResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Len(t, response.Data.Items, 1)
	require.Equal(t, "entry-1", response.Data.Items[0].EntryID)
	require.Equal(t, 1, response.Data.Pagination.TotalPages)
}

func TestActivityLogHandler_ListStaleConflict(t *testing.T) {
	app, mocks := setupActivityApp(t, nil)
	mocks.activities.listErr = service.ErrStaleQuery

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/activity-logs", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.False(t, response.Success)
	require.Contains(t, response.Message, "superseded")
}

func TestActivityLogHandler_DetailNotFound(t *testing.T) {
	app, mocks := setupActivityApp(t, nil)
	mocks.activities.detailErr = gorm.ErrRecordNotFound

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/activity-logs/missing", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestActivityLogHandler_SelectVisible(t *testing.T) {
	app, mocks := setupActivityApp(t, nil)
	mocks.selection.count = 3

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/activity-logs/selection", dto.SelectRequest{IDs: []string{"a", "b", "c"}}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"a", "b", "c"}, mocks.selection.selected)

	var response struct {
		Data dto.SelectionCountResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, int64(3), response.Data.Count)
}

func TestActivityLogHandler_SelectVisibleRejectsEmpty(t *testing.T) {
	app, mocks := setupActivityApp(t, nil)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/activity-logs/selection", dto.SelectRequest{}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Empty(t, mocks.selection.selected)
}

func TestActivityLogHandler_ToggleSelection(t *testing.T) {
	app, mocks := setupActivityApp(t, nil)
	mocks.selection.count = 1

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/activity-logs/selection/toggle", dto.ToggleSelectionRequest{ID: "entry-9"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "entry-9", mocks.selection.toggled)

	var response struct {
		Data dto.ToggleSelectionResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Data.Selected)
	require.Equal(t, int64(1), response.Data.Count)
}

func TestActivityLogHandler_ClearSelection(t *testing.T) {
	app, mocks := setupActivityApp(t, nil)

	resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/api/v1/activity-logs/selection", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, mocks.selection.cleared)
}

func TestActivityLogHandler_ArchiveRequiresPermission(t *testing.T) {
	app, mocks := setupActivityApp(t, nil)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/activity-logs/archive", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Empty(t, mocks.bulk.lastActor.ID, "the coordinator must not run without the capability")
}

func TestActivityLogHandler_ArchiveSuccess(t *testing.T) {
	app, mocks := setupActivityApp(t, []string{service.PermissionArchive})
	mocks.bulk.response = dto.BulkOperationResponse{
		Operation: "archive",
		Processed: 4,
		Message:   "4 log entries archived.",
		Reload:    true,
	}

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/activity-logs/archive", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "admin-1", mocks.bulk.lastActor.ID)

	var response struct {
		Data dto.BulkOperationResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, int64(4), response.Data.Processed)
	require.True(t, response.Data.Reload)
}

func TestActivityLogHandler_ArchiveEmptySelection(t *testing.T) {
	app, mocks := setupActivityApp(t, []string{service.PermissionArchive})
	mocks.bulk.archiveErr = service.ErrEmptySelection

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/activity-logs/archive", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestActivityLogHandler_DeleteHardFailure(t *testing.T) {
	app, mocks := setupActivityApp(t, []string{service.PermissionDelete})
	mocks.bulk.response = dto.BulkOperationResponse{Operation: "delete", Message: "Deleting failed: connection lost"}
	mocks.bulk.deleteErr = gorm.ErrInvalidDB

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/activity-logs/delete", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.False(t, response.Success)
	require.Equal(t, "Deleting failed: connection lost", response.Message)
}

func TestActivityLogHandler_ExportSendsAttachment(t *testing.T) {
	app, mocks := setupActivityApp(t, []string{service.PermissionExport})
	mocks.bulk.export = service.ExportPayload{
		Filename:    "activity-logs-selected-2026-08-30.json",
		ContentType: "application/json",
		Data:        []byte(`[{"id":"entry-1"}]`),
	}

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/activity-logs/export", dto.ExportRequest{Format: "json"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, `attachment; filename="activity-logs-selected-2026-08-30.json"`, resp.Header.Get(fiber.HeaderContentDisposition))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, mocks.bulk.export.Data, data)
}

func TestActivityLogHandler_RecordCreated(t *testing.T) {
	app, mocks := setupActivityApp(t, nil)
	mocks.activities.detail = dto.ActivityDetailResponse{
		Identity: dto.IdentitySection{ID: "new-entry", Action: "payment.completed"},
	}

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/activity-logs", dto.RecordActivityRequest{
		Category: "payment",
		Action:   "payment.completed",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.NotNil(t, mocks.activities.recorded)
	require.Equal(t, "payment.completed", mocks.activities.recorded.Action)
}
