package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/kioskworks/kiosk-admin-api/internal/dto"
	"github.com/kioskworks/kiosk-admin-api/internal/middleware"
	"github.com/kioskworks/kiosk-admin-api/internal/service"
	"github.com/kioskworks/kiosk-admin-api/internal/utils"
)

// ActivityLogHandler exposes the activity log review and bulk remediation endpoints.
type ActivityLogHandler struct {
	activities service.ActivityService
	filters    service.FilterStateManager
	selection  service.SelectionTracker
	bulk       service.BulkService
	logger     zerolog.Logger
}

// NewActivityLogHandler constructs the handler.
func NewActivityLogHandler(activities service.ActivityService, filters service.FilterStateManager, selection service.SelectionTracker, bulk service.BulkService, logger zerolog.Logger) *ActivityLogHandler {
	return &ActivityLogHandler{
		activities: activities,
		filters:    filters,
		selection:  selection,
		bulk:       bulk,
		logger:     logger.With().Str("component", "activity_log_handler").Logger(),
	}
}

// Register attaches the activity log routes to the router group. Static paths
// are registered before the ":id" detail route so they keep precedence.
func (h *ActivityLogHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.record)

	router.Put("/filters", h.setFilters)
	router.Patch("/filters", h.updateFilter)
	router.Put("/sort", h.setSortOrder)
	router.Put("/date-range", h.setDateRange)

	router.Get("/selection/count", h.selectionCount)
	router.Post("/selection", h.selectVisible)
	router.Post("/selection/toggle", h.toggleSelection)
	router.Delete("/selection", h.clearSelection)

	bulkLimiter := middleware.RateLimit("activity_bulk", 20, time.Minute)
	router.Post("/export", bulkLimiter, middleware.RequirePermission(service.PermissionExport), h.export)
	router.Post("/archive", bulkLimiter, middleware.RequirePermission(service.PermissionArchive), h.archive)
	router.Post("/delete", bulkLimiter, middleware.RequirePermission(service.PermissionDelete), h.deleteSelected)

	router.Get("/:id", h.detail)
}

func (h *ActivityLogHandler) list(c *fiber.Ctx) error {
	response, err := h.activities.List(c.Context(), sessionIDFromContext(c))
	if err != nil {
		if errors.Is(err, service.ErrStaleQuery) {
			return utils.SendError(c, fiber.StatusConflict, utils.Message(utils.MsgLoadStale))
		}
		h.logger.Error().Err(err).Msg("failed to list activity logs")
		return utils.SendError(c, fiber.StatusInternalServerError, utils.Message(utils.MsgLoadFailed))
	}

	return utils.SendSuccess(c, "activity logs", response)
}

func (h *ActivityLogHandler) detail(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "entry id required")
	}

	detail, err := h.activities.Detail(c.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, utils.Message(utils.MsgEntryNotFound))
		}
		h.logger.Error().Err(err).Str("entry_id", id).Msg("failed to load activity log detail")
		return utils.SendError(c, fiber.StatusInternalServerError, utils.Message(utils.MsgLoadFailed))
	}

	return utils.SendSuccess(c, "activity log detail", detail)
}

func (h *ActivityLogHandler) record(c *fiber.Ctx) error {
	var payload dto.RecordActivityRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	detail, err := h.activities.Record(c.Context(), actorFromContext(c), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, utils.Message(utils.MsgRecordInvalid))
		}
		h.logger.Error().Err(err).Msg("failed to record activity log")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to record activity log")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "activity log recorded", detail)
}

func (h *ActivityLogHandler) setFilters(c *fiber.Ctx) error {
	var payload dto.SetFiltersRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	state, err := h.filters.SetFilters(c.Context(), sessionIDFromContext(c), payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to set filters")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to set filters")
	}

	return utils.SendSuccess(c, "filters updated", state.Criteria)
}

func (h *ActivityLogHandler) updateFilter(c *fiber.Ctx) error {
	var payload dto.UpdateFilterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if payload.Key == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "filter key required")
	}

	state, err := h.filters.UpdateFilter(c.Context(), sessionIDFromContext(c), payload.Key, payload.Value)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	return utils.SendSuccess(c, "filter updated", state.Criteria)
}

func (h *ActivityLogHandler) setSortOrder(c *fiber.Ctx) error {
	var payload dto.SortOrderRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	state, err := h.filters.SetSortOrder(c.Context(), sessionIDFromContext(c), payload.Order)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to set sort order")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to set sort order")
	}

	return utils.SendSuccess(c, "sort order updated", state.Criteria)
}

func (h *ActivityLogHandler) setDateRange(c *fiber.Ctx) error {
	var payload dto.DateRangeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	state, err := h.filters.SetDateRange(c.Context(), sessionIDFromContext(c), payload.Start, payload.End)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to set date range")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to set date range")
	}

	return utils.SendSuccess(c, "date range updated", state.Criteria)
}

func (h *ActivityLogHandler) selectVisible(c *fiber.Ctx) error {
	var payload dto.SelectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if len(payload.IDs) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, utils.Message(utils.MsgSelectionEmpty))
	}

	sessionID := sessionIDFromContext(c)
	if err := h.selection.SelectAll(c.Context(), sessionID, payload.IDs); err != nil {
		h.logger.Error().Err(err).Msg("failed to select entries")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to select entries")
	}

	count, err := h.selection.Count(c.Context(), sessionID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count selection")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to count selection")
	}

	return utils.SendSuccess(c, "entries selected", dto.SelectionCountResponse{Count: count})
}

func (h *ActivityLogHandler) toggleSelection(c *fiber.Ctx) error {
	var payload dto.ToggleSelectionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if payload.ID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "entry id required")
	}

	sessionID := sessionIDFromContext(c)
	selected, err := h.selection.Toggle(c.Context(), sessionID, payload.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to toggle selection")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to toggle selection")
	}

	count, err := h.selection.Count(c.Context(), sessionID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count selection")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to count selection")
	}

	return utils.SendSuccess(c, "selection toggled", dto.ToggleSelectionResponse{ID: payload.ID, Selected: selected, Count: count})
}

func (h *ActivityLogHandler) clearSelection(c *fiber.Ctx) error {
	if err := h.selection.Clear(c.Context(), sessionIDFromContext(c)); err != nil {
		h.logger.Error().Err(err).Msg("failed to clear selection")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to clear selection")
	}

	return utils.SendSuccess(c, "selection cleared", dto.SelectionCountResponse{Count: 0})
}

func (h *ActivityLogHandler) selectionCount(c *fiber.Ctx) error {
	count, err := h.selection.Count(c.Context(), sessionIDFromContext(c))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count selection")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to count selection")
	}

	return utils.SendSuccess(c, "selection size", dto.SelectionCountResponse{Count: count})
}

func (h *ActivityLogHandler) export(c *fiber.Ctx) error {
	var payload dto.ExportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	result, err := h.bulk.Export(c.Context(), sessionIDFromContext(c), actorFromContext(c), payload.Format)
	if err != nil {
		if errors.Is(err, service.ErrPermissionDenied) {
			return utils.SendError(c, fiber.StatusForbidden, utils.Message(utils.MsgPermissionDenied))
		}
		h.logger.Error().Err(err).Msg("export failed")
		return utils.SendError(c, fiber.StatusInternalServerError, utils.Message(utils.MsgExportFailed))
	}

	c.Set(fiber.HeaderContentType, result.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+result.Filename+`"`)
	return c.Send(result.Data)
}

func (h *ActivityLogHandler) archive(c *fiber.Ctx) error {
	response, err := h.bulk.Archive(c.Context(), sessionIDFromContext(c), actorFromContext(c))
	return h.sendBulkResult(c, response, err, "entries archived")
}

func (h *ActivityLogHandler) deleteSelected(c *fiber.Ctx) error {
	response, err := h.bulk.Delete(c.Context(), sessionIDFromContext(c), actorFromContext(c))
	return h.sendBulkResult(c, response, err, "entries deleted")
}

func (h *ActivityLogHandler) sendBulkResult(c *fiber.Ctx, response dto.BulkOperationResponse, err error, successMessage string) error {
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			return utils.SendError(c, fiber.StatusForbidden, utils.Message(utils.MsgPermissionDenied))
		case errors.Is(err, service.ErrEmptySelection):
			return utils.SendError(c, fiber.StatusBadRequest, utils.Message(utils.MsgSelectionEmpty))
		}

		h.logger.Error().Err(err).Str("operation", response.Operation).Msg("bulk operation failed")
		message := response.Message
		if message == "" {
			message = utils.Message(utils.MsgLoadFailed)
		}
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}

	return utils.SendSuccess(c, successMessage, response)
}
