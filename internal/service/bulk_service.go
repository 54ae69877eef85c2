package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kioskworks/kiosk-admin-api/internal/dto"
	"github.com/kioskworks/kiosk-admin-api/internal/models"
	"github.com/kioskworks/kiosk-admin-api/internal/observability"
	"github.com/kioskworks/kiosk-admin-api/internal/repository"
	"github.com/kioskworks/kiosk-admin-api/internal/utils"
)

// Capabilities gating the bulk operations.
const (
	PermissionExport  = "activity_logs:export"
	PermissionArchive = "activity_logs:archive"
	PermissionDelete  = "activity_logs:delete"
)

// Validation sentinels. Both short-circuit locally: no repository call is
// issued and the selection is left untouched.
var (
	ErrPermissionDenied = errors.New("insufficient permission")
	ErrEmptySelection   = errors.New("selection is empty")
)

// PermissionChecker decides whether an actor holds a capability. Injected so
// the coordinator never reaches into the auth layer directly.
type PermissionChecker func(actor Actor, permission string) bool

// ActorPermissions checks the permission list carried in the actor's claims.
func ActorPermissions(actor Actor, permission string) bool {
	return actor.HasPermission(permission)
}

// ExportPayload is a client-saveable export blob.
type ExportPayload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// BulkService coordinates export, archive, and delete against either the
// session's selection or its active filter scope. A non-empty selection is
// always the stronger scope: export targets exactly the selected ids and
// ignores the filters entirely.
type BulkService interface {
	Export(ctx context.Context, sessionID string, actor Actor, format string) (ExportPayload, error)
	Archive(ctx context.Context, sessionID string, actor Actor) (dto.BulkOperationResponse, error)
	Delete(ctx context.Context, sessionID string, actor Actor) (dto.BulkOperationResponse, error)
}

type bulkService struct {
	repo          repository.ActivityLogRepository
	selection     SelectionTracker
	filters       FilterStateManager
	permits       PermissionChecker
	events        *nats.Conn
	exportMaxRows int
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewBulkService constructs the bulk operation coordinator. The NATS
// connection may be nil; event publishing is then skipped.
func NewBulkService(repo repository.ActivityLogRepository, selection SelectionTracker, filters FilterStateManager, permits PermissionChecker, events *nats.Conn, exportMaxRows int, logger zerolog.Logger) BulkService {
	if permits == nil {
		permits = ActorPermissions
	}
	if exportMaxRows <= 0 {
		exportMaxRows = 10000
	}

	return &bulkService{
		repo:          repo,
		selection:     selection,
		filters:       filters,
		permits:       permits,
		events:        events,
		exportMaxRows: exportMaxRows,
		logger:        logger.With().Str("component", "bulk_service").Logger(),
		tracer:        otel.Tracer("github.com/kioskworks/kiosk-admin-api/internal/service/bulk"),
		now:           time.Now,
	}
}

func (s *bulkService) Export(ctx context.Context, sessionID string, actor Actor, format string) (ExportPayload, error) {
	ctx, span := s.tracer.Start(ctx, "bulk.export")
	defer span.End()

	if !s.permits(actor, PermissionExport) {
		observability.BulkOperations().WithLabelValues("export", "denied").Inc()
		return ExportPayload{}, ErrPermissionDenied
	}

	if format != "csv" {
		format = "json"
	}

	ids, err := s.selection.Members(ctx, sessionID)
	if err != nil {
		return ExportPayload{}, fmt.Errorf("load selection: %w", err)
	}

	var (
		entries  []models.ActivityLog
		filename string
	)

	date := s.now().UTC().Format("2006-01-02")
	if len(ids) > 0 {
		// Selection scope: the active filters are deliberately ignored.
		entries, err = s.repo.FindByIDs(ctx, ids)
		if err != nil {
			observability.BulkOperations().WithLabelValues("export", "failed").Inc()
			return ExportPayload{}, fmt.Errorf("load selected entries: %w", err)
		}
		filename = fmt.Sprintf("activity-logs-selected-%s.%s", date, format)
		span.SetAttributes(attribute.String("export.scope", "selection"), attribute.Int("export.ids", len(ids)))
	} else {
		state, err := s.filters.Snapshot(ctx, sessionID)
		if err != nil {
			return ExportPayload{}, fmt.Errorf("snapshot filters: %w", err)
		}
		filter, err := buildRepositoryFilter(state.Criteria)
		if err != nil {
			return ExportPayload{}, err
		}
		entries, err = s.repo.ListForExport(ctx, filter, s.exportMaxRows)
		if err != nil {
			observability.BulkOperations().WithLabelValues("export", "failed").Inc()
			return ExportPayload{}, fmt.Errorf("load filtered entries: %w", err)
		}
		// The filter-scoped download is always JSON.
		format = "json"
		filename = fmt.Sprintf("activity-logs-%s.json", date)
		span.SetAttributes(attribute.String("export.scope", "filter"))
	}

	data, err := encodeExport(entries, format)
	if err != nil {
		observability.BulkOperations().WithLabelValues("export", "failed").Inc()
		return ExportPayload{}, fmt.Errorf("encode export: %w", err)
	}

	observability.BulkOperations().WithLabelValues("export", "success").Inc()

	return ExportPayload{
		Filename:    filename,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

func (s *bulkService) Archive(ctx context.Context, sessionID string, actor Actor) (dto.BulkOperationResponse, error) {
	return s.mutate(ctx, sessionID, actor, bulkOperation{
		name:       "archive",
		permission: PermissionArchive,
		apply:      s.repo.ArchiveByIDs,
		successKey: utils.MsgArchiveSuccess,
		partialKey: utils.MsgArchivePartial,
		failedKey:  utils.MsgArchiveFailed,
	})
}

func (s *bulkService) Delete(ctx context.Context, sessionID string, actor Actor) (dto.BulkOperationResponse, error) {
	return s.mutate(ctx, sessionID, actor, bulkOperation{
		name:       "delete",
		permission: PermissionDelete,
		apply:      s.repo.DeleteByIDs,
		successKey: utils.MsgDeleteSuccess,
		partialKey: utils.MsgDeletePartial,
		failedKey:  utils.MsgDeleteFailed,
	})
}

type bulkOperation struct {
	name       string
	permission string
	apply      func(ctx context.Context, ids []string) (int64, error)
	successKey string
	partialKey string
	failedKey  string
}

func (s *bulkService) mutate(ctx context.Context, sessionID string, actor Actor, op bulkOperation) (dto.BulkOperationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "bulk."+op.name)
	defer span.End()

	if !s.permits(actor, op.permission) {
		observability.BulkOperations().WithLabelValues(op.name, "denied").Inc()
		return dto.BulkOperationResponse{}, ErrPermissionDenied
	}

	ids, err := s.selection.Members(ctx, sessionID)
	if err != nil {
		return dto.BulkOperationResponse{}, fmt.Errorf("load selection: %w", err)
	}
	if len(ids) == 0 {
		observability.BulkOperations().WithLabelValues(op.name, "empty").Inc()
		return dto.BulkOperationResponse{}, ErrEmptySelection
	}

	span.SetAttributes(attribute.Int("bulk.targets", len(ids)))

	processed, err := op.apply(ctx, ids)
	if err != nil {
		// Hard failure: the selection survives so the user can retry.
		s.logger.Error().Err(err).Str("operation", op.name).Int("targets", len(ids)).Msg("bulk operation failed")
		observability.BulkOperations().WithLabelValues(op.name, "failed").Inc()
		return dto.BulkOperationResponse{
			Operation: op.name,
			Message:   utils.Message(op.failedKey, err.Error()),
		}, fmt.Errorf("%s logs: %w", op.name, err)
	}

	failed := int64(len(ids)) - processed
	if failed < 0 {
		failed = 0
	}

	message := utils.Message(op.successKey, processed)
	outcome := "success"
	if failed > 0 {
		message = utils.Message(op.partialKey, processed, failed)
		outcome = "partial"
	}
	observability.BulkOperations().WithLabelValues(op.name, outcome).Inc()

	// Success with or without caveat: the selection is cleared and the
	// caller reloads so processed rows disappear from the timeline.
	if err := s.selection.Clear(ctx, sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to clear selection after bulk operation")
	}

	s.publishEvent(op.name, actor, processed, failed)

	return dto.BulkOperationResponse{
		Operation: op.name,
		Processed: processed,
		Failed:    failed,
		Message:   message,
		Reload:    true,
	}, nil
}

func (s *bulkService) publishEvent(operation string, actor Actor, processed, failed int64) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"operation": operation,
		"processed": processed,
		"failed":    failed,
		"actor_id":  actor.ID,
		"at":        s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	if err := s.events.Publish("activity.bulk."+operation, payload); err != nil {
		s.logger.Warn().Err(err).Str("operation", operation).Msg("failed to publish bulk event")
	}
}

func encodeExport(entries []models.ActivityLog, format string) ([]byte, error) {
	if format == "csv" {
		return encodeCSV(entries)
	}

	if entries == nil {
		entries = []models.ActivityLog{}
	}
	return json.MarshalIndent(entries, "", "  ")
}

func encodeCSV(entries []models.ActivityLog) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"id", "category", "action", "level", "status", "occurred_at", "description", "archived"}
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	for _, entry := range entries {
		row := []string{
			entry.ID,
			string(entry.Category),
			entry.Action,
			string(entry.Level),
			string(entry.Status),
			entry.OccurredAt.UTC().Format(time.RFC3339),
			entry.Description,
			strconv.FormatBool(entry.Archived),
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
