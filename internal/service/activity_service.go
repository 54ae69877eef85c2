package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"

	"github.com/kioskworks/kiosk-admin-api/internal/dto"
	"github.com/kioskworks/kiosk-admin-api/internal/models"
	"github.com/kioskworks/kiosk-admin-api/internal/repository"
	"github.com/kioskworks/kiosk-admin-api/internal/utils"
)

// Actor is the authenticated admin performing a request.
type Actor struct {
	ID          string
	SessionID   string
	Permissions []string
}

// HasPermission reports whether the actor holds the named capability.
func (a Actor) HasPermission(permission string) bool {
	for _, granted := range a.Permissions {
		if granted == permission {
			return true
		}
	}
	return false
}

// metadataSchema bounds the opaque metadata payload accepted on record calls.
// The values stay opaque; only shape abuse is rejected.
const metadataSchema = `{
	"type": "object",
	"maxProperties": 64,
	"propertyNames": {"maxLength": 128}
}`

// ActivityService drives the review timeline: querying under the session's
// criteria, resolving taxonomy and relative time per row, and serving the
// grouped detail view.
type ActivityService interface {
	List(ctx context.Context, sessionID string) (dto.ActivityListResponse, error)
	Detail(ctx context.Context, id string) (dto.ActivityDetailResponse, error)
	Record(ctx context.Context, actor Actor, payload dto.RecordActivityRequest) (dto.ActivityDetailResponse, error)
}

type activityService struct {
	repo      repository.ActivityLogRepository
	filters   FilterStateManager
	resolver  *TaxonomyResolver
	validator *validator.Validate
	schema    *jsonschema.Schema
	logger    zerolog.Logger
	now       func() time.Time
}

// NewActivityService constructs the activity service.
func NewActivityService(repo repository.ActivityLogRepository, filters FilterStateManager, resolver *TaxonomyResolver, validate *validator.Validate, logger zerolog.Logger) ActivityService {
	schema := jsonschema.MustCompileString("activity_metadata.json", metadataSchema)

	return &activityService{
		repo:      repo,
		filters:   filters,
		resolver:  resolver,
		validator: validate,
		schema:    schema,
		logger:    logger.With().Str("component", "activity_service").Logger(),
		now:       time.Now,
	}
}

// List queries under the session's criteria snapshot and formats the result.
// If the criteria changed while the query was in flight the result is
// discarded with ErrStaleQuery instead of being delivered out of order.
func (s *activityService) List(ctx context.Context, sessionID string) (dto.ActivityListResponse, error) {
	state, err := s.filters.Snapshot(ctx, sessionID)
	if err != nil {
		return dto.ActivityListResponse{}, fmt.Errorf("snapshot filters: %w", err)
	}

	filter, err := buildRepositoryFilter(state.Criteria)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to query activity logs")
		return dto.ActivityListResponse{}, err
	}

	if err := s.filters.Verify(ctx, sessionID, state.Sequence); err != nil {
		return dto.ActivityListResponse{}, err
	}

	now := s.now()
	items := make([]dto.FormattedActivity, 0, len(entries))
	for _, entry := range entries {
		items = append(items, s.resolver.Format(now, entry))
	}

	pagination := dto.PaginationMeta{
		Page:       state.Criteria.Page,
		Limit:      state.Criteria.Limit,
		TotalItems: total,
		TotalPages: 1,
	}
	if state.Criteria.Limit > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(state.Criteria.Limit)))
	}

	return dto.ActivityListResponse{Items: items, Pagination: pagination}, nil
}

func (s *activityService) Detail(ctx context.Context, id string) (dto.ActivityDetailResponse, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.ActivityDetailResponse{}, err
	}

	return s.buildDetail(entry), nil
}

func (s *activityService) Record(ctx context.Context, actor Actor, payload dto.RecordActivityRequest) (dto.ActivityDetailResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityDetailResponse{}, err
	}

	if payload.Metadata != nil {
		if err := s.schema.Validate(map[string]interface{}(payload.Metadata)); err != nil {
			return dto.ActivityDetailResponse{}, fmt.Errorf("invalid metadata: %w", err)
		}
	}

	occurredAt := s.now().UTC()
	if payload.OccurredAt != nil {
		occurredAt = payload.OccurredAt.UTC()
	}

	entry := models.ActivityLog{
		ID:           uuid.NewString(),
		Category:     models.ParseCategory(payload.Category),
		Action:       strings.ToLower(strings.TrimSpace(payload.Action)),
		SubCategory:  strings.TrimSpace(payload.SubCategory),
		Level:        models.ParseLevel(payload.Level),
		Status:       models.ParseStatus(payload.Status),
		Description:  strings.TrimSpace(payload.Description),
		OccurredAt:   occurredAt,
		KioskID:      payload.KioskID,
		ContentPCID:  payload.ContentPCID,
		UserID:       payload.UserID,
		ResourceType: payload.ResourceType,
		ResourceID:   payload.ResourceID,
		Metadata:     sanitizeMetadata(payload.Metadata),
	}

	if entry.Action == "" {
		return dto.ActivityDetailResponse{}, fmt.Errorf("action is required")
	}
	if payload.Level == "" {
		entry.Level = models.LevelInfo
	}
	if payload.Status == "" {
		entry.Status = models.StatusSuccess
	}
	if actor.ID != "" {
		adminID := actor.ID
		entry.AdminID = &adminID
	}

	if err := s.repo.Create(ctx, &entry); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist activity log")
		return dto.ActivityDetailResponse{}, err
	}

	return s.buildDetail(entry), nil
}

func (s *activityService) buildDetail(entry models.ActivityLog) dto.ActivityDetailResponse {
	detail := dto.ActivityDetailResponse{
		Identity: dto.IdentitySection{
			ID:          entry.ID,
			Category:    string(entry.Category),
			Action:      entry.Action,
			SubCategory: entry.SubCategory,
			Level:       string(entry.Level),
			Status:      string(entry.Status),
			Title:       ResolveTitle(entry.Action),
			Description: s.resolver.ResolveDescription(entry),
		},
		Timestamps: dto.TimestampsSection{
			OccurredAt:   entry.OccurredAt,
			CreatedAt:    entry.CreatedAt,
			RelativeTime: utils.FormatRelativeTime(s.now(), entry.OccurredAt),
		},
	}

	if actor := buildActorSection(entry); actor != nil {
		detail.Actor = actor
	}
	if device := buildDeviceSection(entry); device != nil {
		detail.Device = device
	}
	if entry.ResourceType != nil || entry.ResourceID != nil {
		detail.Resource = &dto.ResourceSection{
			Type:     deref(entry.ResourceType),
			ID:       deref(entry.ResourceID),
			Metadata: entry.ResourceMetadata,
		}
	}
	if len(entry.BeforeState) > 0 || len(entry.AfterState) > 0 {
		detail.StateDiff = &dto.StateDiffSection{
			Before: entry.BeforeState,
			After:  entry.AfterState,
		}
	}
	if entry.DurationMS != nil || entry.RequestSize != nil || entry.ResponseSize != nil {
		detail.Metrics = &dto.MetricsSection{
			DurationMS:   entry.DurationMS,
			RequestSize:  entry.RequestSize,
			ResponseSize: entry.ResponseSize,
		}
	}
	if entry.ErrorCode != nil || entry.ErrorMessage != nil || entry.ErrorStack != nil || len(entry.ErrorContext) > 0 {
		detail.Error = &dto.ErrorSection{
			Code:    deref(entry.ErrorCode),
			Message: deref(entry.ErrorMessage),
			Stack:   deref(entry.ErrorStack),
			Context: entry.ErrorContext,
		}
	}
	if len(entry.Metadata) > 0 {
		detail.Metadata = entry.Metadata
	}

	return detail
}

func buildActorSection(entry models.ActivityLog) *dto.ActorSection {
	if entry.UserID == nil && entry.AdminID == nil && entry.SessionID == nil {
		return nil
	}
	return &dto.ActorSection{
		UserID:    deref(entry.UserID),
		AdminID:   deref(entry.AdminID),
		SessionID: deref(entry.SessionID),
	}
}

func buildDeviceSection(entry models.ActivityLog) *dto.DeviceSection {
	if entry.KioskID == nil && entry.ContentPCID == nil && entry.IPAddress == nil &&
		entry.UserAgent == nil && entry.DeviceID == nil && entry.DeviceType == nil && entry.Location == nil {
		return nil
	}
	return &dto.DeviceSection{
		KioskID:     deref(entry.KioskID),
		ContentPCID: deref(entry.ContentPCID),
		IPAddress:   deref(entry.IPAddress),
		UserAgent:   deref(entry.UserAgent),
		DeviceID:    deref(entry.DeviceID),
		DeviceType:  deref(entry.DeviceType),
		Location:    deref(entry.Location),
	}
}

func buildRepositoryFilter(criteria dto.FilterCriteria) (repository.ActivityLogFilter, error) {
	filter := repository.ActivityLogFilter{
		Category:      criteria.Category,
		Level:         criteria.Level,
		Status:        criteria.Status,
		Search:        criteria.Search,
		Page:          criteria.Page,
		Limit:         criteria.Limit,
		SortAscending: criteria.SortOrder == "asc",
	}

	if criteria.StartDate != "" {
		start, err := time.Parse(time.RFC3339, criteria.StartDate)
		if err != nil {
			return repository.ActivityLogFilter{}, fmt.Errorf("invalid start date %q: %w", criteria.StartDate, err)
		}
		filter.StartDate = &start
	}

	if criteria.EndDate != "" {
		end, err := time.Parse(time.RFC3339, criteria.EndDate)
		if err != nil {
			return repository.ActivityLogFilter{}, fmt.Errorf("invalid end date %q: %w", criteria.EndDate, err)
		}
		filter.EndDate = &end
	}

	return filter, nil
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return nil
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") || strings.Contains(lower, "password") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
