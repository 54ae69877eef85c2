package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kioskworks/kiosk-admin-api/internal/dto"
	"github.com/kioskworks/kiosk-admin-api/internal/models"
)

// ErrStaleQuery marks a list result computed under filter criteria that were
// superseded by a newer mutation while the query was in flight. Callers must
// discard the result and re-issue the request.
var ErrStaleQuery = errors.New("query superseded by a newer filter change")

// PageSizeOptions is the fixed set of allowed page sizes.
var PageSizeOptions = []int{10, 25, 50, 100}

const defaultPageSize = 25

// FilterState is a snapshot of one session's criteria together with the
// monotonic sequence it was read under.
type FilterState struct {
	Criteria dto.FilterCriteria
	Sequence int64
}

// FilterStateManager owns the per-session query criteria. Any mutation of a
// field other than page resets page to 1; every mutation bumps the session
// sequence exactly once.
type FilterStateManager interface {
	Snapshot(ctx context.Context, sessionID string) (FilterState, error)
	SetFilters(ctx context.Context, sessionID string, req dto.SetFiltersRequest) (FilterState, error)
	UpdateFilter(ctx context.Context, sessionID, key, value string) (FilterState, error)
	SetSortOrder(ctx context.Context, sessionID, order string) (FilterState, error)
	SetDateRange(ctx context.Context, sessionID string, start, end *time.Time) (FilterState, error)
	Verify(ctx context.Context, sessionID string, sequence int64) error
}

type redisFilterStateManager struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewFilterStateManager constructs a redis-backed filter state manager.
func NewFilterStateManager(client *redis.Client, ttl time.Duration, logger zerolog.Logger) FilterStateManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &redisFilterStateManager{
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "filter_state").Logger(),
	}
}

func defaultCriteria() dto.FilterCriteria {
	return dto.FilterCriteria{
		Page:      1,
		Limit:     defaultPageSize,
		SortOrder: "desc",
	}
}

func filterKey(sessionID string) string {
	return "activity:filters:" + sessionID
}

func sequenceKey(sessionID string) string {
	return "activity:filters:" + sessionID + ":seq"
}

func (m *redisFilterStateManager) Snapshot(ctx context.Context, sessionID string) (FilterState, error) {
	criteria, err := m.load(ctx, sessionID)
	if err != nil {
		return FilterState{}, err
	}

	sequence, err := m.sequence(ctx, sessionID)
	if err != nil {
		return FilterState{}, err
	}

	return FilterState{Criteria: criteria, Sequence: sequence}, nil
}

func (m *redisFilterStateManager) SetFilters(ctx context.Context, sessionID string, req dto.SetFiltersRequest) (FilterState, error) {
	criteria := defaultCriteria()
	criteria.Category = normalizeCategory(req.Category)
	criteria.Level = normalizeLevel(req.Level)
	criteria.Status = normalizeStatus(req.Status)
	criteria.StartDate = strings.TrimSpace(req.StartDate)
	criteria.EndDate = strings.TrimSpace(req.EndDate)
	criteria.Search = strings.TrimSpace(req.Search)
	criteria.SortOrder = normalizeSortOrder(req.SortOrder)

	if req.Limit != nil {
		criteria.Limit = normalizeLimit(*req.Limit)
	}

	// An omitted page means the caller changed a filtering dimension; force
	// the result set back to the first page.
	if req.Page != nil && *req.Page >= 1 {
		criteria.Page = *req.Page
	}

	return m.store(ctx, sessionID, criteria)
}

func (m *redisFilterStateManager) UpdateFilter(ctx context.Context, sessionID, key, value string) (FilterState, error) {
	criteria, err := m.load(ctx, sessionID)
	if err != nil {
		return FilterState{}, err
	}

	value = strings.TrimSpace(value)

	switch key {
	case "category":
		criteria.Category = normalizeCategory(value)
	case "level":
		criteria.Level = normalizeLevel(value)
	case "status":
		criteria.Status = normalizeStatus(value)
	case "search":
		criteria.Search = value
	case "start_date":
		criteria.StartDate = value
	case "end_date":
		criteria.EndDate = value
	case "limit":
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return FilterState{}, fmt.Errorf("invalid limit %q: %w", value, err)
		}
		criteria.Limit = normalizeLimit(parsed)
	case "sort_order":
		criteria.SortOrder = normalizeSortOrder(value)
	case "page":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 {
			return FilterState{}, fmt.Errorf("invalid page %q", value)
		}
		criteria.Page = parsed
		return m.store(ctx, sessionID, criteria)
	default:
		return FilterState{}, fmt.Errorf("unknown filter key %q", key)
	}

	criteria.Page = 1
	return m.store(ctx, sessionID, criteria)
}

// SetSortOrder flips the occurrence-time ordering. It deliberately leaves the
// page untouched, matching the dashboard's established behavior.
func (m *redisFilterStateManager) SetSortOrder(ctx context.Context, sessionID, order string) (FilterState, error) {
	criteria, err := m.load(ctx, sessionID)
	if err != nil {
		return FilterState{}, err
	}

	criteria.SortOrder = normalizeSortOrder(order)
	return m.store(ctx, sessionID, criteria)
}

func (m *redisFilterStateManager) SetDateRange(ctx context.Context, sessionID string, start, end *time.Time) (FilterState, error) {
	criteria, err := m.load(ctx, sessionID)
	if err != nil {
		return FilterState{}, err
	}

	criteria.StartDate = ""
	if start != nil {
		criteria.StartDate = start.UTC().Format(time.RFC3339)
	}
	criteria.EndDate = ""
	if end != nil {
		criteria.EndDate = end.UTC().Format(time.RFC3339)
	}

	criteria.Page = 1
	return m.store(ctx, sessionID, criteria)
}

func (m *redisFilterStateManager) Verify(ctx context.Context, sessionID string, sequence int64) error {
	current, err := m.sequence(ctx, sessionID)
	if err != nil {
		return err
	}
	if current != sequence {
		return ErrStaleQuery
	}
	return nil
}

func (m *redisFilterStateManager) load(ctx context.Context, sessionID string) (dto.FilterCriteria, error) {
	raw, err := m.redis.Get(ctx, filterKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return defaultCriteria(), nil
	}
	if err != nil {
		return dto.FilterCriteria{}, fmt.Errorf("load filter state: %w", err)
	}

	var criteria dto.FilterCriteria
	if err := json.Unmarshal([]byte(raw), &criteria); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("corrupt filter state, resetting")
		return defaultCriteria(), nil
	}

	if criteria.Page < 1 {
		criteria.Page = 1
	}
	criteria.Limit = normalizeLimit(criteria.Limit)
	criteria.SortOrder = normalizeSortOrder(criteria.SortOrder)

	return criteria, nil
}

func (m *redisFilterStateManager) store(ctx context.Context, sessionID string, criteria dto.FilterCriteria) (FilterState, error) {
	payload, err := json.Marshal(criteria)
	if err != nil {
		return FilterState{}, fmt.Errorf("encode filter state: %w", err)
	}

	if err := m.redis.Set(ctx, filterKey(sessionID), payload, m.ttl).Err(); err != nil {
		return FilterState{}, fmt.Errorf("store filter state: %w", err)
	}

	sequence, err := m.redis.Incr(ctx, sequenceKey(sessionID)).Result()
	if err != nil {
		return FilterState{}, fmt.Errorf("bump filter sequence: %w", err)
	}
	if err := m.redis.Expire(ctx, sequenceKey(sessionID), m.ttl).Err(); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to refresh sequence ttl")
	}

	return FilterState{Criteria: criteria, Sequence: sequence}, nil
}

func (m *redisFilterStateManager) sequence(ctx context.Context, sessionID string) (int64, error) {
	raw, err := m.redis.Get(ctx, sequenceKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load filter sequence: %w", err)
	}

	sequence, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse filter sequence: %w", err)
	}
	return sequence, nil
}

func normalizeCategory(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return string(models.ParseCategory(raw))
}

func normalizeLevel(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return string(models.ParseLevel(raw))
}

func normalizeStatus(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return string(models.ParseStatus(raw))
}

func normalizeSortOrder(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), "asc") {
		return "asc"
	}
	return "desc"
}

func normalizeLimit(limit int) int {
	for _, option := range PageSizeOptions {
		if limit == option {
			return limit
		}
	}
	return defaultPageSize
}
