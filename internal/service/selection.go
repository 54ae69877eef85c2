package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SelectionTracker accumulates chosen entry ids for one admin session.
// Membership is independent of whichever page is currently loaded: selecting
// page 1's visible ids and then page 2's yields the union. The set is emptied
// only by Clear or after a successful bulk mutation.
type SelectionTracker interface {
	SelectAll(ctx context.Context, sessionID string, ids []string) error
	Toggle(ctx context.Context, sessionID, id string) (bool, error)
	Clear(ctx context.Context, sessionID string) error
	Count(ctx context.Context, sessionID string) (int64, error)
	Members(ctx context.Context, sessionID string) ([]string, error)
}

type redisSelectionTracker struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSelectionTracker constructs a redis-backed selection tracker.
func NewSelectionTracker(client *redis.Client, ttl time.Duration, logger zerolog.Logger) SelectionTracker {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &redisSelectionTracker{
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "selection_tracker").Logger(),
	}
}

func selectionKey(sessionID string) string {
	return "activity:selection:" + sessionID
}

// SelectAll unions the given ids into the session's selection. Re-selecting
// already-selected ids is a no-op. Callers pass only the ids visible on the
// current page, so growth is bounded by page size per call.
func (t *redisSelectionTracker) SelectAll(ctx context.Context, sessionID string, ids []string) error {
	members := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed != "" {
			members = append(members, trimmed)
		}
	}
	if len(members) == 0 {
		return nil
	}

	key := selectionKey(sessionID)
	if err := t.redis.SAdd(ctx, key, members...).Err(); err != nil {
		return fmt.Errorf("select entries: %w", err)
	}
	if err := t.redis.Expire(ctx, key, t.ttl).Err(); err != nil {
		t.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to refresh selection ttl")
	}
	return nil
}

// Toggle adds the id if absent and removes it if present, returning the
// membership state after the flip.
func (t *redisSelectionTracker) Toggle(ctx context.Context, sessionID, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, fmt.Errorf("entry id must not be empty")
	}

	key := selectionKey(sessionID)
	selected, err := t.redis.SIsMember(ctx, key, id).Result()
	if err != nil {
		return false, fmt.Errorf("check selection membership: %w", err)
	}

	if selected {
		if err := t.redis.SRem(ctx, key, id).Err(); err != nil {
			return false, fmt.Errorf("deselect entry: %w", err)
		}
		return false, nil
	}

	if err := t.redis.SAdd(ctx, key, id).Err(); err != nil {
		return false, fmt.Errorf("select entry: %w", err)
	}
	if err := t.redis.Expire(ctx, key, t.ttl).Err(); err != nil {
		t.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to refresh selection ttl")
	}
	return true, nil
}

func (t *redisSelectionTracker) Clear(ctx context.Context, sessionID string) error {
	if err := t.redis.Del(ctx, selectionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	return nil
}

// Count reports selection size without materializing the members.
func (t *redisSelectionTracker) Count(ctx context.Context, sessionID string) (int64, error) {
	count, err := t.redis.SCard(ctx, selectionKey(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count selection: %w", err)
	}
	return count, nil
}

func (t *redisSelectionTracker) Members(ctx context.Context, sessionID string) ([]string, error) {
	members, err := t.redis.SMembers(ctx, selectionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}
	return members, nil
}
