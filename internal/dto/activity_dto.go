package dto

import "time"

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// FilterCriteria is the normalized query state for one admin session.
// StartDate/EndDate carry RFC 3339 strings so the criteria round-trip
// unchanged through the session store.
type FilterCriteria struct {
	Category  string `json:"category,omitempty"`
	Level     string `json:"level,omitempty"`
	Status    string `json:"status,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Search    string `json:"search,omitempty"`
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	SortOrder string `json:"sort_order"`
}

// SetFiltersRequest replaces the stored criteria wholesale. Page is a pointer
// so an omitted page can be told apart from an explicit one: omitted pages are
// forced back to 1.
type SetFiltersRequest struct {
	Category  string `json:"category" validate:"omitempty,max=32"`
	Level     string `json:"level" validate:"omitempty,max=16"`
	Status    string `json:"status" validate:"omitempty,max=16"`
	StartDate string `json:"start_date" validate:"omitempty,max=64"`
	EndDate   string `json:"end_date" validate:"omitempty,max=64"`
	Search    string `json:"search" validate:"omitempty,max=256"`
	Page      *int   `json:"page" validate:"omitempty,min=1"`
	Limit     *int   `json:"limit"`
	SortOrder string `json:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// UpdateFilterRequest changes a single criteria field.
type UpdateFilterRequest struct {
	Key   string `json:"key" validate:"required,oneof=category level status search start_date end_date page limit sort_order"`
	Value string `json:"value" validate:"max=256"`
}

// SortOrderRequest switches the occurrence-time sort direction.
type SortOrderRequest struct {
	Order string `json:"order" validate:"required,oneof=asc desc"`
}

// DateRangeRequest sets or clears the occurrence-time bounds. A nil bound
// clears that side of the range.
type DateRangeRequest struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// FormattedActivity is the presentation row derived from one log entry. It is
// ephemeral and recomputed on every list call.
type FormattedActivity struct {
	EntryID      string `json:"entry_id"`
	Icon         string `json:"icon"`
	Color        string `json:"color"`
	BorderColor  string `json:"border_color"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	RelativeTime string `json:"relative_time"`
}

// ActivityListResponse wraps a formatted timeline page.
type ActivityListResponse struct {
	Items      []FormattedActivity `json:"items"`
	Pagination PaginationMeta      `json:"pagination"`
}

// SelectRequest unions the visible page's entry ids into the selection.
type SelectRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// ToggleSelectionRequest flips membership of a single entry id.
type ToggleSelectionRequest struct {
	ID string `json:"id" validate:"required"`
}

// SelectionCountResponse reports selection size for badge rendering.
type SelectionCountResponse struct {
	Count int64 `json:"count"`
}

// ToggleSelectionResponse reports the membership state after a toggle.
type ToggleSelectionResponse struct {
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
	Count    int64  `json:"count"`
}

// ExportRequest picks the export payload format. The filter-scoped fallback
// always produces JSON regardless of the requested format.
type ExportRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=json csv"`
}

// BulkOperationResponse reports the outcome of an archive or delete call.
// Reload tells the caller the backing list changed and must be re-queried.
type BulkOperationResponse struct {
	Operation string `json:"operation"`
	Processed int64  `json:"processed"`
	Failed    int64  `json:"failed"`
	Message   string `json:"message"`
	Reload    bool   `json:"reload"`
}

// RecordActivityRequest ingests a single log entry.
type RecordActivityRequest struct {
	Category     string                 `json:"category" validate:"required,max=32"`
	Action       string                 `json:"action" validate:"required,max=128"`
	SubCategory  string                 `json:"sub_category" validate:"omitempty,max=64"`
	Level        string                 `json:"level" validate:"omitempty,max=16"`
	Status       string                 `json:"status" validate:"omitempty,max=16"`
	Description  string                 `json:"description" validate:"omitempty,max=2000"`
	OccurredAt   *time.Time             `json:"occurred_at"`
	KioskID      *string                `json:"kiosk_id"`
	ContentPCID  *string                `json:"content_pc_id"`
	UserID       *string                `json:"user_id"`
	ResourceType *string                `json:"resource_type"`
	ResourceID   *string                `json:"resource_id"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// ActivityDetailResponse groups every populated optional field of one entry.
// Absent sections are omitted entirely rather than rendered empty.
type ActivityDetailResponse struct {
	Identity   IdentitySection        `json:"identity"`
	Timestamps TimestampsSection      `json:"timestamps"`
	Actor      *ActorSection          `json:"actor,omitempty"`
	Device     *DeviceSection         `json:"device,omitempty"`
	Resource   *ResourceSection       `json:"resource,omitempty"`
	StateDiff  *StateDiffSection      `json:"state_diff,omitempty"`
	Metrics    *MetricsSection        `json:"metrics,omitempty"`
	Error      *ErrorSection          `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// IdentitySection carries the always-present identity of an entry plus its
// resolved presentation strings.
type IdentitySection struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Action      string `json:"action"`
	SubCategory string `json:"sub_category,omitempty"`
	Level       string `json:"level"`
	Status      string `json:"status"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TimestampsSection carries occurrence and ingestion times.
type TimestampsSection struct {
	OccurredAt   time.Time `json:"occurred_at"`
	CreatedAt    time.Time `json:"created_at"`
	RelativeTime string    `json:"relative_time"`
}

// ActorSection identifies who triggered the entry.
type ActorSection struct {
	UserID    string `json:"user_id,omitempty"`
	AdminID   string `json:"admin_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// DeviceSection identifies the originating device.
type DeviceSection struct {
	KioskID     string `json:"kiosk_id,omitempty"`
	ContentPCID string `json:"content_pc_id,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	DeviceID    string `json:"device_id,omitempty"`
	DeviceType  string `json:"device_type,omitempty"`
	Location    string `json:"location,omitempty"`
}

// ResourceSection references the affected resource.
type ResourceSection struct {
	Type     string                 `json:"type"`
	ID       string                 `json:"id"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// StateDiffSection carries the before/after snapshots.
type StateDiffSection struct {
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`
}

// MetricsSection carries timing and payload size measurements.
type MetricsSection struct {
	DurationMS   *int64 `json:"duration_ms,omitempty"`
	RequestSize  *int64 `json:"request_size,omitempty"`
	ResponseSize *int64 `json:"response_size,omitempty"`
}

// ErrorSection carries recorded failure details.
type ErrorSection struct {
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message,omitempty"`
	Stack   string                 `json:"stack,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}
