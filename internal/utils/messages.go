package utils

import "fmt"

// User-facing message keys, "<operation>.<outcome>". Wording lives here so
// handlers and services never hard-code notice text.
const (
	MsgLoadFailed       = "load.failed"
	MsgLoadStale        = "load.stale"
	MsgPermissionDenied = "permission.denied"
	MsgSelectionEmpty   = "selection.empty"
	MsgExportFailed     = "export.failed"
	MsgArchiveSuccess   = "archive.success"
	MsgArchivePartial   = "archive.partial"
	MsgArchiveFailed    = "archive.failed"
	MsgDeleteSuccess    = "delete.success"
	MsgDeletePartial    = "delete.partial"
	MsgDeleteFailed     = "delete.failed"
	MsgRecordInvalid    = "record.invalid"
	MsgEntryNotFound    = "entry.not_found"
)

var messages = map[string]string{
	MsgLoadFailed:       "Failed to load activity logs.",
	MsgLoadStale:        "The result was superseded by a newer filter change. Retry the request.",
	MsgPermissionDenied: "You do not have permission to perform this action.",
	MsgSelectionEmpty:   "Select at least one log entry first.",
	MsgExportFailed:     "Export failed. Please try again.",
	MsgArchiveSuccess:   "%d log entries archived.",
	MsgArchivePartial:   "%d log entries archived, %d could not be archived.",
	MsgArchiveFailed:    "Archiving failed: %s",
	MsgDeleteSuccess:    "%d log entries deleted.",
	MsgDeletePartial:    "%d log entries deleted, %d could not be deleted.",
	MsgDeleteFailed:     "Deleting failed: %s",
	MsgRecordInvalid:    "The submitted log entry is invalid.",
	MsgEntryNotFound:    "Log entry not found.",
}

// Message resolves a user-facing notice by key, applying printf arguments
// when the wording carries placeholders. Unknown keys fall back to a generic
// notice instead of leaking the key.
func Message(key string, args ...interface{}) string {
	format, ok := messages[key]
	if !ok {
		return "Operation completed."
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
