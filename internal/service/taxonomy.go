package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/kioskworks/kiosk-admin-api/internal/dto"
	"github.com/kioskworks/kiosk-admin-api/internal/models"
	"github.com/kioskworks/kiosk-admin-api/internal/utils"
)

// VisualProfile carries the presentation tags resolved for a log entry. Every
// field is always non-empty.
type VisualProfile struct {
	Icon        string
	Color       string
	BorderColor string
}

var (
	alertProfile     = VisualProfile{Icon: "alert-triangle", Color: "red", BorderColor: "border-red"}
	paymentProfile   = VisualProfile{Icon: "credit-card", Color: "emerald", BorderColor: "border-emerald"}
	contentProfile   = VisualProfile{Icon: "folder", Color: "violet", BorderColor: "border-violet"}
	videoProfile     = VisualProfile{Icon: "video", Color: "violet", BorderColor: "border-violet"}
	imageProfile     = VisualProfile{Icon: "image", Color: "violet", BorderColor: "border-violet"}
	animalProfile    = VisualProfile{Icon: "paw-print", Color: "violet", BorderColor: "border-violet"}
	adminProfile     = VisualProfile{Icon: "user-cog", Color: "blue", BorderColor: "border-blue"}
	projectProfile   = VisualProfile{Icon: "briefcase", Color: "blue", BorderColor: "border-blue"}
	kioskProfile     = VisualProfile{Icon: "monitor", Color: "blue", BorderColor: "border-blue"}
	contentPCProfile = VisualProfile{Icon: "cpu", Color: "blue", BorderColor: "border-blue"}
	securityProfile  = VisualProfile{Icon: "shield", Color: "amber", BorderColor: "border-amber"}
	systemProfile    = VisualProfile{Icon: "server", Color: "slate", BorderColor: "border-slate"}
	genericProfile   = VisualProfile{Icon: "info", Color: "sky", BorderColor: "border-sky"}
)

// actionTitles maps known action strings to display titles. Actions missing
// from the table are humanized instead, so newer kiosk builds keep rendering.
var actionTitles = map[string]string{
	"payment.completed":           "Payment completed",
	"payment.failed":              "Payment failed",
	"payment.refunded.full":       "Full refund issued",
	"payment.refunded.partial":    "Partial refund issued",
	"payment.cancelled":           "Payment cancelled",
	"admin.login":                 "Administrator signed in",
	"admin.logout":                "Administrator signed out",
	"admin.password.changed":      "Administrator password changed",
	"project.created":             "Project created",
	"project.updated":             "Project updated",
	"project.deleted":             "Project deleted",
	"kiosk.registered":            "Kiosk registered",
	"kiosk.updated":               "Kiosk updated",
	"kiosk.offline":               "Kiosk went offline",
	"kiosk.rebooted":              "Kiosk rebooted",
	"content-pc.provisioned":      "Content PC provisioned",
	"content-pc.heartbeat.missed": "Content PC heartbeat missed",
	"video.uploaded":              "Video uploaded",
	"video.transcoded":            "Video transcoded",
	"video.playback.started":      "Video playback started",
	"image.uploaded":              "Image uploaded",
	"animal.profile.updated":      "Animal profile updated",
	"user.registered":             "User registered",
	"user.session.started":        "User session started",
	"system.maintenance.started":  "Maintenance started",
	"system.backup.completed":     "Backup completed",
	"security.apikey.created":     "API key created",
	"security.apikey.revoked":     "API key revoked",
	"security.permission.denied":  "Permission denied",
}

// ResolveVisual maps entry fields to a visual profile. Alerting levels and
// failed statuses override the category, so a failed payment renders as an
// alert rather than a payment.
func ResolveVisual(category models.Category, action string, level models.Level, status models.Status) VisualProfile {
	if level.Alerting() || status == models.StatusFailed {
		return alertProfile
	}

	switch category {
	case models.CategoryPayment:
		return paymentProfile
	case models.CategoryContent:
		switch {
		case strings.Contains(action, "video"):
			return videoProfile
		case strings.Contains(action, "image"):
			return imageProfile
		case strings.Contains(action, "animal"):
			return animalProfile
		}
		return contentProfile
	case models.CategoryAdmin:
		switch {
		case strings.Contains(action, "project"):
			return projectProfile
		case strings.Contains(action, "kiosk"):
			return kioskProfile
		case strings.Contains(action, "content-pc"):
			return contentPCProfile
		}
		return adminProfile
	case models.CategorySecurity:
		return securityProfile
	case models.CategorySystem:
		return systemProfile
	}

	return genericProfile
}

// ResolveTitle looks the action up in the title table and humanizes unknown
// actions (dots and underscores become spaces). Never returns an empty string.
func ResolveTitle(action string) string {
	if title, ok := actionTitles[action]; ok {
		return title
	}
	return humanizeAction(action)
}

func humanizeAction(action string) string {
	cleaned := strings.NewReplacer(".", " ", "_", " ").Replace(strings.TrimSpace(action))
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return "Unknown activity"
	}
	return cleaned
}

// TaxonomyResolver derives presentation attributes from raw log entries. It is
// total: no entry, however sparse or malformed, makes it panic or return an
// empty field.
type TaxonomyResolver struct {
	sanitizer *bluemonday.Policy
}

// NewTaxonomyResolver constructs the resolver.
func NewTaxonomyResolver() *TaxonomyResolver {
	return &TaxonomyResolver{sanitizer: bluemonday.StrictPolicy()}
}

// Format renders one entry into its timeline row, computing the relative time
// against the supplied clock.
func (r *TaxonomyResolver) Format(now time.Time, entry models.ActivityLog) dto.FormattedActivity {
	profile := ResolveVisual(entry.Category, entry.Action, entry.Level, entry.Status)

	return dto.FormattedActivity{
		EntryID:      entry.ID,
		Icon:         profile.Icon,
		Color:        profile.Color,
		BorderColor:  profile.BorderColor,
		Title:        ResolveTitle(entry.Action),
		Description:  r.ResolveDescription(entry),
		RelativeTime: utils.FormatRelativeTime(now, entry.OccurredAt),
	}
}

/// ResolveDescription tries, in order: category-specific structured extraction,
// a truncated resource reference, the entry's own description, and a literal
// last-resort string naming the category.
func (r *TaxonomyResolver) ResolveDescription(entry models.ActivityLog) string {
	if desc := r.structuredDescription(entry); desc != "" {
		return desc
	}

	if entry.ResourceType != nil && entry.ResourceID != nil &&
		strings.TrimSpace(*entry.ResourceType) != "" && strings.TrimSpace(*entry.ResourceID) != "" {
		return fmt.Sprintf("%s %s", strings.TrimSpace(*entry.ResourceType), truncateID(*entry.ResourceID))
	}

	if cleaned := strings.TrimSpace(r.sanitizer.Sanitize(entry.Description)); cleaned != "" {
		return cleaned
	}

	category := entry.Category
	if category == "" {
		category = models.CategoryUnknown
	}
	return fmt.Sprintf("%s operation performed", category)
}

func (r *TaxonomyResolver) structuredDescription(entry models.ActivityLog) string {
	action := entry.Action

	switch {
	case strings.HasPrefix(action, "payment."):
		if amount, ok := lookupNumber(entry, "refund_amount", "refundAmount", "amount"); ok {
			currency, _ := lookupString(entry, "currency")
			return formatAmount(amount, currency)
		}
	case strings.HasPrefix(action, "project."),
		strings.HasPrefix(action, "kiosk."),
		strings.HasPrefix(action, "content-pc."):
		if name, ok := lookupString(entry, "name", "title"); ok {
			return name
		}
	case strings.HasPrefix(action, "video."):
		if name, ok := lookupString(entry, "user_name", "userName", "username"); ok {
			return name
		}
	}

	return ""
}

// lookupString searches the resource metadata first and the opaque metadata
// map second, honoring the priority between the two.
func lookupString(entry models.ActivityLog, keys ...string) (string, bool) {
	for _, source := range []map[string]interface{}{entry.ResourceMetadata, entry.Metadata} {
		if source == nil {
			continue
		}
		for _, key := range keys {
			if raw, ok := source[key]; ok {
				if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s), true
				}
			}
		}
	}
	return "", false
}

func lookupNumber(entry models.ActivityLog, keys ...string) (float64, bool) {
	for _, source := range []map[string]interface{}{entry.ResourceMetadata, entry.Metadata} {
		if source == nil {
			continue
		}
		for _, key := range keys {
			raw, ok := source[key]
			if !ok {
				continue
			}
			switch v := raw.(type) {
			case float64:
				return v, true
			case float32:
				return float64(v), true
			case int:
				return float64(v), true
			case int64:
				return float64(v), true
			case string:
				if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					return parsed, true
				}
			}
		}
	}
	return 0, false
}

func formatAmount(amount float64, currency string) string {
	switch strings.ToUpper(strings.TrimSpace(currency)) {
	case "KRW", "JPY":
		return fmt.Sprintf("%s%s", currencySymbol(currency), groupThousands(fmt.Sprintf("%.0f", amount)))
	case "", "USD":
		return "$" + groupDecimal(amount)
	case "EUR":
		return "€" + groupDecimal(amount)
	default:
		return fmt.Sprintf("%s %s", strings.ToUpper(strings.TrimSpace(currency)), groupDecimal(amount))
	}
}

func currencySymbol(currency string) string {
	if strings.EqualFold(strings.TrimSpace(currency), "JPY") {
		return "¥"
	}
	return "₩"
}

func groupDecimal(amount float64) string {
	formatted := fmt.Sprintf("%.2f", amount)
	parts := strings.SplitN(formatted, ".", 2)
	return groupThousands(parts[0]) + "." + parts[1]
}

func groupThousands(digits string) string {
	negative := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	result := strings.Join(groups, ",")
	if negative {
		return "-" + result
	}
	return result
}

func truncateID(id string) string {
	trimmed := strings.TrimSpace(id)
	if len(trimmed) <= 8 {
		return trimmed
	}
	return trimmed[:8] + "…"
}
