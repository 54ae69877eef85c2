package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/kioskworks/kiosk-admin-api/internal/models"
)

func minimalEntry(category models.Category, action string) models.ActivityLog {
	return models.ActivityLog{
		ID:         "entry-1",
		Category:   category,
		Action:     action,
		Level:      models.LevelInfo,
		Status:     models.StatusSuccess,
		OccurredAt: time.Now().Add(-5 * time.Minute),
	}
}

func TestFormatIsTotalForMinimalEntries(t *testing.T) {
	resolver := NewTaxonomyResolver()
	now := time.Now()

	entries := []models.ActivityLog{
		minimalEntry(models.CategoryPayment, "payment.completed"),
		minimalEntry(models.CategoryUnknown, ""),
		minimalEntry(models.Category("bogus"), "something.odd"),
		{ID: "bare"},
	}

	for _, entry := range entries {
		formatted := resolver.Format(now, entry)
		require.NotEmpty(t, formatted.Icon)
		require.NotEmpty(t, formatted.Color)
		require.NotEmpty(t, formatted.BorderColor)
		require.NotEmpty(t, formatted.Title)
		require.NotEmpty(t, formatted.Description)
		require.NotEmpty(t, formatted.RelativeTime)
	}
}

func TestResolveVisualAlertOverridesCategory(t *testing.T) {
	for _, level := range []models.Level{models.LevelError, models.LevelCritical} {
		profile := ResolveVisual(models.CategoryPayment, "payment.completed", level, models.StatusSuccess)
		require.Equal(t, alertProfile, profile, "level %s should force the alert profile", level)
	}

	profile := ResolveVisual(models.CategoryPayment, "payment.completed", models.LevelInfo, models.StatusFailed)
	require.Equal(t, alertProfile, profile, "failed status should force the alert profile")
}

func TestResolveVisualCategoryDispatch(t *testing.T) {
	cases := []struct {
		category models.Category
		action   string
		want     VisualProfile
	}{
		{models.CategoryPayment, "payment.completed", paymentProfile},
		{models.CategoryContent, "video.uploaded", videoProfile},
		{models.CategoryContent, "image.uploaded", imageProfile},
		{models.CategoryContent, "animal.profile.updated", animalProfile},
		{models.CategoryContent, "playlist.reordered", contentProfile},
		{models.CategoryAdmin, "project.created", projectProfile},
		{models.CategoryAdmin, "kiosk.registered", kioskProfile},
		{models.CategoryAdmin, "content-pc.provisioned", contentPCProfile},
		{models.CategoryAdmin, "admin.login", adminProfile},
		{models.CategorySecurity, "security.apikey.created", securityProfile},
		{models.CategorySystem, "system.backup.completed", systemProfile},
		{models.CategoryHardware, "printer.jam", genericProfile},
		{models.CategoryUnknown, "whatever", genericProfile},
	}

	for _, tc := range cases {
		got := ResolveVisual(tc.category, tc.action, models.LevelInfo, models.StatusSuccess)
		require.Equal(t, tc.want, got, "%s/%s", tc.category, tc.action)
	}
}

func TestResolveTitleHumanizesUnknownActions(t *testing.T) {
	require.Equal(t, "Payment completed", ResolveTitle("payment.completed"))
	require.Equal(t, "coupon redeemed twice", ResolveTitle("coupon.redeemed_twice"))
	require.Equal(t, "Unknown activity", ResolveTitle(""))
	require.Equal(t, "Unknown activity", ResolveTitle("..."))
}

// Every action in the title table must resolve through a concrete visual rule
// when paired with the category its prefix implies.
func TestTitleTableActionsResolveThroughKnownRules(t *testing.T) {
	categoryFor := func(action string) models.Category {
		switch {
		case strings.HasPrefix(action, "payment."):
			return models.CategoryPayment
		case strings.HasPrefix(action, "video."), strings.HasPrefix(action, "image."), strings.HasPrefix(action, "animal."):
			return models.CategoryContent
		case strings.HasPrefix(action, "admin."), strings.HasPrefix(action, "project."),
			strings.HasPrefix(action, "kiosk."), strings.HasPrefix(action, "content-pc."):
			return models.CategoryAdmin
		case strings.HasPrefix(action, "security."):
			return models.CategorySecurity
		case strings.HasPrefix(action, "system."):
			return models.CategorySystem
		case strings.HasPrefix(action, "user."):
			return models.CategoryUser
		default:
			return models.CategoryUnknown
		}
	}

	for action := range actionTitles {
		category := categoryFor(action)
		require.NotEqual(t, models.CategoryUnknown, category, "action %q has no category rule", action)

		profile := ResolveVisual(category, action, models.LevelInfo, models.StatusSuccess)
		require.NotEmpty(t, profile.Icon, "action %q resolved to an empty profile", action)
		if category != models.CategoryUser {
			require.NotEqual(t, genericProfile, profile, "action %q fell through to the generic profile", action)
		}
	}
}

func TestResolveDescriptionPaymentAmount(t *testing.T) {
	resolver := NewTaxonomyResolver()

	entry := minimalEntry(models.CategoryPayment, "payment.refunded.full")
	entry.ResourceMetadata = datatypes.JSONMap{"refund_amount": 12500.0, "currency": "KRW"}
	require.Equal(t, "₩12,500", resolver.ResolveDescription(entry))

	entry.ResourceMetadata = datatypes.JSONMap{"amount": 42.5}
	require.Equal(t, "$42.50", resolver.ResolveDescription(entry))
}

func TestResolveDescriptionNamePriority(t *testing.T) {
	resolver := NewTaxonomyResolver()

	entry := minimalEntry(models.CategoryAdmin, "kiosk.updated")
	entry.ResourceMetadata = datatypes.JSONMap{"name": "Lobby Kiosk"}
	entry.Metadata = datatypes.JSONMap{"name": "Stale Name"}
	require.Equal(t, "Lobby Kiosk", resolver.ResolveDescription(entry), "resource metadata wins over the metadata map")

	entry.ResourceMetadata = nil
	require.Equal(t, "Stale Name", resolver.ResolveDescription(entry))
}

func TestResolveDescriptionFallbackChain(t *testing.T) {
	resolver := NewTaxonomyResolver()

	entry := minimalEntry(models.CategorySystem, "system.maintenance.started")
	resourceType := "maintenance_window"
	resourceID := "0123456789abcdef"
	entry.ResourceType = &resourceType
	entry.ResourceID = &resourceID
	require.Equal(t, "maintenance_window 01234567…", resolver.ResolveDescription(entry))

	entry.ResourceType = nil
	entry.ResourceID = nil
	entry.Description = "<script>alert(1)</script>planned downtime"
	require.Equal(t, "planned downtime", resolver.ResolveDescription(entry), "markup is stripped from free text")

	entry.Description = ""
	require.Equal(t, "system operation performed", resolver.ResolveDescription(entry))
}
