// Package metrics wires the per-user-id-labeled Prometheus series the
// source's rocket_prometheus macros (int_counter_metric!/int_gauge_metric!)
// registered, plus the per-minute feature-flag census cron job.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"sp2any/src/secretstore"
)

var (
	SimplyPluralFetchFrontsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "simply_plural_fetch_total_counter"},
		[]string{"user_id"},
	)
	SimplyPluralFetchFrontersCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "simply_plural_fetch_fronters_count"},
		[]string{"user_id"},
	)
	SimplyPluralFetchMembersCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "simply_plural_fetch_members_count"},
		[]string{"user_id"},
	)
	SimplyPluralFetchCustomFrontsCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "simply_plural_fetch_custom_fronts_count"},
		[]string{"user_id"},
	)
	UpdaterPlatformStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "updater_platform_status"},
		[]string{"user_id", "platform"},
	)
	PluralKitRateLimitRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "pluralkit_api_ratelimit_remaining"},
		[]string{"user_id"},
	)
	UserConfigFeature = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "sp2any_user_config_feature"},
		[]string{"feature", "status"},
	)
)

// Registry is the process-wide Prometheus registry; chi wires its
// /metrics handler to promhttp.HandlerFor(Registry, ...).
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		SimplyPluralFetchFrontsTotal,
		SimplyPluralFetchFrontersCount,
		SimplyPluralFetchMembersCount,
		SimplyPluralFetchCustomFrontsCount,
		UpdaterPlatformStatus,
		PluralKitRateLimitRemaining,
		UserConfigFeature,
	)
}

// SetPluralKitRateLimitRemaining records PluralKit's X-RateLimit-Remaining
// header for userID (spec §4.4.4 step 5).
func SetPluralKitRateLimitRemaining(userID string, n int) {
	PluralKitRateLimitRemaining.WithLabelValues(userID).Set(float64(n))
}

// RecordFetchFronts increments the fetch counter and sets the
// fronters/members/custom-fronts gauges for one FrontsResolver run.
func RecordFetchFronts(userID string, fronters, members, customFronts int) {
	SimplyPluralFetchFrontsTotal.WithLabelValues(userID).Inc()
	SimplyPluralFetchFrontersCount.WithLabelValues(userID).Set(float64(fronters))
	SimplyPluralFetchMembersCount.WithLabelValues(userID).Set(float64(members))
	SimplyPluralFetchCustomFrontsCount.WithLabelValues(userID).Set(float64(customFronts))
}

// RecordUpdaterStatus sets the per-platform status gauge (1 = Running, 0 =
// Disabled/Starting, -1 = Error) for dashboards/alerting.
func RecordUpdaterStatus(userID, platform string, value float64) {
	UpdaterPlatformStatus.WithLabelValues(userID, platform).Set(value)
}

// StartUserConfigCronJob runs a per-minute job (grounded in the source's
// tokio_cron_scheduler job of the same name) that counts every enable_*
// flag across all persisted users into UserConfigFeature.
func StartUserConfigCronJob(ctx context.Context, store *secretstore.Store) (*cron.Cron, error) {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc("0 * * * * *", func() {
		if err := runUserConfigMetricsJob(ctx, store); err != nil {
			logrus.WithError(err).Error("metrics: user config cron job failed")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func runUserConfigMetricsJob(ctx context.Context, store *secretstore.Store) error {
	userIDs, err := store.GetAllUsers(ctx)
	if err != nil {
		return err
	}

	type key struct{ feature, status string }
	counts := make(map[key]int)

	for _, id := range userIDs {
		entry, err := store.GetUser(ctx, id)
		if err != nil {
			logrus.WithError(err).WithField("user_id", id.String()).Warn("metrics: skipping user in cron job")
			continue
		}
		for feature, enabled := range featureFlags(entry) {
			status := "disabled"
			if enabled {
				status = "enabled"
			}
			counts[key{feature, status}]++
		}
	}

	for k, n := range counts {
		UserConfigFeature.WithLabelValues(k.feature, k.status).Set(float64(n))
	}
	return nil
}

func featureFlags(e secretstore.Entries[secretstore.Encrypted]) map[string]bool {
	flags := map[string]bool{}
	if e.EnableDiscord != nil {
		flags["discord"] = *e.EnableDiscord
	}
	if e.EnableDiscordStatusMsg != nil {
		flags["discord_status_message"] = *e.EnableDiscordStatusMsg
	}
	if e.EnableVRChat != nil {
		flags["vrchat"] = *e.EnableVRChat
	}
	if e.EnableToPluralKit != nil {
		flags["to_pluralkit"] = *e.EnableToPluralKit
	}
	return flags
}
