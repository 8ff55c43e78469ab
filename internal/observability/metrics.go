// Package observability holds domain metrics and OpenTelemetry setup.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DBQueryDuration records the latency of every GORM statement.
	DBQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lcnetwork_db_query_duration_seconds",
		Help:    "Database statement latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// OTPVerifications counts verification attempts by outcome
	// (verified, expired, mismatch, already_verified).
	OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lcnetwork_otp_verifications_total",
		Help: "OTP verification attempts by outcome",
	}, []string{"outcome"})

	// ModerationDecisions counts moderator verdicts on posts.
	ModerationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lcnetwork_moderation_decisions_total",
		Help: "Moderator decisions by verdict",
	}, []string{"decision"})

	// QueueLockAttempts counts queue lock attempts by result
	// (acquired, conflict, completed, not_found).
	QueueLockAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lcnetwork_moderation_queue_lock_attempts_total",
		Help: "Moderation queue lock attempts by result",
	}, []string{"result"})

	// QueueEnqueued counts items added to the moderation queue by source.
	QueueEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lcnetwork_moderation_queue_enqueued_total",
		Help: "Moderation queue items created by source",
	}, []string{"source"})

	// AppealDecisions counts appeal reviews by outcome.
	AppealDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lcnetwork_appeal_decisions_total",
		Help: "Appeal reviews by outcome",
	}, []string{"outcome"})

	// NotificationsCreated counts notifications by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lcnetwork_notifications_created_total",
		Help: "Notifications created by type",
	}, []string{"type"})

	// MailFailures counts outbound mail that could not be delivered.
	MailFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lcnetwork_mail_failures_total",
		Help: "Outbound e-mails that failed to send",
	})

	// MediaProcessed counts uploads by media type.
	MediaProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lcnetwork_media_uploads_total",
		Help: "Processed media uploads by type",
	}, []string{"media_type"})
)
