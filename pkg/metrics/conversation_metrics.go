package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Conversation lifecycle metrics. Claim conflicts are tracked
// separately from errors: losing the claim race is an expected outcome.
var (
	ConversationCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conversation_created_total",
		Help: "Total number of conversations created",
	})

	ConversationClaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conversation_claimed_total",
		Help: "Total number of conversations successfully claimed by an agent",
	})

	ConversationClaimConflictTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conversation_claim_conflict_total",
		Help: "Total number of claim attempts that lost the race",
	})

	ConversationDeclinedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conversation_declined_total",
		Help: "Total number of waiting conversations declined by an agent",
	})

	ConversationEndedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conversation_ended_total",
		Help: "Total number of conversations transitioned to ENDED",
	})

	ConversationStatusTransitionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_status_transition_total",
		Help: "Total number of status transitions by target status",
	}, []string{"to"})
)

// Liveness sweep metrics.
var (
	SweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveness_sweep_runs_total",
		Help: "Total number of liveness sweep ticks executed",
	})

	SweepDemotedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveness_sweep_demoted_total",
		Help: "Total number of conversations demoted to INACTIVE by the sweep",
	})

	SweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveness_sweep_errors_total",
		Help: "Total number of per-conversation errors during sweeps",
	})
)

// Message metrics.
var (
	MessageAppendedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "message_appended_total",
		Help: "Total number of messages appended to conversation logs",
	}, []string{"sender", "message_type"})

	MessageAppendRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "message_append_rejected_total",
		Help: "Total number of appends rejected",
	}, []string{"reason"})

	MessagePublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "message_published_total",
		Help: "Total number of messages published to Redis for real-time fanout",
	}, []string{"status"})
)

// Video handshake metrics.
var (
	VideoHandshakeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video_handshake_total",
		Help: "Total number of video handshake protocol messages",
	}, []string{"kind"})
)
