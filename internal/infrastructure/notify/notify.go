package notify

import (
	"context"
	"encoding/json"
	"time"

	"coop-loans/internal/infrastructure/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event kinds.
const (
	KindLoanSubmitted    = "loan_submitted"
	KindApprovalRequired = "approval_required"
	KindLoanApproved     = "loan_approved"
	KindLoanRejected     = "loan_rejected"
	KindLoanDisbursed    = "loan_disbursed"
	KindRepayment        = "repayment_received"
	KindRoutingPending   = "routing_pending"
)

type Event struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	MemberID  string            `json:"member_id,omitempty"`
	Role      string            `json:"role,omitempty"` // approver role for approval_required
	Reference string            `json:"reference,omitempty"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	At        time.Time         `json:"at"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// LogDispatcher only writes events to the log.
type LogDispatcher struct{ log *zap.Logger }

func NewLogDispatcher(log *zap.Logger) *LogDispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogDispatcher{log: log.With(zap.String("component", "notify"))}
}

func (d *LogDispatcher) Dispatch(_ context.Context, ev Event) error {
	d.log.Info("notification",
		zap.String("event_id", ev.ID),
		zap.String("kind", ev.Kind),
		zap.String("member_id", ev.MemberID),
		zap.String("role", ev.Role),
		zap.String("reference", ev.Reference),
		zap.String("message", ev.Message),
	)
	return nil
}

// RedisDispatcher publishes events as JSON on a pub/sub channel for the
// delivery workers (email, SMS, in-app) to pick up.
type RedisDispatcher struct {
	rdb     redis.UniversalClient
	channel string
}

func NewRedisDispatcher(rdb redis.UniversalClient, channel string) *RedisDispatcher {
	return &RedisDispatcher{rdb: rdb, channel: channel}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return d.rdb.Publish(ctx, d.channel, b).Err()
}

// Fanout sends to every dispatcher and returns the first error.
type Fanout []Dispatcher

func (f Fanout) Dispatch(ctx context.Context, ev Event) error {
	var first error
	for _, d := range f {
		if err := d.Dispatch(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Send stamps the event and dispatches it. Failures are logged and counted
// and never returned; callers have already committed their work.
func Send(ctx context.Context, d Dispatcher, log *zap.Logger, ev Event) {
	if d == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := d.Dispatch(ctx, ev); err != nil {
		metrics.NotificationsFailed.WithLabelValues(ev.Kind).Inc()
		if log != nil {
			log.Warn("notification dispatch failed",
				zap.String("kind", ev.Kind),
				zap.String("reference", ev.Reference),
				zap.Error(err))
		}
	}
}
