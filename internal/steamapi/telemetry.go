package steamapi

import (
	"context"
	"time"
)

// CallRecord captures one physical API call attempt. Retried attempts each
// produce their own record; the logical operation still reports one outcome
// to its caller.
type CallRecord struct {
	Endpoint       string
	SteamID        string
	AppID          int64
	Success        bool
	Classification Classification
	Latency        time.Duration
}

// CallRecorder is the telemetry sink boundary. Implementations must not
// block the pipeline; recording failures are their own concern.
type CallRecorder interface {
	RecordCall(ctx context.Context, rec CallRecord)
}

// NoOpRecorder discards telemetry. Used in tests and when no sink is wired.
type NoOpRecorder struct{}

func (NoOpRecorder) RecordCall(context.Context, CallRecord) {}

type multiRecorder []CallRecorder

func (m multiRecorder) RecordCall(ctx context.Context, rec CallRecord) {
	for _, r := range m {
		r.RecordCall(ctx, rec)
	}
}

// MultiRecorder fans a call record out to several sinks, e.g. the database
// statistics repository plus Prometheus counters.
func MultiRecorder(recorders ...CallRecorder) CallRecorder {
	return multiRecorder(recorders)
}
