package ingestion

import (
	"time"

	"RedeemLedger/internal/event"
)

// Submission carries one typed command into the single core goroutine.
// NATS submissions attach Ack/Nak callbacks; HTTP submissions attach a
// Result channel so the handler can surface the core's decision
// synchronously. Exactly one of the two styles is populated.
type Submission struct {
	Event event.Event

	// Enqueued is when the submission entered the channel, for
	// ingest-to-apply latency measurement.
	Enqueued time.Time

	// JetStream delivery callbacks (nil for HTTP submissions)
	Ack func()
	Nak func()

	// Result receives the core's error (or nil) once the command has
	// been applied or rejected. Buffered with capacity 1 so the core
	// never blocks on a departed HTTP client.
	Result chan error
}

// Done reports the processing outcome. Deterministic rejections are
// ACKed — redelivery cannot change the verdict, the caller must correct
// and resubmit. Only retryable failures (sequence gaps waiting on
// earlier commands) are NAKed for redelivery.
func (s *Submission) Done(err error, retryable bool) {
	if s.Result != nil {
		s.Result <- err
	}
	if err != nil && retryable {
		if s.Nak != nil {
			s.Nak()
		}
		return
	}
	if s.Ack != nil {
		s.Ack()
	}
}
