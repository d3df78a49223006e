package enums

import "fmt"

// OutboxDLQErrorReason records why the publisher gave up on an outbox row.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: every publish attempt failed transiently.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: Pub/Sub rejected the message outright.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUnresolvable: the row has an unknown event type or a
	// payload that does not decode.
	OutboxDLQReasonUnresolvable OutboxDLQErrorReason = "unresolvable"
	// OutboxDLQReasonNoPublisher: the event maps to a topic this process has
	// no publisher for.
	OutboxDLQReasonNoPublisher OutboxDLQErrorReason = "no_publisher"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable,
		OutboxDLQReasonUnresolvable, OutboxDLQReasonNoPublisher:
		return true
	}
	return false
}

// Replayable reports whether a row dead-lettered for this reason can succeed
// unchanged once the outage is over. Unresolvable rows never can.
func (r OutboxDLQErrorReason) Replayable() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNoPublisher
}

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	r := OutboxDLQErrorReason(value)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid outbox dlq error reason %q", value)
	}
	return r, nil
}
