package core

import (
	"errors"
	"fmt"
)

// ErrSequenceGap marks a command that arrived ahead of its
// predecessors. Retryable: redelivery after the gap fills succeeds.
var ErrSequenceGap = errors.New("sequence gap")

// SequenceValidator validates source sequences per partition.
// Not thread-safe — only accessed from the single-threaded core.
type SequenceValidator struct {
	expectedNextSeq map[string]int64 // partition -> next expected sequence
}

func NewSequenceValidator() *SequenceValidator {
	return &SequenceValidator{
		expectedNextSeq: make(map[string]int64),
	}
}

// ValidateSequence checks source sequence ordering
func (sv *SequenceValidator) ValidateSequence(
	partition string,
	sourceSequence int64,
	idempotencyKey string,
	isDuplicate bool,
) error {
	expected := sv.expectedNextSeq[partition]

	if sourceSequence < expected {
		if isDuplicate {
			// Already processed — expected on redelivery
			return nil
		}
		return fmt.Errorf("out-of-order command: partition=%s, expected=%d, got=%d",
			partition, expected, sourceSequence)
	}

	if sourceSequence == expected {
		sv.expectedNextSeq[partition] = expected + 1
		return nil
	}

	return fmt.Errorf("%w: partition=%s, expected=%d, got=%d",
		ErrSequenceGap, partition, expected, sourceSequence)
}

// SyncToSource advances a partition's counter past an applied source
// sequence without validating. Used during log replay: rejected
// commands consumed sequences without producing a log row, so the
// persisted stream legitimately skips numbers. Never moves backward.
func (sv *SequenceValidator) SyncToSource(partition string, sourceSequence int64) {
	if next := sourceSequence + 1; next > sv.expectedNextSeq[partition] {
		sv.expectedNextSeq[partition] = next
	}
}

// GetExpectedSequence returns next expected sequence for a partition
func (sv *SequenceValidator) GetExpectedSequence(partition string) int64 {
	return sv.expectedNextSeq[partition]
}

// SetExpectedSequence initializes expected sequence (used during recovery)
func (sv *SequenceValidator) SetExpectedSequence(partition string, seq int64) {
	sv.expectedNextSeq[partition] = seq
}

// RestorePartition restores a partition's expected sequence
func (sv *SequenceValidator) RestorePartition(partition string, seq int64) {
	sv.expectedNextSeq[partition] = seq
}

// GetAllPartitions returns every partition's expected sequence
// (snapshot creation)
func (sv *SequenceValidator) GetAllPartitions() map[string]int64 {
	out := make(map[string]int64, len(sv.expectedNextSeq))
	for k, v := range sv.expectedNextSeq {
		out[k] = v
	}
	return out
}
