package envelope

import (
	"errors"
	"fmt"

	"github.com/xraph/redrive/id"
)

// Kind classifies why a record could not be turned into an envelope.
type Kind string

const (
	MissingPrefix     Kind = "missing_prefix"
	MissingHeaders    Kind = "missing_headers"
	MissingSubject    Kind = "missing_subject"
	InvalidAckAddress Kind = "invalid_ack_address"
)

// ReconstructionError reports a record that lacks what is needed to
// rebuild its message. It affects that record only.
type ReconstructionError struct {
	Kind     Kind
	RecordID id.DeadLetterID
	Err      error
}

func (e *ReconstructionError) Error() string {
	msg := "envelope: " + describe(e.Kind)
	if !e.RecordID.IsNil() {
		msg = fmt.Sprintf("%s (record %s)", msg, e.RecordID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ReconstructionError) Unwrap() error { return e.Err }

// IsKind reports whether err is a ReconstructionError of kind k.
func IsKind(err error, k Kind) bool {
	var re *ReconstructionError
	return errors.As(err, &re) && re.Kind == k
}

func describe(k Kind) string {
	switch k {
	case MissingPrefix:
		return "event prefix is missing"
	case MissingHeaders:
		return "event headers are missing"
	case MissingSubject:
		return "event subject is missing"
	case InvalidAckAddress:
		return "cannot build acknowledgment address"
	default:
		return string(k)
	}
}
