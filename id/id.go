// Package id defines the prefixed identifiers used across redrive.
//
// Identifiers are TypeIDs ("prefix_suffix"): the suffix is a UUIDv7, so
// identifiers sort by creation time, and the prefix names the entity kind.
// Aggregate identifiers are not TypeIDs; they come from the event-sourced
// application as plain UUIDs.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix names the kind of entity an ID refers to.
type Prefix string

const (
	// PrefixDeadLetter marks an archived dead-letter record.
	PrefixDeadLetter Prefix = "dlq"
	// PrefixReplay marks a single replay invocation (one ReplayOne or ReplayAll call).
	PrefixReplay Prefix = "rpl"
	// PrefixSweep marks a scheduled sweep entry.
	PrefixSweep Prefix = "swp"
)

// ID wraps a TypeID. The zero value is Nil and renders as "".
//
//nolint:recvcheck // UnmarshalText and Scan need pointer receivers.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New returns a fresh ID with the given prefix. An invalid prefix is a
// programming error and panics.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse accepts any well-formed TypeID string.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix is Parse plus a prefix check.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if got := parsed.Prefix(); got != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, got)
	}

	return parsed, nil
}

// MustParse panics when s is not a valid ID. Intended for fixtures.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Entity aliases and constructors
// ──────────────────────────────────────────────────

// DeadLetterID identifies an archived record (prefix "dlq").
type DeadLetterID = ID

// ReplayID identifies one replay invocation (prefix "rpl").
type ReplayID = ID

// SweepID identifies a scheduled sweep (prefix "swp").
type SweepID = ID

// NewDeadLetterID generates a dead-letter record ID.
func NewDeadLetterID() ID { return New(PrefixDeadLetter) }

// NewReplayID generates a replay invocation ID.
func NewReplayID() ID { return New(PrefixReplay) }

// NewSweepID generates a sweep ID.
func NewSweepID() ID { return New(PrefixSweep) }

// ParseDeadLetterID parses s and requires the "dlq" prefix.
func ParseDeadLetterID(s string) (ID, error) { return ParseWithPrefix(s, PrefixDeadLetter) }

// ParseReplayID parses s and requires the "rpl" prefix.
func ParseReplayID(s string) (ID, error) { return ParseWithPrefix(s, PrefixReplay) }

// ParseSweepID parses s and requires the "swp" prefix.
func ParseSweepID(s string) (ID, error) { return ParseWithPrefix(s, PrefixSweep) }

// ──────────────────────────────────────────────────
// Methods
// ──────────────────────────────────────────────────

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the entity prefix, or "" for Nil.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether i is the zero value.
func (i ID) IsNil() bool { return !i.valid }

// Equal reports whether two IDs render identically.
func (i ID) Equal(other ID) bool { return i.String() == other.String() }

// MarshalText implements encoding.TextMarshaler. Nil encodes as "".
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. "" decodes to Nil.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer. Nil is stored as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // NULL column
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil

		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
