package redrive

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("redrive: no store configured")
	ErrStoreClosed     = errors.New("redrive: store closed")
	ErrMigrationFailed = errors.New("redrive: migration failed")

	// Not found errors.
	ErrDeadLetterNotFound = errors.New("redrive: dead letter not found")
	ErrNoDeadLetters      = errors.New("redrive: no dead letter events found")

	// Replay errors.
	ErrNoProjector     = errors.New("redrive: no projector configured")
	ErrNoDecoder       = errors.New("redrive: no decoder configured")
	ErrUnknownCommand  = errors.New("redrive: unknown admin command")
	ErrUnknownEvent    = errors.New("redrive: unknown event type")
	ErrAlreadyStarted  = errors.New("redrive: already started")
	ErrInvalidSchedule = errors.New("redrive: invalid sweep schedule")
)
