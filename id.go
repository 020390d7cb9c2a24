package redrive

import "github.com/xraph/redrive/id"

// ID is the identifier type for redrive entities.
type ID = id.ID

// Prefix identifies the entity type encoded in an ID.
type Prefix = id.Prefix
