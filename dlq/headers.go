package dlq

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// MarshalHeaders encodes headers for column storage. Nil headers encode
// to nil so backends can store NULL and keep "never captured" distinct
// from "captured empty".
func MarshalHeaders(h nats.Header) ([]byte, error) {
	if h == nil {
		return nil, nil
	}
	b, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal headers: %w", err)
	}
	return b, nil
}

// UnmarshalHeaders reverses MarshalHeaders.
func UnmarshalHeaders(b []byte) (nats.Header, error) {
	if b == nil {
		return nil, nil
	}
	h := nats.Header{}
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("unmarshal headers: %w", err)
	}
	return h, nil
}
