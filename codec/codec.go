// Package codec serializes event payloads. The codec of a message is
// chosen from its Content-Type header; JSON is the default.
package codec

import (
	"mime"
	"strings"
)

// Codec defines the serialization contract for event payloads.
type Codec interface {
	// Marshal serializes v.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes data into v.
	Unmarshal(data []byte, v any) error

	// Name returns the codec identifier ("json", "msgpack").
	Name() string

	// ContentType returns the MIME type written to message headers.
	ContentType() string
}

// Codec names.
const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"
)

// Content types.
const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

// HeaderContentType is the message header carrying the payload encoding.
const HeaderContentType = "Content-Type"

// Get returns a codec by name. Defaults to JSON.
func Get(name string) Codec {
	switch name {
	case NameMsgpack:
		return MsgpackCodec{}
	default:
		return JSONCodec{}
	}
}

// ForContentType returns the codec for a Content-Type header value.
// Parameters such as charset are ignored; unknown or empty types fall
// back to JSON.
func ForContentType(ct string) Codec {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt = strings.TrimSpace(strings.ToLower(ct))
	}
	switch mt {
	case ContentTypeMsgpack, "application/x-msgpack", "application/vnd.msgpack":
		return MsgpackCodec{}
	default:
		return JSONCodec{}
	}
}
