package event

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/xraph/redrive/envelope"
)

// Raw decodes the subject layout without a type registry. The event
// payload is left as the undecoded bytes. It suits projectors that only
// forward messages, such as project.Republisher.
var Raw Decoder = DecoderFunc(decodeRaw)

func decodeRaw(env *envelope.Envelope) (*Context, error) {
	tokens := env.Tokens()
	if len(tokens) != 2 {
		return nil, &DecodeError{
			Subject: env.Subject(),
			Err:     fmt.Errorf("expected <prefix>.<event>.<aggregate_id>, got %d tokens after prefix", len(tokens)),
		}
	}
	agg, err := uuid.Parse(tokens[1])
	if err != nil {
		return nil, &DecodeError{Subject: env.Subject(), Err: fmt.Errorf("aggregate id: %w", err)}
	}
	version, err := versionOf(env.Header())
	if err != nil {
		return nil, &DecodeError{Subject: env.Subject(), Err: err}
	}
	return &Context{
		Envelope:    env,
		AggregateID: agg,
		Name:        tokens[0],
		Version:     version,
		Event:       env.Data(),
	}, nil
}
