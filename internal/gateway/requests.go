package gateway

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/PaulBabatuyi/supportchat/internal/chat"
)

// Inbound event types.
const (
	RequestJoin     = "join"
	RequestSend     = "send"
	RequestMarkRead = "markRead"
	RequestPing     = "ping"
)

// errMalformed marks a frame that is not a decodable envelope.
var errMalformed = errors.New("gateway: malformed payload")

var validate = validator.New(validator.WithRequiredStructEnabled())

// inbound is the raw client frame before the variant is known.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// JoinRequest binds the connection to the caller's channel.
type JoinRequest struct {
	Credential   string    `json:"credential" validate:"required"`
	IntendedRole chat.Role `json:"intendedRole" validate:"required,oneof=user admin"`
}

// SendRequest appends a message. Admins must name the target user.
type SendRequest struct {
	Credential   string    `json:"credential" validate:"required"`
	Content      string    `json:"content" validate:"required"`
	Role         chat.Role `json:"role" validate:"required,oneof=user admin"`
	TargetUserID string    `json:"targetUserId" validate:"required_if=Role admin"`
}

// MarkReadRequest acknowledges the counterpart's messages.
type MarkReadRequest struct {
	Credential   string    `json:"credential" validate:"required"`
	Role         chat.Role `json:"role" validate:"required,oneof=user admin"`
	TargetUserID string    `json:"targetUserId" validate:"required_if=Role admin"`
}

// PingRequest carries no payload.
type PingRequest struct{}

// decodeRequest turns a frame into one of the typed request variants and
// validates it. It returns the event type alongside for logging even when
// decoding fails.
func decodeRequest(raw []byte) (string, any, error) {
	var env inbound
	if err := json.Unmarshal(raw, &env); err != nil {
		return "unknown", nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	var req any
	switch env.Type {
	case RequestJoin:
		req = &JoinRequest{}
	case RequestSend:
		req = &SendRequest{}
	case RequestMarkRead:
		req = &MarkReadRequest{}
	case RequestPing:
		return env.Type, &PingRequest{}, nil
	default:
		return "unknown", nil, fmt.Errorf("%w: unknown event type %q", errMalformed, env.Type)
	}

	if len(env.Data) == 0 {
		return env.Type, nil, fmt.Errorf("%w: missing data", errMalformed)
	}
	if err := json.Unmarshal(env.Data, req); err != nil {
		return env.Type, nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := validate.Struct(req); err != nil {
		return env.Type, nil, fmt.Errorf("%w: %v", chat.ErrValidation, err)
	}
	return env.Type, req, nil
}
