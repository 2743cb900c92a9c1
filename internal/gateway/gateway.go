package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaulBabatuyi/supportchat/internal/auth"
	"github.com/PaulBabatuyi/supportchat/internal/chat"
	"github.com/PaulBabatuyi/supportchat/internal/logging"
	"github.com/PaulBabatuyi/supportchat/internal/metrics"
	"github.com/PaulBabatuyi/supportchat/internal/normalize"
)

var (
	// ErrForbidden marks a verified caller acting outside its role, e.g. a
	// user token asking for the admin pool.
	ErrForbidden = errors.New("gateway: role not permitted")
	// ErrRateLimited marks an event dropped by per-connection throttling.
	ErrRateLimited = errors.New("gateway: rate limited")
	// ErrAlreadyBound marks a join that would move a connection to a
	// different user channel.
	ErrAlreadyBound = errors.New("gateway: connection bound to another user")
)

// Verifier is the session authenticator: verify(credential) -> identity.
type Verifier interface {
	Verify(token string) (auth.Identity, error)
}

// Limiter throttles inbound events per connection.
type Limiter interface {
	Allow(key string) bool
	Forget(key string)
}

// Gateway is the sole writer to the conversation store for live events.
type Gateway struct {
	store        chat.Store
	verifier     Verifier
	hub          *Hub
	router       *Router
	limiter      Limiter
	storeTimeout time.Duration
}

// storeContext detaches store calls from the connection: closing the
// socket never cancels a write that already left the handler. The store
// timeout still applies.
func (g *Gateway) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if g.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.storeTimeout)
}

// Join binds conn to the caller's channel. An admin join from a non-admin
// credential leaves the connection unbound.
func (g *Gateway) Join(ctx context.Context, conn Sender, req JoinRequest) error {
	id, err := g.verifier.Verify(req.Credential)
	if err != nil {
		return err
	}

	switch req.IntendedRole {
	case chat.RoleAdmin:
		if !id.IsAdmin() {
			return fmt.Errorf("%w: admin join by %s", ErrForbidden, id.Role)
		}
		g.hub.Bind(AdminPool, conn)
		return nil

	case chat.RoleUser:
		own := UserChannel(id.SubjectID)
		for _, ch := range g.hub.Channels(conn.ID()) {
			if ch != AdminPool && ch != own {
				return fmt.Errorf("%w: bound to %s", ErrAlreadyBound, ch)
			}
		}
		g.hub.Bind(own, conn)
		return nil
	}
	return fmt.Errorf("%w: unknown role %q", chat.ErrValidation, req.IntendedRole)
}

// Send re-verifies the credential, appends the message and fans it out.
func (g *Gateway) Send(ctx context.Context, req SendRequest) (*chat.Appended, error) {
	id, err := g.verifier.Verify(req.Credential)
	if err != nil {
		return nil, err
	}

	var target string
	switch req.Role {
	case chat.RoleUser:
		target = id.SubjectID
	case chat.RoleAdmin:
		if !id.IsAdmin() {
			return nil, fmt.Errorf("%w: admin send by %s", ErrForbidden, id.Role)
		}
		target = normalize.UserID(req.TargetUserID)
		if target == "" {
			return nil, fmt.Errorf("%w: targetUserId required for admin send", chat.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown role %q", chat.ErrValidation, req.Role)
	}

	storeCtx, cancel := g.storeContext(ctx)
	defer cancel()

	appended, err := g.store.Append(storeCtx, target, req.Role, req.Content)
	if err != nil {
		return nil, err
	}
	g.router.MessageAppended(appended)
	return appended, nil
}

// MarkRead clears the caller's unread flag and tells the counterpart. A
// missing conversation is a no-op and notifies nobody.
func (g *Gateway) MarkRead(ctx context.Context, req MarkReadRequest) error {
	id, err := g.verifier.Verify(req.Credential)
	if err != nil {
		return err
	}

	var target string
	switch req.Role {
	case chat.RoleUser:
		target = id.SubjectID
	case chat.RoleAdmin:
		if !id.IsAdmin() {
			return fmt.Errorf("%w: admin markRead by %s", ErrForbidden, id.Role)
		}
		target = normalize.UserID(req.TargetUserID)
		if target == "" {
			return fmt.Errorf("%w: targetUserId required for admin markRead", chat.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown role %q", chat.ErrValidation, req.Role)
	}

	storeCtx, cancel := g.storeContext(ctx)
	defer cancel()

	if err := g.store.MarkRead(storeCtx, target, req.Role); err != nil {
		return err
	}
	g.router.ReadMarked(target, req.Role)
	return nil
}

// Dispatch decodes one inbound frame and runs it. Errors are returned for
// observability only; callers must never write them to the peer.
func (g *Gateway) Dispatch(ctx context.Context, conn Sender, raw []byte) error {
	if g.limiter != nil && !g.limiter.Allow(conn.ID()) {
		return g.drop(conn, "unknown", ErrRateLimited)
	}

	kind, req, err := decodeRequest(raw)
	if err != nil {
		return g.drop(conn, kind, err)
	}

	switch r := req.(type) {
	case *JoinRequest:
		err = g.Join(ctx, conn, *r)
	case *SendRequest:
		_, err = g.Send(ctx, *r)
	case *MarkReadRequest:
		err = g.MarkRead(ctx, *r)
	case *PingRequest:
		err = conn.Send(Event{Type: EventPong})
	}
	if err != nil {
		return g.drop(conn, kind, err)
	}

	metrics.Handled(kind)
	return nil
}

// Serve runs conn until it closes, then removes every trace of it.
func (g *Gateway) Serve(ctx context.Context, conn *Connection) {
	metrics.GatewayConnections.Inc()
	logging.Debug().Str("conn_id", conn.ID()).Msg("connection opened")

	defer func() {
		g.Close(conn.ID())
		metrics.GatewayConnections.Dec()
		logging.Debug().Str("conn_id", conn.ID()).Msg("connection closed")
	}()

	conn.Run(func(raw []byte) {
		_ = g.Dispatch(ctx, conn, raw)
	})
}

// Close unbinds the connection. Nothing is persisted.
func (g *Gateway) Close(connID string) {
	g.hub.Unbind(connID)
	if g.limiter != nil {
		g.limiter.Forget(connID)
	}
}

// drop logs and counts a contained failure and hands the error back.
func (g *Gateway) drop(conn Sender, kind string, err error) error {
	reason := dropReason(err)
	metrics.Dropped(kind, reason)

	evt := logging.Warn()
	if reason == "not_found" {
		evt = logging.Debug()
	}
	evt.Err(err).Str("conn_id", conn.ID()).Str("event", kind).Str("reason", reason).Msg("event dropped")
	return err
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, chat.ErrAuth):
		return "auth"
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrAlreadyBound):
		return "forbidden"
	case errors.Is(err, chat.ErrValidation):
		return "validation"
	case errors.Is(err, errMalformed):
		return "malformed"
	case errors.Is(err, chat.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, chat.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		return "store"
	default:
		return "internal"
	}
}
