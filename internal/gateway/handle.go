package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PaulBabatuyi/supportchat/internal/chat"
)

// ErrNotInitialized is returned by GetHandle before Init has run.
var ErrNotInitialized = errors.New("gateway: not initialized")

// Options configures Init.
type Options struct {
	Store    chat.Store
	Verifier Verifier
	// Limiter is optional; nil disables per-connection throttling.
	Limiter Limiter
	// StoreTimeout bounds each store call made on behalf of an event.
	StoreTimeout time.Duration
	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int
}

// Handle is the process-wide live connection registry together with the
// gateway and router that use it. Collaborators receive it explicitly.
type Handle struct {
	Hub        *Hub
	Router     *Router
	Gateway    *Gateway
	SendBuffer int
}

var (
	handleMu sync.RWMutex
	current  *Handle
)

// Init builds the handle and records it as the process handle. Calling it
// again replaces the previous handle.
func Init(opts Options) (*Handle, error) {
	h, err := New(opts)
	if err != nil {
		return nil, err
	}
	handleMu.Lock()
	current = h
	handleMu.Unlock()
	return h, nil
}

// GetHandle returns the handle built by Init.
func GetHandle() (*Handle, error) {
	handleMu.RLock()
	defer handleMu.RUnlock()
	if current == nil {
		return nil, ErrNotInitialized
	}
	return current, nil
}

// New builds a handle without registering it process-wide.
func New(opts Options) (*Handle, error) {
	if opts.Store == nil {
		return nil, errors.New("gateway: store is required")
	}
	if opts.Verifier == nil {
		return nil, errors.New("gateway: verifier is required")
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}

	hub := NewHub()
	router := NewRouter(hub)
	return &Handle{
		Hub:    hub,
		Router: router,
		Gateway: &Gateway{
			store:        opts.Store,
			verifier:     opts.Verifier,
			hub:          hub,
			router:       router,
			limiter:      opts.Limiter,
			storeTimeout: opts.StoreTimeout,
		},
		SendBuffer: opts.SendBuffer,
	}, nil
}

// ServeSocket wraps an upgraded websocket and serves it until it closes.
func (h *Handle) ServeSocket(ctx context.Context, ws *websocket.Conn) {
	h.Gateway.Serve(ctx, NewConnection(ws, h.SendBuffer))
}
