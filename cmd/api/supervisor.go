package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/PaulBabatuyi/supportchat/internal/logging"
)

// httpService runs an http.Server as a supervised service.
type httpService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

func (h *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", h.server.Addr).Msg("http server listening")
		errCh <- h.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.shutdownTimeout)
	defer cancel()
	if err := h.server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("http server shutdown incomplete")
	}
	return ctx.Err()
}

func (h *httpService) String() string { return "http-server" }

// newSupervisor returns the root supervisor. Failures are reported through
// the process logger.
func newSupervisor(shutdownTimeout time.Duration) *suture.Supervisor {
	return suture.New("supportchat", suture.Spec{
		EventHook: logSupervisorEvent,
		Timeout:   shutdownTimeout,
	})
}

func logSupervisorEvent(e suture.Event) {
	logging.Warn().Fields(e.Map()).Msg(e.String())
}
