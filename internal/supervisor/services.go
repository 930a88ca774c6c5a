package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"
)

// HTTPServer matches the *http.Server lifecycle methods.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService runs an HTTP server as a supervised service. Canceling the
// Serve context triggers a graceful Shutdown bounded by shutdownTimeout. A
// failure of ListenAndServe, such as a port already in use, terminates the
// whole tree instead of being retried.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPService wraps server. A non-positive timeout defaults to 10s.
func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w (%w)", err, suture.ErrTerminateSupervisorTree)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string { return "http-server" }

// StopOn wraps svc so that returning one of errs stops it without a restart.
func StopOn(svc suture.Service, errs ...error) suture.Service {
	return &stopOn{svc: svc, errs: errs}
}

type stopOn struct {
	svc  suture.Service
	errs []error
}

func (s *stopOn) Serve(ctx context.Context) error {
	err := s.svc.Serve(ctx)
	for _, e := range s.errs {
		if errors.Is(err, e) {
			return suture.ErrDoNotRestart
		}
	}
	return err
}

func (s *stopOn) String() string { return fmt.Sprint(s.svc) }
