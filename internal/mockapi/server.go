package mockapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/wesleyorama2/breakwater/internal/faultinject"
)

const (
	// sweepInterval is how often idle per-correlation counters are
	// pruned on a long-running server.
	sweepInterval = time.Minute

	// counterMaxIdle is how long a counter may sit untouched before a
	// sweep removes it.
	counterMaxIdle = 10 * time.Minute
)

// Server hosts the mock fault-injection endpoints.
type Server struct {
	logger *zap.Logger

	// productTracker backs the products endpoint's single global
	// stream; paymentTracker keys one counter per correlation ID and
	// scenario.
	productTracker *faultinject.AttemptTracker
	paymentTracker *faultinject.AttemptTracker

	router chi.Router
}

// NewServer creates a mock API server. A nil logger disables logging.
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger:         logger,
		productTracker: faultinject.NewAttemptTracker(),
		paymentTracker: faultinject.NewAttemptTracker(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)
	r.Route("/internal-api", func(r chi.Router) {
		r.Get("/products", s.handleProducts)
		r.Post("/payment/charge", s.handlePaymentCharge)
	})
	s.router = r

	return s
}

// Handler returns the HTTP handler, usable directly with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server on addr until ctx is cancelled, then
// shuts it down gracefully. A background sweep keeps the payment
// tracker's per-correlation counters from growing without bound.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.runSweeper(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mock API listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.paymentTracker.Sweep(counterMaxIdle); removed > 0 {
				s.logger.Info("swept idle attempt counters", zap.Int("removed", removed))
			}
		}
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
