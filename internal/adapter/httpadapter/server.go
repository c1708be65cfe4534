package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/almanac-etl-service/internal/domain"
	"github.com/couchcryptid/almanac-etl-service/internal/observability"
	"github.com/couchcryptid/almanac-etl-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdvisoryService answers the /v1 queries.
type AdvisoryService interface {
	Build(ctx context.Context, date string) (domain.AdvisoryRecord, error)
	LuckyDates(ctx context.Context, event, month string) ([]domain.DateRecommendation, error)
	Fortune(ctx context.Context, zodiac, date string) (domain.ZodiacFortune, error)
}

// luckyDatesResponse is the body of GET /v1/lucky-dates.
type luckyDatesResponse struct {
	Event           string                      `json:"event"`
	Month           string                      `json:"month"`
	Recommendations []domain.DateRecommendation `json:"recommendations"`
}

// Server exposes the advisory API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	advisories AdvisoryService
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 advisory, lucky-date and zodiac routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, advisories AdvisoryService, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Advisory builds may wait on the almanac site and the commentary model.
			WriteTimeout: 45 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		advisories: advisories,
		metrics:    metrics,
		logger:     logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/almanac/{date}", s.handleAlmanac)
	mux.HandleFunc("GET /v1/tibetan/{date}", s.handleTibetan)
	mux.HandleFunc("GET /v1/lucky-dates", s.handleLuckyDates)
	mux.HandleFunc("GET /v1/zodiac/{animal}/{date}", s.handleZodiac)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleAlmanac serves the composed advisory. A commentary rate limit still
// returns the record, with a Retry-After hint.
func (s *Server) handleAlmanac(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	rec, err := s.advisories.Build(r.Context(), date)
	s.metrics.Advisories.WithLabelValues("http", pipeline.Outcome(err)).Inc()
	if err != nil {
		s.writeServiceError(w, err, rec, "build advisory failed", "date", date)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, rec)
}

// handleLuckyDates searches ?month=YYYY-MM for days that favor ?event=.
func (s *Server) handleLuckyDates(w http.ResponseWriter, r *http.Request) {
	event, month := r.URL.Query().Get("event"), r.URL.Query().Get("month")
	recs, err := s.advisories.LuckyDates(r.Context(), event, month)
	if err != nil {
		s.writeServiceError(w, err, nil, "lucky-date search failed", "event", event, "month", month)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, luckyDatesResponse{Event: event, Month: month, Recommendations: recs})
}

// handleZodiac serves one zodiac animal's fortune for a date.
func (s *Server) handleZodiac(w http.ResponseWriter, r *http.Request) {
	animal, date := r.PathValue("animal"), r.PathValue("date")
	f, err := s.advisories.Fortune(r.Context(), animal, date)
	if err != nil {
		s.writeServiceError(w, err, f, "zodiac fortune failed", "animal", animal, "date", date)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, f)
}

// writeServiceError maps a service error to a response. A rate limit is not
// a failure: partial is still served, with a Retry-After hint.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, partial any, msg string, args ...any) {
	var (
		rl *domain.RateLimitError
		fe *domain.FetchError
	)
	switch {
	case errors.As(err, &rl) && partial != nil:
		if rl.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		}
		sharedobs.WriteJSON(w, http.StatusOK, partial)
	case errors.Is(err, domain.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "請提供日期參數，格式：YYYY-MM-DD", err)
	case errors.Is(err, domain.ErrInvalidMonth):
		writeError(w, http.StatusBadRequest, "請提供月份參數，格式：YYYY-MM", err)
	case errors.Is(err, domain.ErrUnknownEvent):
		writeError(w, http.StatusBadRequest, "不支援的事項類型", err)
	case errors.Is(err, domain.ErrInvalidZodiac):
		writeError(w, http.StatusBadRequest, "無效的生肖", err)
	case errors.As(err, &fe):
		s.logger.Warn("almanac fetch failed", append(args, "error", err)...)
		writeError(w, http.StatusBadGateway, "無法取得黃曆資料", err)
	default:
		s.logger.Error(msg, append(args, "error", err)...)
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

// handleTibetan serves the Tibetan projection of a date without contacting
// any upstream service.
func (s *Server) handleTibetan(w http.ResponseWriter, r *http.Request) {
	day, err := domain.ParseDate(r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "請提供日期參數，格式：YYYY-MM-DD", err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.ConvertTibetan(day))
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := map[string]string{"error": msg}
	if err != nil {
		body["message"] = err.Error()
	}
	sharedobs.WriteJSON(w, status, body)
}
