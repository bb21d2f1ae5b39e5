package api

import (
	"bufio"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagequery/internal/extractor"
	"github.com/JakeFAU/pagequery/internal/id/uuid"
	"github.com/JakeFAU/pagequery/internal/logging"
	"github.com/JakeFAU/pagequery/internal/metrics"
	"github.com/JakeFAU/pagequery/internal/relay"
	"github.com/JakeFAU/pagequery/internal/storage"
)

// Response messages returned to browser clients.
const (
	msgScrapable    = "Website is scrappable"
	msgNotScrapable = "Website is not scrappable"
	msgURLRequired  = "URL is required"
	msgNoURL        = "No URL provided"
	msgQueryMissing = "Query is required"
	msgNoData       = "No scraped data found. Please scrape a website first."
	msgQueryFailed  = "Query processing failed."
	msgScrapeFailed = "Scraping failed."
)

const maxBodyBytes = 1 << 20

//go:embed web
var webFS embed.FS

// PermissionChecker decides whether a URL may be scraped.
type PermissionChecker interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Scraper extracts page text.
type Scraper interface {
	Render(ctx context.Context, url string) (storage.ScrapeRecord, error)
	Direct(ctx context.Context, url string) (string, error)
}

// Answerer answers questions about the saved page.
type Answerer interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Options tunes server behavior.
type Options struct {
	// RequestTimeout bounds scrape and asset requests. Zero disables the
	// bound. /check and /query are never bounded.
	RequestTimeout time.Duration
	// Model is shown on the landing page.
	Model string
}

// Server wires HTTP handlers to the checker, scraper, and relay.
type Server struct {
	router   chi.Router
	checker  PermissionChecker
	scraper  Scraper
	answerer Answerer
	index    *template.Template
	opts     Options
	logger   *zap.Logger
}

type urlRequest struct {
	URL string `json:"url"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type indexData struct {
	Title string
	Model string
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	checker PermissionChecker,
	scraper Scraper,
	answerer Answerer,
	opts Options,
	logger *zap.Logger,
) (*Server, error) {
	logger = logging.OrNop(logger)
	index, err := template.ParseFS(webFS, "web/templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		return nil, fmt.Errorf("open static assets: %w", err)
	}

	s := &Server{
		checker:  checker,
		scraper:  scraper,
		answerer: answerer,
		index:    index,
		opts:     opts,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// The robots check and the model call run unbounded.
	r.Post("/check", s.check)
	r.Post("/query", s.query)

	r.Group(func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(timeoutMiddleware(opts.RequestTimeout))
		}
		r.Get("/", s.landing)
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
		r.Post("/scrape", s.scrapeDirect)
		r.Post("/scrape/rendered", s.scrapeRendered)
	})

	s.router = r
	return s, nil
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) landing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := indexData{Title: "Page Query", Model: s.opts.Model}
	if err := s.index.Execute(w, data); err != nil {
		s.logger.Error("render landing page", zap.Error(err))
	}
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decodeBody(w, r, &req) || strings.TrimSpace(req.URL) == "" {
		writeError(s.logger, w, http.StatusBadRequest, msgURLRequired)
		return
	}
	if s.checker.Allowed(r.Context(), req.URL) {
		writeJSON(s.logger, w, http.StatusOK, map[string]string{"message": msgScrapable})
		return
	}
	writeJSON(s.logger, w, http.StatusForbidden, map[string]string{"message": msgNotScrapable})
}

func (s *Server) scrapeDirect(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decodeBody(w, r, &req) || strings.TrimSpace(req.URL) == "" {
		writeError(s.logger, w, http.StatusBadRequest, msgNoURL)
		return
	}
	text, err := s.scraper.Direct(r.Context(), req.URL)
	if err != nil {
		if se, ok := extractor.AsStatusError(err); ok {
			writeError(s.logger, w, upstreamStatus(se.Code), se.Error())
			return
		}
		s.logger.Error("direct scrape failed", zap.String("url", req.URL), zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"content": text})
}

func (s *Server) scrapeRendered(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decodeBody(w, r, &req) || strings.TrimSpace(req.URL) == "" {
		writeError(s.logger, w, http.StatusBadRequest, msgNoURL)
		return
	}
	record, err := s.scraper.Render(r.Context(), req.URL)
	if err != nil {
		body := map[string]string{"error": msgScrapeFailed}
		if re, ok := extractor.AsRenderError(err); ok {
			body["kind"] = string(re.Kind)
		}
		writeJSON(s.logger, w, http.StatusInternalServerError, body)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, record)
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeBody(w, r, &req) || strings.TrimSpace(req.Query) == "" {
		writeError(s.logger, w, http.StatusBadRequest, msgQueryMissing)
		return
	}
	answer, err := s.answerer.Ask(r.Context(), req.Query)
	switch {
	case errors.Is(err, relay.ErrNoScrapedData):
		writeError(s.logger, w, http.StatusBadRequest, msgNoData)
	case err != nil:
		writeError(s.logger, w, http.StatusInternalServerError, msgQueryFailed)
	default:
		writeJSON(s.logger, w, http.StatusOK, map[string]string{"response": answer})
	}
}

// decodeBody reads a JSON body into dst. Malformed or oversized bodies report
// false and are handled like a missing field.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst) == nil
}

// upstreamStatus maps a site's status onto one this server can send with a
// JSON body.
func upstreamStatus(code int) int {
	switch {
	case code < 200 || code > 599:
		return http.StatusBadGateway
	case code == http.StatusNoContent || code == http.StatusNotModified:
		return http.StatusBadGateway
	default:
		return code
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the id assigned by the request-id middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.String("request_id", RequestID(r.Context())),
						zap.Any("error", rec),
					)
					writeError(logger, w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"request timed out"}`)
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}
