package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gaia/logservice/internal/domain"
	"github.com/gaia/logservice/internal/service/logs"
	"github.com/gaia/logservice/internal/ws"
	"github.com/gaia/logservice/pkg/logrecorder"
)

const (
	healthCheckTimeout = 2 * time.Second
	defaultHeartbeat   = 15 * time.Second
	maxRecordBodyBytes = 64 << 10
)

// HealthCheck is one component reported by /healthz.
type HealthCheck struct {
	Name  string
	Check func(context.Context) error
}

// Options tunes the router.
type Options struct {
	// StreamSecret enables viewer tokens on read and stream routes.
	StreamSecret string
	Heartbeat    time.Duration
	Registerer   prometheus.Registerer
	Gatherer     prometheus.Gatherer
	HealthChecks []HealthCheck
}

// Router wires HTTP endpoints to the log service.
type Router struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	logs         *logs.Service
	upgrader     websocket.Upgrader
	streamSecret string
	heartbeat    time.Duration
	checks       []HealthCheck
	registerer   prometheus.Registerer
	gatherer     prometheus.Gatherer

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	streamViewers      *prometheus.GaugeVec
}

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, logSvc *logs.Service, opts Options) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
		logs:   logSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		streamSecret: strings.TrimSpace(opts.StreamSecret),
		heartbeat:    opts.Heartbeat,
		checks:       opts.HealthChecks,
		registerer:   opts.Registerer,
		gatherer:     opts.Gatherer,
	}
	if r.heartbeat <= 0 {
		r.heartbeat = defaultHeartbeat
	}
	if r.registerer == nil {
		r.registerer = prometheus.DefaultRegisterer
	}
	if r.gatherer == nil {
		r.gatherer = prometheus.DefaultGatherer
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	r.mux.HandleFunc("/logs", r.audit("/logs", r.handleLogs))
	r.mux.HandleFunc("/ws/logs", r.audit("/ws/logs", r.handleLogsWS))
	r.mux.HandleFunc("/sse/logs", r.audit("/sse/logs", r.handleLogsSSE))
}

func (r *Router) handleLogs(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		req, ok := r.ensureViewer(w, req)
		if !ok {
			return
		}
		query := req.URL.Query()
		limit, _ := strconv.Atoi(query.Get("limit"))
		before, _ := strconv.ParseInt(query.Get("before"), 10, 64)
		filter := domain.LogFilter{
			Author:   strings.TrimSpace(query.Get("author")),
			Severity: strings.TrimSpace(query.Get("severity")),
			Limit:    limit,
			BeforeID: before,
		}
		if filter.Severity != "" {
			severity, err := logrecorder.ParseSeverity(filter.Severity)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			filter.Severity = severity.String()
		}
		entries, err := r.logs.List(req.Context(), filter)
		if errors.Is(err, logs.ErrArchiveDisabled) {
			writeError(w, http.StatusNotImplemented, "log archive disabled")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		payload := make([]map[string]any, 0, len(entries))
		for _, entry := range entries {
			payload = append(payload, logs.EntryPayload(entry))
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodPost:
		var body struct {
			Severity string `json:"severity"`
			Author   string `json:"author"`
			Text     string `json:"text"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRecordBodyBytes)).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(body.Text) == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}
		severity := logrecorder.Message
		if strings.TrimSpace(body.Severity) != "" {
			parsed, err := logrecorder.ParseSeverity(body.Severity)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			severity = parsed
		}
		if err := r.logs.RecordEntry(req.Context(), severity, strings.TrimSpace(body.Author), body.Text); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleLogsWS(w http.ResponseWriter, req *http.Request) {
	req, ok := r.ensureViewer(w, req)
	if !ok {
		return
	}
	topic := streamTopic(req)
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	hub := r.logs.Hub()
	hub.Register(topic, client)
	r.trackViewer("websocket", 1)
	go func() {
		defer func() {
			hub.Unregister(topic, client)
			client.Close()
			r.trackViewer("websocket", -1)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleLogsSSE(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	req, ok := r.ensureViewer(w, req)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	topic := streamTopic(req)
	client := ws.NewSSEClient(w, flusher, r.logger).WithWriteDeadline(http.NewResponseController(w).SetWriteDeadline)
	hub := r.logs.Hub()
	hub.Register(topic, client)
	r.trackViewer("sse", 1)
	defer func() {
		hub.Unregister(topic, client)
		client.Close()
		r.trackViewer("sse", -1)
	}()

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-client.Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func streamTopic(req *http.Request) string {
	if author := strings.TrimSpace(req.URL.Query().Get("author")); author != "" {
		return author
	}
	return ws.AllTopic
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	for _, check := range r.checks {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		err := check.Check(ctx)
		cancel()
		if err != nil {
			status = "degraded"
			components[check.Name] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
			continue
		}
		components[check.Name] = map[string]any{"status": "up"}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"archiving":  r.logs.Archiving(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if viewer, ok := viewerFromContext(ctx); ok {
			fields = append(fields, "viewer", viewer)
		}
		r.recordRequestMetrics(req.Method, route, status, duration)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the connection for write deadlines.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
