// Package httpapi is the browser-facing gateway: a JSON REST surface over the
// same services as the gRPC API, plus a websocket feed of session events.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/and161185/clipsync/internal/channel"
	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/service"
)

// VisitCookie marks a browser whose visit was already counted as unique.
const VisitCookie = "clipsync_counted"

// Subscriber opens Change Channel subscriptions.
type Subscriber interface {
	Subscribe(topic string) (*channel.Subscription, error)
}

// Deps groups the services the gateway delegates to.
type Deps struct {
	Sessions    service.SessionService
	Entries     service.EntryService
	Attachments service.AttachmentService
	Visits      service.VisitService
	Hub         Subscriber
	Logger      *zap.Logger
}

// Options tunes the gateway.
type Options struct {
	// FilesDir, when set, is served under /files/ for the local blob backend.
	FilesDir string
	// MaxUploadBytes bounds multipart bodies; the attachment service applies the exact ceiling.
	MaxUploadBytes int64
	// AllowAnyOrigin disables the websocket same-origin check.
	AllowAnyOrigin bool
	// PingInterval keeps idle websocket connections alive.
	PingInterval time.Duration
}

type gateway struct {
	Deps
	opts     Options
	upgrader websocket.Upgrader
}

// New builds the gateway router.
func New(d Deps, opts Options) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = service.DefaultMaxAttachmentBytes
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	g := &gateway{
		Deps: d,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	if opts.AllowAnyOrigin {
		g.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	r := mux.NewRouter()
	r.Use(g.recoverer, g.logging)

	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	api := r.PathPrefix("/api").Subrouter()
	api.Methods(http.MethodPost).Path("/sessions").HandlerFunc(g.createSession)
	api.Methods(http.MethodGet).Path("/sessions/{code}").HandlerFunc(g.joinSession)
	api.Methods(http.MethodGet).Path("/sessions/{code}/entries").HandlerFunc(g.listEntries)
	api.Methods(http.MethodPost).Path("/sessions/{code}/entries").HandlerFunc(g.appendEntry)
	api.Methods(http.MethodDelete).Path("/sessions/{code}/entries").HandlerFunc(g.clearSession)
	api.Methods(http.MethodGet).Path("/sessions/{code}/events").HandlerFunc(g.events)
	api.Methods(http.MethodGet).Path("/entries/{id}").HandlerFunc(g.getEntry)
	api.Methods(http.MethodDelete).Path("/entries/{id}").HandlerFunc(g.deleteEntry)
	api.Methods(http.MethodPost).Path("/attachments").HandlerFunc(g.uploadAttachment)
	api.Methods(http.MethodPost).Path("/visits").HandlerFunc(g.recordVisit)

	if opts.FilesDir != "" {
		r.PathPrefix("/files/").Handler(http.StripPrefix("/files/", http.FileServer(http.Dir(opts.FilesDir))))
	}
	return r
}

func (g *gateway) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		g.Logger.Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", m.Code),
			zap.Duration("dur", m.Duration),
			zap.Int64("bytes", m.Written),
			zap.String("peer", r.RemoteAddr),
		)
	})
}

func (g *gateway) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				g.Logger.Error("panic",
					zap.Any("reason", rec),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", r.URL.Path),
				)
				writeError(w, errors.New("internal"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps a service error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	for _, m := range []struct {
		err  error
		code int
	}{
		{errs.ErrNotFound, http.StatusNotFound},
		{errs.ErrSessionInvalid, http.StatusNotFound},
		{errs.ErrContentEmpty, http.StatusBadRequest},
		{errs.ErrContentTooLarge, http.StatusBadRequest},
		{errs.ErrInvalidAttachment, http.StatusBadRequest},
		{errs.ErrAttachmentTooLarge, http.StatusRequestEntityTooLarge},
		{errs.ErrAlreadyExists, http.StatusConflict},
		{errs.ErrRateLimited, http.StatusTooManyRequests},
		{errs.ErrStorage, http.StatusServiceUnavailable},
		{errs.ErrChannel, http.StatusServiceUnavailable},
	} {
		if errors.Is(err, m.err) {
			return m.code, m.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal error"
}

func writeError(w http.ResponseWriter, err error) {
	code, msg := statusFor(err)
	writeJSON(w, code, errorBody{Error: msg})
}
