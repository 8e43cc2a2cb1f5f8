package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/dronecontrol/internal/pilot/command"
	"github.com/autopeer-io/dronecontrol/internal/pilot/input"
	"github.com/autopeer-io/dronecontrol/internal/pkg/metrics"
	"github.com/autopeer-io/dronecontrol/pkg/log"
	"github.com/autopeer-io/dronecontrol/pkg/options"
)

const maxBodyBytes = 64 << 10

type HTTPServer struct {
	server  *http.Server
	options *options.HttpOptions
}

type commandResponse struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command,omitempty"`
}

type clearResponse struct {
	Discarded int `json:"discarded"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPServer builds the HTTP API.
func NewHTTPServer(opts *options.HttpOptions, b Backend) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewRouter(b),
			ReadHeaderTimeout: 5 * time.Second,
		},
		options: opts,
	}
}

// NewRouter returns the API routes.
func NewRouter(b Backend) *mux.Router {
	r := mux.NewRouter()

	// Basic Liveness Probe
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Readiness Probe: the vehicle is connected and positioned.
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if b.Session == nil || !b.Session.IsReady() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("vehicle not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/status", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, b.Status(req.Context()))
	}).Methods(http.MethodGet)

	r.HandleFunc("/commands", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, command.Names())
	}).Methods(http.MethodGet)

	r.HandleFunc("/commands", func(w http.ResponseWriter, req *http.Request) {
		var cr command.Request
		dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
		if err := dec.Decode(&cr); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request: " + err.Error()})
			return
		}
		cmd, err := cr.Build()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusAccepted, enqueue(b.Queue, cmd, cr.Interrupt))
	}).Methods(http.MethodPost)

	r.HandleFunc("/commands", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, clearResponse{Discarded: b.Queue.Clear()})
	}).Methods(http.MethodDelete)

	r.HandleFunc("/gestures/{gesture}", func(w http.ResponseWriter, req *http.Request) {
		g, err := input.ParseGesture(mux.Vars(req)["gesture"])
		if err != nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		cmd, interrupt, _ := input.MapGesture(g)
		writeJSON(w, http.StatusAccepted, enqueue(b.Queue, cmd, interrupt))
	}).Methods(http.MethodPost)

	return r
}

func enqueue(q Queue, cmd command.Command, interrupt bool) commandResponse {
	id := q.Enqueue(cmd, interrupt)
	if cmd == nil {
		return commandResponse{}
	}
	return commandResponse{ID: id.String(), Command: cmd.Name()}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Failed to write response", "error", err)
	}
}

func (s *HTTPServer) Start(ctx context.Context) error {
	log.Info("Starting HTTP Server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
