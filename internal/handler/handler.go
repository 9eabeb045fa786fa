package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ftp_control/internal/dispatcher"
	"ftp_control/internal/logger"
	"ftp_control/models"
)

// Invoker runs one ftp_manage call.
type Invoker interface {
	Invoke(ctx context.Context, req models.ManageRequest) models.Outcome
}

// maxBodyBytes bounds request bodies; requests carry paths, not file data.
const maxBodyBytes = 64 << 10

// NewRouter wires the tool endpoint, health check and metrics.
func NewRouter(inv Invoker, gatherer prometheus.Gatherer, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Post("/ftp/manage", NewManageHandler(inv, log))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// NewManageHandler decodes a ManageRequest, invokes the tool and writes the
// outcome as JSON.
func NewManageHandler(inv Invoker, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sendError := func(status int, message string) {
			writeJSON(w, status, models.ErrorResponse{
				Success: false,
				Error:   message,
			})
		}

		var req models.ManageRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			sendError(http.StatusBadRequest, "Invalid JSON format: "+err.Error())
			return
		}

		out := inv.Invoke(r.Context(), req)
		if !out.OK {
			log.WithRequestID(middleware.GetReqID(r.Context())).
				WithField("error", out.Error).
				Info("ftp_manage returned failure")
		}
		writeJSON(w, statusFor(out), out)
	}
}

func statusFor(out models.Outcome) int {
	if out.OK {
		return http.StatusOK
	}
	switch dispatcher.ErrorKind(out.Error) {
	case dispatcher.InvalidArgument:
		return http.StatusBadRequest
	case dispatcher.LocalFileNotFound:
		return http.StatusNotFound
	case dispatcher.LocalPermissionDenied:
		return http.StatusForbidden
	case dispatcher.RemoteStatusError, dispatcher.ConnectionError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
