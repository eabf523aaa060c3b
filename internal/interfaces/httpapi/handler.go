package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"filterpanel/internal/bootstrap/logging"
	"filterpanel/internal/observability"
	"filterpanel/internal/ports"
	"filterpanel/internal/usecase/inventory"
)

const (
	maxBodyBytes = 1 << 20

	healthMessage    = "Sistema de inspeção na nuvem funcionando!"
	installedMessage = "Tecido instalado com sucesso!"
	reportedMessage  = "Anomalia registrada com sucesso!"
)

// InventoryService is the slice of the inventory usecase the HTTP layer calls.
type InventoryService interface {
	ListFabrics(ctx context.Context) ([]ports.Fabric, error)
	InstallFabric(ctx context.Context, input inventory.InstallFabricInput) (inventory.InstallFabricResult, error)
	ListAnomalies(ctx context.Context) ([]ports.Anomaly, error)
	ReportAnomaly(ctx context.Context, input inventory.ReportAnomalyInput) (ports.Anomaly, error)
}

type Options struct {
	Environment string
	// StaticDir holds index.html and the frontend assets; empty disables static serving.
	StaticDir string
	Logger    *slog.Logger
}

type handler struct {
	svc  InventoryService
	opts Options
}

func NewHandler(svc InventoryService, opts Options) http.Handler {
	h := &handler{svc: svc, opts: opts}

	r := chi.NewRouter()
	r.Use(requestContext(opts.Logger))
	r.Use(accessLog)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/tecidos", h.listFabrics)
		r.Post("/tecidos", h.installFabric)
		r.Get("/anomalias", h.listAnomalies)
		r.Post("/anomalias", h.reportAnomaly)
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if dir := strings.TrimSpace(opts.StaticDir); dir != "" {
		r.Handle("/*", http.FileServer(http.Dir(dir)))
	}

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	env := h.opts.Environment
	if env == "" {
		env = "development"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "OK",
		Message:     healthMessage,
		Environment: env,
	})
}

func (h *handler) listFabrics(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListFabrics(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) installFabric(w http.ResponseWriter, r *http.Request) {
	var req installFabricRequest
	if !decodeBody(w, r, &req) {
		observability.RecordFabricInstall("rejected")
		return
	}

	result, err := h.svc.InstallFabric(r.Context(), inventory.InstallFabricInput{
		Code:        req.Code,
		Filter:      int(req.Filter),
		Board:       int(req.Board),
		Side:        req.Side,
		InstalledAt: req.InstalledAt.Time,
		Installer:   req.Installer,
		Notes:       derefText(req.Notes),
	})
	if err != nil {
		if status := writeServiceError(r.Context(), w, err); status == http.StatusInternalServerError {
			observability.RecordFabricInstall("failed")
		} else {
			observability.RecordFabricInstall("rejected")
		}
		return
	}

	if result.Replaced != nil {
		observability.RecordFabricInstall("replaced")
	} else {
		observability.RecordFabricInstall("installed")
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: installedMessage})
}

func (h *handler) listAnomalies(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListAnomalies(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) reportAnomaly(w http.ResponseWriter, r *http.Request) {
	var req reportAnomalyRequest
	if !decodeBody(w, r, &req) {
		observability.RecordAnomalyReport("rejected")
		return
	}

	_, err := h.svc.ReportAnomaly(r.Context(), inventory.ReportAnomalyInput{
		FabricCode: req.FabricCode,
		ObservedAt: req.ObservedAt.Time,
		Quadrant:   req.Quadrant,
		Condition:  req.Condition,
		Observer:   req.Observer,
		Notes:      derefText(req.Notes),
	})
	if err != nil {
		if status := writeServiceError(r.Context(), w, err); status == http.StatusInternalServerError {
			observability.RecordAnomalyReport("failed")
		} else {
			observability.RecordAnomalyReport("rejected")
		}
		return
	}

	observability.RecordAnomalyReport("logged")
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: reportedMessage})
}

var errTrailingData = errors.New("unexpected data after the JSON object")

// decodeBody writes a 400 and returns false when the body is not a valid request.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	err := dec.Decode(dst)
	if err == nil {
		if _, tokErr := dec.Token(); tokErr != io.EOF {
			err = errTrailingData
			if tokErr != nil {
				err = fmt.Errorf("%w: %w", errTrailingData, tokErr)
			}
		}
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		logging.Warn(r.Context(), "malformed request body", slog.String("err", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
