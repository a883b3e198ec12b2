package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/trunov/converthub/internal/cache"
	"github.com/trunov/converthub/internal/config"
	"github.com/trunov/converthub/internal/entities"
	"github.com/trunov/converthub/internal/routing"
)

const formatsCacheTTL = 10 * time.Minute

type UseCase interface {
	Submit(ctx context.Context, data []byte, filename, sourceFormat, destinationFormat string) (string, error)
	GetStatus(ctx context.Context, jobID string) (entities.Job, error)
	GetOutput(ctx context.Context, jobID string) (io.ReadCloser, string, error)
	DeleteJob(ctx context.Context, jobID string) error
	ListJobs(ctx context.Context) ([]entities.Job, error)
	ListSupportedConversions() []routing.FormatSupport
	Cleanup(ctx context.Context) entities.CleanupResult
	StorageStats(ctx context.Context) (entities.StorageStats, error)
}

type WSManager interface {
	RegisterClient(conn *websocket.Conn)
	UnregisterClient(conn *websocket.Conn)
}

type Handler struct {
	useCase   UseCase
	cfg       *config.Config
	validator *validator.Validate
	cache     *cache.Cache
	ws        WSManager
	upgrader  websocket.Upgrader
}

func New(useCase UseCase, cfg *config.Config, c *cache.Cache, ws WSManager) *Handler {
	return &Handler{
		useCase:   useCase,
		cfg:       cfg,
		validator: validator.New(),
		cache:     c,
		ws:        ws,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Upload.MaxRequestBodyMB<<20)

	maxMultipartMem := h.cfg.Upload.MaxMultipartMemoryMB
	if err := r.ParseMultipartForm(maxMultipartMem << 20); err != nil {
		writeMultipartError(w, err)
		return
	}

	file, fh, err := r.FormFile("file")
	if err != nil {
		if strings.Contains(err.Error(), "no such file") {
			writeJSONError(w, `missing upload: form field key should be "file"`, http.StatusBadRequest)
		} else {
			writeJSONError(w, "an error occurred while uploading the file: "+err.Error(), http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	params := ConvertParams{
		SourceFormat:      r.Form.Get("sourceFormat"),
		DestinationFormat: r.Form.Get("destinationFormat"),
	}
	if params.SourceFormat == "" && fh.Filename != "" {
		// Fall back to the upload's extension when the client omits the field.
		if i := strings.LastIndex(fh.Filename, "."); i >= 0 {
			params.SourceFormat = fh.Filename[i+1:]
		}
	}

	if err := h.validator.Struct(params); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(validationErrorsToMap(err))
		return
	}

	mime, err := mimetype.DetectReader(file)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := file.Seek(0, 0); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	src := routing.Normalize(params.SourceFormat)
	if err := validateDeclaredFormat(src, mime); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(data) == 0 {
		writeJSONError(w, "uploaded file is empty", http.StatusBadRequest)
		return
	}

	jobID, err := h.useCase.Submit(r.Context(), data, fh.Filename, params.SourceFormat, params.DestinationFormat)
	if err != nil {
		if errors.Is(err, entities.ErrUnsupportedConversion) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(ConvertResponse{
		JobID:   jobID,
		Message: "conversion job accepted",
	})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.useCase.GetStatus(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := StatusResponse{
		JobID:             job.ID,
		Status:            string(job.Status),
		Progress:          job.Progress,
		SourceFormat:      job.SourceFormat,
		DestinationFormat: job.DestinationFormat,
		OriginalFilename:  job.OriginalFilename,
		MethodUsed:        job.MethodUsed,
		Error:             job.Error,
		CreatedAt:         job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         job.UpdatedAt.Format(time.RFC3339),
	}
	if job.Status == entities.StatusCompleted {
		resp.DownloadURL = "/api/download/" + job.ID
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	out, filename, err := h.useCase.GetOutput(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer out.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := io.Copy(w, out); err != nil {
		log.Printf("[handler] download %s: %v", jobID, err)
	}
}

func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if err := h.useCase.DeleteJob(r.Context(), jobID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "job deleted"})
}

func (h *Handler) Jobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.useCase.ListJobs(r.Context())
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// Formats serves the capability listing. The payload is static per process
// so it is cached in Redis when available.
func (h *Handler) Formats(w http.ResponseWriter, r *http.Request) {
	if cached := h.cache.Get(r.Context(), "formats"); cached != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cached))
		return
	}

	payload, err := json.Marshal(map[string]any{
		"formats": h.useCase.ListSupportedConversions(),
	})
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.cache.Store(r.Context(), "formats", formatsCacheTTL, string(payload))

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	res := h.useCase.Cleanup(r.Context())
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) StorageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.useCase.StorageStats(r.Context())
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// WS upgrades the connection and keeps it registered for job update
// broadcasts until the client goes away.
func (h *Handler) WS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[handler] websocket upgrade: %v", err)
		return
	}
	h.ws.RegisterClient(conn)

	go func() {
		defer h.ws.UnregisterClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
