package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/al3-renewal-pipeline/internal/api_gateway/middleware"
	"github.com/al3-renewal-pipeline/internal/api_gateway/service"
	"github.com/al3-renewal-pipeline/internal/domain/batch"
)

// BatchHandler handles HTTP requests for batch operations
type BatchHandler struct {
	batchService    service.BatchService
	maxArchiveBytes int64
	logger          *slog.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(logger *slog.Logger, batchService service.BatchService, maxArchiveBytes int64) *BatchHandler {
	return &BatchHandler{
		batchService:    batchService,
		maxArchiveBytes: maxArchiveBytes,
		logger:          logger,
	}
}

// Upload accepts a multipart ZIP archive and enqueues it for processing.
// Only shallow validation happens here (extension, declared size); deep
// archive validation belongs to the processor.
func (h *BatchHandler) Upload(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		RespondBadRequest(c, "Missing tenant")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.logger.Error("Missing file in upload request", "error", err)
		RespondBadRequest(c, "Missing 'file' field in multipart form")
		return
	}

	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".zip") {
		RespondBadRequest(c, "Only .zip archives are accepted")
		return
	}
	if fileHeader.Size > h.maxArchiveBytes {
		RespondBadRequest(c, fmt.Sprintf("Archive exceeds the %d byte limit", h.maxArchiveBytes))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", "file_name", fileHeader.Filename, "error", err)
		RespondInternalError(c)
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(io.LimitReader(file, h.maxArchiveBytes+1))
	if err != nil {
		h.logger.Error("Failed to read uploaded file", "file_name", fileHeader.Filename, "error", err)
		RespondInternalError(c)
		return
	}
	if int64(len(payload)) > h.maxArchiveBytes {
		RespondBadRequest(c, fmt.Sprintf("Archive exceeds the %d byte limit", h.maxArchiveBytes))
		return
	}
	if len(payload) == 0 {
		RespondBadRequest(c, "Uploaded archive is empty")
		return
	}

	b, err := h.batchService.UploadBatch(
		c.Request.Context(),
		tenantID,
		filepath.Base(fileHeader.Filename),
		payload,
		middleware.GetCorrelationID(c),
	)
	if err != nil {
		h.logger.Error("Failed to store batch upload", "file_name", fileHeader.Filename, "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"batch_id": b.ID.String(),
		"status":   string(b.Status),
	})
}

// GetByID retrieves batch status and counters, returns 404 if not found
func (h *BatchHandler) GetByID(c *gin.Context) {
	id, ok := h.parseBatchID(c)
	if !ok {
		return
	}

	b, err := h.batchService.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.respondBatchError(c, id, err)
		return
	}

	RespondOK(c, mapBatchToResponse(b))
}

// GetLog retrieves the paginated processing log for a batch
func (h *BatchHandler) GetLog(c *gin.Context) {
	id, ok := h.parseBatchID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.batchService.GetBatchLog(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		h.respondBatchError(c, id, err)
		return
	}

	responses := make([]LogEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapLogEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// GetCandidates retrieves the paginated candidate list for a batch
func (h *BatchHandler) GetCandidates(c *gin.Context) {
	id, ok := h.parseBatchID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	candidates, total, err := h.batchService.GetBatchCandidates(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		h.respondBatchError(c, id, err)
		return
	}

	responses := make([]CandidateResponse, 0, len(candidates))
	for _, cand := range candidates {
		responses = append(responses, mapCandidateToResponse(cand))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// Reprocess restarts a terminal batch, returns 409 while it is still running
func (h *BatchHandler) Reprocess(c *gin.Context) {
	id, ok := h.parseBatchID(c)
	if !ok {
		return
	}

	err := h.batchService.ReprocessBatch(c.Request.Context(), id, middleware.GetCorrelationID(c))
	if err != nil {
		if errors.Is(err, batch.ErrNotTerminal) {
			RespondConflict(c, "Batch is still being processed")
			return
		}
		h.respondBatchError(c, id, err)
		return
	}

	RespondAccepted(c, gin.H{
		"batch_id": id.String(),
		"status":   "UPLOADED",
	})
}

func (h *BatchHandler) parseBatchID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid batch ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid batch ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *BatchHandler) respondBatchError(c *gin.Context, id uuid.UUID, err error) {
	var notFound batch.ErrBatchNotFound
	if errors.As(err, &notFound) {
		RespondNotFound(c, "Batch not found")
		return
	}
	h.logger.Error("Batch operation failed", "batch_id", id.String(), "error", err)
	RespondInternalError(c)
}
