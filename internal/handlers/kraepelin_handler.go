package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
	"github.com/SAP-F-2025/psychotest-service/internal/services"
	"github.com/SAP-F-2025/psychotest-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv"

	maxImportSize = 5 << 20
)

type KraepelinHandler struct {
	BaseHandler
	kraepelinService services.KraepelinService
	transferService  services.ImportExportService
}

func NewKraepelinHandler(
	kraepelinService services.KraepelinService,
	transferService services.ImportExportService,
	logger utils.Logger,
) *KraepelinHandler {
	return &KraepelinHandler{
		BaseHandler:      NewBaseHandler(logger),
		kraepelinService: kraepelinService,
		transferService:  transferService,
	}
}

// ===== LIVE SESSIONS =====

// StartSession generates a matrix and starts the first column timer
// @Summary Start Kraepelin session
// @Tags kraepelin
// @Accept json
// @Produce json
// @Param session body services.StartSessionRequest false "Test configuration, defaults apply to omitted fields"
// @Success 201 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Router /kraepelin/sessions [post]
func (h *KraepelinHandler) StartSession(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Starting Kraepelin session",
		"rows", req.Rows,
		"cols", req.Columns,
		"difficulty", req.Difficulty)

	session, err := h.kraepelinService.StartSession(h.requestContext(c), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetSession returns the session after applying any expired column timers
// @Summary Get Kraepelin session
// @Tags kraepelin
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Router /kraepelin/sessions/{id} [get]
func (h *KraepelinHandler) GetSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	session, err := h.kraepelinService.GetSession(h.requestContext(c), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// SubmitAnswer enters one digit into the open column
// @Summary Answer a cell
// @Tags kraepelin
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param answer body services.AnswerRequest true "Column and digit"
// @Success 200 {object} services.AnswerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /kraepelin/sessions/{id}/answers [post]
func (h *KraepelinHandler) SubmitAnswer(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.kraepelinService.SubmitAnswer(h.requestContext(c), sessionID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Undo clears the last entered digit of the open column
// @Summary Undo last answer
// @Tags kraepelin
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Router /kraepelin/sessions/{id}/undo [post]
func (h *KraepelinHandler) Undo(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	session, err := h.kraepelinService.Undo(h.requestContext(c), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Tick closes columns whose timer has run out
// @Summary Advance session timers
// @Tags kraepelin
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.TickResponse
// @Router /kraepelin/sessions/{id}/tick [post]
func (h *KraepelinHandler) Tick(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := h.kraepelinService.Tick(h.requestContext(c), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Finalize returns the stored result of a finished session, storing it first if needed
// @Summary Finalize session
// @Tags kraepelin
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.ResultResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /kraepelin/sessions/{id}/finalize [post]
func (h *KraepelinHandler) Finalize(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Finalizing Kraepelin session", "session_id", sessionID)

	result, err := h.kraepelinService.Finalize(h.requestContext(c), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelSession discards a session that has no unsaved result
// @Summary Cancel session
// @Tags kraepelin
// @Param id path string true "Session ID"
// @Success 204
// @Failure 422 {object} ErrorResponse
// @Router /kraepelin/sessions/{id} [delete]
func (h *KraepelinHandler) CancelSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Cancelling Kraepelin session", "session_id", sessionID)

	if err := h.kraepelinService.CancelSession(h.requestContext(c), sessionID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ===== STORED RESULTS =====

// SubmitResult scores and stores a test taken outside a live session
// @Summary Submit result
// @Tags kraepelin
// @Accept json
// @Produce json
// @Param result body services.SubmitResultRequest true "Matrix, answers and timing"
// @Success 201 {object} services.ResultResponse
// @Failure 400 {object} ErrorResponse
// @Router /kraepelin/results [post]
func (h *KraepelinHandler) SubmitResult(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting Kraepelin result", "rows", req.Rows, "cols", req.Columns)

	result, err := h.kraepelinService.SubmitResult(h.requestContext(c), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ListResults lists the caller's results
// @Summary List results
// @Tags kraepelin
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Param difficulty query string false "mudah, sedang or sulit"
// @Param sort_by query string false "created_at, overall_score, correct_answers or fatigue_index"
// @Success 200 {object} services.ResultListResponse
// @Router /kraepelin/results [get]
func (h *KraepelinHandler) ListResults(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	results, err := h.kraepelinService.ListResults(h.requestContext(c), parseResultFilters(c), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetResult returns a stored result with its per-cell verdicts
// @Summary Get result detail
// @Tags kraepelin
// @Produce json
// @Param id path uint true "Result ID"
// @Success 200 {object} services.ResultDetail
// @Failure 404 {object} ErrorResponse
// @Router /kraepelin/results/{id} [get]
func (h *KraepelinHandler) GetResult(c *gin.Context) {
	resultID := parseIDParam(c, "id")
	if resultID == 0 {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	result, err := h.kraepelinService.GetResult(h.requestContext(c), resultID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStats summarizes the caller's results
// @Summary Result statistics
// @Tags kraepelin
// @Produce json
// @Success 200 {object} repositories.ResultStats
// @Router /kraepelin/results/stats [get]
func (h *KraepelinHandler) GetStats(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	stats, err := h.kraepelinService.GetStats(h.requestContext(c), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ===== IMPORT / EXPORT =====

// ExportResults downloads the caller's results as xlsx (default) or csv
// @Summary Export results
// @Tags kraepelin
// @Produce octet-stream
// @Param format query string false "xlsx or csv" default(xlsx)
// @Router /kraepelin/results/export [get]
func (h *KraepelinHandler) ExportResults(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "xlsx"))
	filters := parseResultFilters(c)
	stamp := time.Now().Format("20060102-150405")

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "xlsx":
		data, err = h.transferService.ExportResultsToExcel(h.requestContext(c), filters, userID)
		contentType = xlsxContentType
	case "csv":
		data, err = h.transferService.ExportResultsToCSV(h.requestContext(c), filters, userID)
		contentType = csvContentType
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unsupported export format",
			Details: "format must be xlsx or csv",
		})
		return
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.sendFile(c, fmt.Sprintf("kraepelin-results-%s.%s", stamp, format), contentType, data)
}

// ExportResultDetail downloads one result as a workbook
// @Summary Export result detail
// @Tags kraepelin
// @Produce octet-stream
// @Param id path uint true "Result ID"
// @Router /kraepelin/results/{id}/export [get]
func (h *KraepelinHandler) ExportResultDetail(c *gin.Context) {
	resultID := parseIDParam(c, "id")
	if resultID == 0 {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	data, err := h.transferService.ExportResultDetail(h.requestContext(c), resultID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.sendFile(c, fmt.Sprintf("kraepelin-result-%d.xlsx", resultID), xlsxContentType, data)
}

// ImportResult scores a workbook uploaded as multipart field "file"
// @Summary Import result from Excel
// @Tags kraepelin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workbook with Matrix and Answers sheets"
// @Success 201 {object} services.ResultResponse
// @Failure 400 {object} ErrorResponse
// @Router /kraepelin/results/import [post]
func (h *KraepelinHandler) ImportResult(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "File is required",
			Details: err.Error(),
		})
		return
	}
	if fileHeader.Size > maxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Message: "File too large",
			Details: fmt.Sprintf("maximum size is %d bytes", maxImportSize),
		})
		return
	}
	if ext := strings.ToLower(filepath.Ext(fileHeader.Filename)); ext != ".xlsx" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unsupported file type",
			Details: "only .xlsx workbooks can be imported",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Failed to read file", err)
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing Kraepelin result", "filename", fileHeader.Filename, "size", fileHeader.Size)

	result, err := h.transferService.ImportResultFromExcel(h.requestContext(c), file, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ===== HELPERS =====

func (h *KraepelinHandler) sendFile(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func (h *KraepelinHandler) handleServiceError(c *gin.Context, err error) {
	// Handle custom error types first
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Session not found",
			Code:    "session_not_found",
		})
	case errors.Is(err, services.ErrResultNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Result not found",
			Code:    "result_not_found",
		})
	case errors.Is(err, services.ErrSessionBusy):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session is busy, retry",
			Code:    "session_busy",
		})
	case errors.Is(err, services.ErrResultNotPersisted):
		h.LogError(c, err, "Result could not be stored")
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Result computed but not stored yet, retry finalize",
			Code:    "result_pending",
		})
	case errors.Is(err, kraepelin.ErrColumnClosed):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Column already closed",
			Details: err.Error(),
			Code:    "column_closed",
		})
	case errors.Is(err, kraepelin.ErrSessionAlreadyFinished):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session already finished",
			Code:    "session_finished",
		})
	case errors.Is(err, services.ErrSessionNotFinished):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session is still running",
			Code:    "session_running",
		})
	// Generic errors
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
	case services.IsConflict(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Resource conflict",
			Details: err.Error(),
		})
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Resource not found",
		})
	case services.IsUnauthorized(err):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Forbidden - insufficient permissions",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
