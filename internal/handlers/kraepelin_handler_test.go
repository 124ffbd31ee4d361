package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SAP-F-2025/psychotest-service/internal/errors"
	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
	"github.com/SAP-F-2025/psychotest-service/internal/repositories"
	"github.com/SAP-F-2025/psychotest-service/internal/services"
	"github.com/SAP-F-2025/psychotest-service/internal/utils"
)

// MockKraepelinService is a mock implementation of services.KraepelinService
type MockKraepelinService struct {
	mock.Mock
}

func (m *MockKraepelinService) StartSession(ctx context.Context, req *services.StartSessionRequest, userID uint) (*services.SessionResponse, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionResponse), args.Error(1)
}

func (m *MockKraepelinService) GetSession(ctx context.Context, sessionID string, userID uint) (*services.SessionResponse, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionResponse), args.Error(1)
}

func (m *MockKraepelinService) SubmitAnswer(ctx context.Context, sessionID string, req *services.AnswerRequest, userID uint) (*services.AnswerResponse, error) {
	args := m.Called(ctx, sessionID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AnswerResponse), args.Error(1)
}

func (m *MockKraepelinService) Undo(ctx context.Context, sessionID string, userID uint) (*services.SessionResponse, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionResponse), args.Error(1)
}

func (m *MockKraepelinService) Tick(ctx context.Context, sessionID string, userID uint) (*services.TickResponse, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TickResponse), args.Error(1)
}

func (m *MockKraepelinService) Finalize(ctx context.Context, sessionID string, userID uint) (*services.ResultResponse, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ResultResponse), args.Error(1)
}

func (m *MockKraepelinService) CancelSession(ctx context.Context, sessionID string, userID uint) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func (m *MockKraepelinService) SubmitResult(ctx context.Context, req *services.SubmitResultRequest, userID uint) (*services.ResultResponse, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ResultResponse), args.Error(1)
}

func (m *MockKraepelinService) GetResult(ctx context.Context, id uint, userID uint) (*services.ResultDetail, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ResultDetail), args.Error(1)
}

func (m *MockKraepelinService) ListResults(ctx context.Context, filters repositories.ResultFilters, userID uint) (*services.ResultListResponse, error) {
	args := m.Called(ctx, filters, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ResultListResponse), args.Error(1)
}

func (m *MockKraepelinService) GetStats(ctx context.Context, userID uint) (*repositories.ResultStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.ResultStats), args.Error(1)
}

// MockImportExportService is a mock implementation of services.ImportExportService
type MockImportExportService struct {
	mock.Mock
}

func (m *MockImportExportService) ExportResultsToExcel(ctx context.Context, filters repositories.ResultFilters, userID uint) ([]byte, error) {
	args := m.Called(ctx, filters, userID)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockImportExportService) ExportResultsToCSV(ctx context.Context, filters repositories.ResultFilters, userID uint) ([]byte, error) {
	args := m.Called(ctx, filters, userID)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockImportExportService) ExportResultDetail(ctx context.Context, resultID uint, userID uint) ([]byte, error) {
	args := m.Called(ctx, resultID, userID)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockImportExportService) ImportResultFromExcel(ctx context.Context, reader io.Reader, userID uint) (*services.ResultResponse, error) {
	args := m.Called(ctx, reader, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ResultResponse), args.Error(1)
}

func setupRouter() (*gin.Engine, *MockKraepelinService, *MockImportExportService) {
	gin.SetMode(gin.TestMode)
	svc := new(MockKraepelinService)
	transfer := new(MockImportExportService)
	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := gin.New()
	router.Use(utils.LoggerMiddleware(logger), utils.ContextLogger(logger))
	NewHandlerManager(svc, transfer, logger).SetupRoutes(router)
	return router, svc, transfer
}

func doRequest(router *gin.Engine, method, path string, body interface{}, userID string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _, _ := setupRouter()

	w := doRequest(router, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "psychotest-service")
	assert.NotEmpty(t, w.Header().Get(utils.RequestIDHeader))
}

func TestStartSession(t *testing.T) {
	t.Run("requires a user", func(t *testing.T) {
		router, svc, _ := setupRouter()

		w := doRequest(router, http.MethodPost, "/api/v1/kraepelin/sessions", nil, "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNotCalled(t, "StartSession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty body uses defaults", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("StartSession", mock.Anything, &services.StartSessionRequest{}, uint(3)).
			Return(&services.SessionResponse{ID: "abc", State: kraepelin.StateRunning}, nil)

		w := doRequest(router, http.MethodPost, "/api/v1/kraepelin/sessions", nil, "3")

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp services.SessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "abc", resp.ID)
	})

	t.Run("passes configuration and maps validation errors", func(t *testing.T) {
		router, svc, _ := setupRouter()
		verrs := apperrors.ValidationErrors{{Field: "rows", Message: "must be between 20 and 100"}}
		svc.On("StartSession", mock.Anything, mock.MatchedBy(func(req *services.StartSessionRequest) bool {
			return req.Rows == 5 && req.Columns == 30 && req.Difficulty == "sulit"
		}), uint(3)).Return(nil, verrs)

		w := doRequest(router, http.MethodPost, "/api/v1/kraepelin/sessions",
			map[string]interface{}{"rows": 5, "cols": 30, "difficulty": "sulit"}, "3")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "rows")
	})
}

func TestSubmitAnswer(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"ok", nil, http.StatusOK, ""},
		{"closed column", kraepelin.ErrColumnClosed, http.StatusConflict, "column_closed"},
		{"finished", kraepelin.ErrSessionAlreadyFinished, http.StatusConflict, "session_finished"},
		{"missing", services.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
		{"busy", services.ErrSessionBusy, http.StatusConflict, "session_busy"},
		{"digit", kraepelin.ErrOutOfRangeDigit, http.StatusBadRequest, ""},
		{"other user", services.NewPermissionError(3, "abc", "session", "submit_answer", "not yours"), http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, svc, _ := setupRouter()
			call := svc.On("SubmitAnswer", mock.Anything, "abc", mock.MatchedBy(func(req *services.AnswerRequest) bool {
				return req.Column == 2 && req.Answer != nil && *req.Answer == 7
			}), uint(3))
			if tt.err != nil {
				call.Return(nil, tt.err)
			} else {
				call.Return(&services.AnswerResponse{Row: 10, Column: 2}, nil)
			}

			w := doRequest(router, http.MethodPost, "/api/v1/kraepelin/sessions/abc/answers",
				map[string]interface{}{"column": 2, "answer": 7}, "3")

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantCode, resp.Code)
			}
		})
	}
}

func TestFinalize(t *testing.T) {
	t.Run("pending result is retryable", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("Finalize", mock.Anything, "abc", uint(3)).Return(nil, services.ErrResultNotPersisted)

		w := doRequest(router, http.MethodPost, "/api/v1/kraepelin/sessions/abc/finalize", nil, "3")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "5", w.Header().Get("Retry-After"))
	})

	t.Run("running session", func(t *testing.T) {
		router, svc, _ := setupRouter()
		svc.On("Finalize", mock.Anything, "abc", uint(3)).Return(nil, services.ErrSessionNotFinished)

		w := doRequest(router, http.MethodPost, "/api/v1/kraepelin/sessions/abc/finalize", nil, "3")

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestCancelSession(t *testing.T) {
	router, svc, _ := setupRouter()
	svc.On("CancelSession", mock.Anything, "abc", uint(3)).Return(nil)
	svc.On("CancelSession", mock.Anything, "done", uint(3)).
		Return(services.NewBusinessRuleError("finished_session", "finalize it instead", nil))

	w := doRequest(router, http.MethodDelete, "/api/v1/kraepelin/sessions/abc", nil, "3")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(router, http.MethodDelete, "/api/v1/kraepelin/sessions/done", nil, "3")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListResults_ParsesFilters(t *testing.T) {
	router, svc, _ := setupRouter()
	svc.On("ListResults", mock.Anything, mock.MatchedBy(func(f repositories.ResultFilters) bool {
		return f.Limit == 10 && f.Offset == 20 &&
			f.Difficulty != nil && *f.Difficulty == kraepelin.DifficultyHard &&
			f.MinScore != nil && *f.MinScore == 50 &&
			f.DateFrom != nil && f.DateFrom.Day() == 3 &&
			f.SortBy == "overall_score"
	}), uint(3)).Return(&services.ResultListResponse{Total: 0}, nil)

	w := doRequest(router, http.MethodGet,
		"/api/v1/kraepelin/results?page=3&size=10&difficulty=sulit&min_score=50&date_from=2026-01-03&sort_by=overall_score", nil, "3")

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestGetResult(t *testing.T) {
	router, svc, _ := setupRouter()
	svc.On("GetResult", mock.Anything, uint(8), uint(3)).Return(nil, services.ErrResultNotFound)
	svc.On("GetStats", mock.Anything, uint(3)).Return(&repositories.ResultStats{TotalResults: 4}, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/kraepelin/results/8", nil, "3")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/kraepelin/results/abc", nil, "3")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/kraepelin/results/stats", nil, "3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_results":4`)
}

func TestExportResults(t *testing.T) {
	router, _, transfer := setupRouter()
	transfer.On("ExportResultsToCSV", mock.Anything, mock.Anything, uint(3)).Return([]byte("Result ID\n"), nil)

	w := doRequest(router, http.MethodGet, "/api/v1/kraepelin/results/export?format=csv", nil, "3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, csvContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")

	w = doRequest(router, http.MethodGet, "/api/v1/kraepelin/results/export?format=pdf", nil, "3")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportResult(t *testing.T) {
	router, _, transfer := setupRouter()
	transfer.On("ImportResultFromExcel", mock.Anything, mock.Anything, uint(3)).
		Return(&services.ResultResponse{ID: 12}, nil)

	newUpload := func(filename string) *http.Request {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, _ := writer.CreateFormFile("file", filename)
		part.Write([]byte("workbook"))
		writer.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/kraepelin/results/import", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set(UserIDHeader, "3")
		return req
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newUpload("paper.xlsx"))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, newUpload("paper.txt"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
