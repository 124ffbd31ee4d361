package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
	"github.com/SAP-F-2025/psychotest-service/internal/repositories"
)

// Sheet names shared by export and import
const (
	sheetSummary     = "Summary"
	sheetResults     = "Results"
	sheetMatrix      = "Matrix"
	sheetAnswers     = "Answers"
	sheetPerformance = "Performance"

	exportPageSize = 100
)

var resultHeaders = []string{
	"Result ID", "Created At", "Difficulty", "Rows", "Columns", "Time Per Column (s)", "Time Elapsed (s)",
	"Correct", "Wrong", "Unanswered", "Accuracy", "Completion", "Consistency", "Fatigue", "Overall",
}

// ImportExportService moves Kraepelin results in and out of spreadsheets
type ImportExportService interface {
	// Export operations
	ExportResultsToExcel(ctx context.Context, filters repositories.ResultFilters, userID uint) ([]byte, error)
	ExportResultsToCSV(ctx context.Context, filters repositories.ResultFilters, userID uint) ([]byte, error)
	ExportResultDetail(ctx context.Context, resultID uint, userID uint) ([]byte, error)

	// Import operations
	ImportResultFromExcel(ctx context.Context, reader io.Reader, userID uint) (*ResultResponse, error)
}

type importExportService struct {
	kraepelin KraepelinService
	logger    *slog.Logger
	log       *ServiceLogger
}

func NewImportExportService(kraepelin KraepelinService, logger *slog.Logger) ImportExportService {
	return &importExportService{
		kraepelin: kraepelin,
		logger:    logger,
		log:       NewServiceLogger(logger, LogConfig{Service: "psychotest-service", Component: "import_export"}),
	}
}

// ===== EXPORT OPERATIONS =====

func (s *importExportService) ExportResultsToExcel(ctx context.Context, filters repositories.ResultFilters, userID uint) ([]byte, error) {
	results, err := s.collectResults(ctx, filters, userID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetResults); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	if err := writeRow(f, sheetResults, 1, toInterfaces(resultHeaders)); err != nil {
		return nil, err
	}
	for i, result := range results {
		if err := writeRow(f, sheetResults, i+2, resultRecord(result)); err != nil {
			return nil, err
		}
	}

	s.auditExport(ctx, "export_results", userID, "", map[string]interface{}{"format": "xlsx", "count": len(results)})
	return writeWorkbook(f)
}

func (s *importExportService) ExportResultsToCSV(ctx context.Context, filters repositories.ResultFilters, userID uint) ([]byte, error) {
	results, err := s.collectResults(ctx, filters, userID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(resultHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		record := resultRecord(result)
		row := make([]string, len(record))
		for i, v := range record {
			row[i] = fmt.Sprint(v)
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	s.auditExport(ctx, "export_results", userID, "", map[string]interface{}{"format": "csv", "count": len(results)})
	return buf.Bytes(), nil
}

// ExportResultDetail writes one result as a workbook: summary, the stimulus
// matrix, the answers coloured by verdict and the performance vectors.
func (s *importExportService) ExportResultDetail(ctx context.Context, resultID uint, userID uint) ([]byte, error) {
	detail, err := s.kraepelin.GetResult(ctx, resultID, userID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	for _, name := range []string{sheetMatrix, sheetAnswers, sheetPerformance} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
		}
	}

	if err := writeSummarySheet(f, detail); err != nil {
		return nil, err
	}
	if err := writeMatrixSheet(f, detail.NumberMatrix); err != nil {
		return nil, err
	}
	if err := writeAnswersSheet(f, detail.Heatmap); err != nil {
		return nil, err
	}
	if err := writePerformanceSheet(f, detail.Summary); err != nil {
		return nil, err
	}

	s.auditExport(ctx, "export_result_detail", userID, strconv.FormatUint(uint64(resultID), 10), map[string]interface{}{"format": "xlsx"})
	return writeWorkbook(f)
}

// ===== IMPORT OPERATIONS =====

// ImportResultFromExcel scores a test taken on paper and typed into a
// workbook laid out like ExportResultDetail: a Matrix sheet, an Answers sheet
// with blank cells for skipped answers and an optional Summary sheet of
// key/value rows (difficulty, time_elapsed, time_per_column).
func (s *importExportService) ImportResultFromExcel(ctx context.Context, reader io.Reader, userID uint) (*ResultResponse, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportInvalidFile, err)
	}
	defer f.Close()

	matrixRows, err := f.GetRows(sheetMatrix)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s sheet", ErrImportInvalidFile, sheetMatrix)
	}
	matrix, err := parseMatrix(matrixRows)
	if err != nil {
		return nil, err
	}

	answerRows, err := f.GetRows(sheetAnswers)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s sheet", ErrImportInvalidFile, sheetAnswers)
	}
	answers, err := parseAnswers(answerRows, matrix)
	if err != nil {
		return nil, err
	}

	req := &SubmitResultRequest{
		Answers:      answers,
		NumberMatrix: matrix,
		Rows:         matrix.Rows(),
		Columns:      matrix.Columns(),
	}

	// Summary is optional
	if summaryRows, err := f.GetRows(sheetSummary); err == nil {
		info := parseKeyValues(summaryRows)
		req.Difficulty = info["difficulty"]
		if req.TimeElapsed, err = summaryInt(info, "time_elapsed"); err != nil {
			return nil, err
		}
		if req.TimePerColumn, err = summaryInt(info, "time_per_column"); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Importing paper test",
		"user_id", userID,
		"rows", req.Rows,
		"cols", req.Columns)

	return s.kraepelin.SubmitResult(ctx, req, userID)
}

// ===== HELPER FUNCTIONS =====

func (s *importExportService) auditExport(ctx context.Context, operation string, userID uint, resourceID string, metadata map[string]interface{}) {
	s.log.WithOperation(ctx, operation, userID).LogAudit(AuditEventExport, resourceID, "result", metadata)
}

func (s *importExportService) collectResults(ctx context.Context, filters repositories.ResultFilters, userID uint) ([]*ResultResponse, error) {
	filters.Limit = exportPageSize
	filters.Offset = 0

	var all []*ResultResponse
	for {
		page, err := s.kraepelin.ListResults(ctx, filters, userID)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		filters.Offset += len(page.Results)
		if len(page.Results) == 0 || int64(filters.Offset) >= page.Total {
			return all, nil
		}
	}
}

func resultRecord(r *ResultResponse) []interface{} {
	m := r.Summary.Metrics
	return []interface{}{
		r.ID,
		r.CreatedAt.Format("2006-01-02 15:04:05"),
		string(r.Difficulty),
		r.Rows,
		r.Columns,
		r.TimePerColumn,
		r.TimeElapsed,
		r.Summary.CorrectAnswers,
		r.Summary.WrongAnswers,
		r.Summary.Unanswered,
		round2(m.Accuracy),
		round2(m.Completion),
		round2(m.Consistency),
		round2(m.Fatigue),
		round2(m.Overall),
	}
}

func writeSummarySheet(f *excelize.File, detail *ResultDetail) error {
	m := detail.Summary.Metrics
	rows := [][]interface{}{
		{"result_id", detail.ID},
		{"difficulty", string(detail.Difficulty)},
		{"rows", detail.Rows},
		{"cols", detail.Columns},
		{"time_per_column", detail.TimePerColumn},
		{"time_elapsed", detail.TimeElapsed},
		{"correct", detail.Summary.CorrectAnswers},
		{"wrong", detail.Summary.WrongAnswers},
		{"unanswered", detail.Summary.Unanswered},
		{"accuracy", round2(m.Accuracy)},
		{"completion", round2(m.Completion)},
		{"consistency", round2(m.Consistency)},
		{"fatigue", round2(m.Fatigue)},
		{"overall", round2(m.Overall)},
	}
	for i, row := range rows {
		if err := writeRow(f, sheetSummary, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func writeMatrixSheet(f *excelize.File, m kraepelin.Matrix) error {
	for r, row := range m {
		values := make([]interface{}, len(row))
		for c, v := range row {
			values[c] = v
		}
		if err := writeRow(f, sheetMatrix, r+1, values); err != nil {
			return err
		}
	}
	return nil
}

func writeAnswersSheet(f *excelize.File, heatmap [][]kraepelin.CellResult) error {
	correctStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	wrongStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	for r, row := range heatmap {
		for c, cell := range row {
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if !cell.UserAnswer.Valid {
				continue
			}
			if err := f.SetCellValue(sheetAnswers, name, int(cell.UserAnswer.Int8)); err != nil {
				return err
			}
			style := wrongStyle
			if cell.Status == kraepelin.CellCorrect {
				style = correctStyle
			}
			if err := f.SetCellStyle(sheetAnswers, name, name, style); err != nil {
				return err
			}
		}
	}
	return nil
}

func writePerformanceSheet(f *excelize.File, summary ResultSummary) error {
	if err := writeRow(f, sheetPerformance, 1, []interface{}{"Column", "Answered", "Correct", "Total", "Row", "Answered"}); err != nil {
		return err
	}

	accuracy := make(map[int]kraepelin.ColumnAccuracy, len(summary.ColumnAccuracy))
	for _, a := range summary.ColumnAccuracy {
		accuracy[a.Column] = a
	}
	for i, count := range summary.ColumnPerformance {
		a := accuracy[i+1]
		if err := writeRow(f, sheetPerformance, i+2, []interface{}{i + 1, count, a.Correct, a.Total}); err != nil {
			return err
		}
	}
	for i, count := range summary.RowPerformance {
		for c, v := range []interface{}{i + 1, count} {
			name, err := excelize.CoordinatesToCellName(5+c, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetPerformance, name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func writeWorkbook(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func parseMatrix(rows [][]string) (kraepelin.Matrix, error) {
	m := make(kraepelin.Matrix, 0, len(rows))
	for r, row := range rows {
		values := make([]int, len(row))
		for c, raw := range row {
			v, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("%w: matrix cell %d,%d is not a digit", ErrImportInvalidFile, r+1, c+1)
			}
			values[c] = v
		}
		m = append(m, values)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// parseAnswers reads the answer sheet. Trailing blank cells and rows are not
// returned by excelize, so the grid is padded to the matrix shape.
func parseAnswers(rows [][]string, m kraepelin.Matrix) (kraepelin.AnswerGrid, error) {
	if len(rows) > m.WorkingRows() {
		return nil, fmt.Errorf("%w: answers have %d rows, expected at most %d", kraepelin.ErrMalformedAnswers, len(rows), m.WorkingRows())
	}
	grid := kraepelin.NewAnswerGrid(m)
	for r, row := range rows {
		if len(row) > m.Columns() {
			return nil, fmt.Errorf("%w: answer row %d has %d cells, expected at most %d", kraepelin.ErrMalformedAnswers, r+1, len(row), m.Columns())
		}
		for c, raw := range row {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			v, err := strconv.Atoi(raw)
			if err != nil || kraepelin.ValidateDigit(v) != nil {
				return nil, fmt.Errorf("%w: answer cell %d,%d", kraepelin.ErrOutOfRangeDigit, r+1, c+1)
			}
			grid[r][c] = null.Int8From(int8(v))
		}
	}
	return grid, nil
}

func parseKeyValues(rows [][]string) map[string]string {
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) >= 2 {
			out[strings.ToLower(strings.TrimSpace(row[0]))] = strings.TrimSpace(row[1])
		}
	}
	return out
}

// summaryInt reads an optional integer from the Summary sheet; a blank or
// missing value is 0
func summaryInt(info map[string]string, key string) (int, error) {
	raw, ok := info[key]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a whole number", ErrImportInvalidFile, key, raw)
	}
	return v, nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
