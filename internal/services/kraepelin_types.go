package services

import (
	"time"

	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
	"github.com/SAP-F-2025/psychotest-service/internal/models"
	"github.com/SAP-F-2025/psychotest-service/internal/validator"
)

// ===== REQUESTS =====

// StartSessionRequest configures a new test. Zero values take the configured defaults.
type StartSessionRequest struct {
	Rows          int    `json:"rows" validate:"min=0"`
	Columns       int    `json:"cols" validate:"min=0"`
	TimePerColumn int    `json:"time_per_column" validate:"min=0"` // seconds
	Difficulty    string `json:"difficulty" validate:"kraepelin_difficulty"`
	AssignmentID  *uint  `json:"assignment_id"`
}

func (r *StartSessionRequest) ValidateBusinessRules(bv *validator.BusinessValidator) ValidationErrors {
	errs := bv.ValidateDimensions(r.Rows, r.Columns)
	return append(errs, bv.ValidateTimePerColumn(r.TimePerColumn)...)
}

// AnswerRequest enters one digit into the open column
type AnswerRequest struct {
	Column int  `json:"column" validate:"min=0"`
	Answer *int `json:"answer" validate:"required,answer_digit"`
}

// SubmitResultRequest is a whole test scored on the client and re-scored here
type SubmitResultRequest struct {
	Answers       kraepelin.AnswerGrid `json:"answers" validate:"required"`
	NumberMatrix  kraepelin.Matrix     `json:"number_matrix" validate:"required"`
	TimeElapsed   int                  `json:"time_elapsed" validate:"min=0"` // seconds
	Rows          int                  `json:"rows" validate:"required"`
	Columns       int                  `json:"cols" validate:"required"`
	Difficulty    string               `json:"difficulty" validate:"kraepelin_difficulty"`
	TimePerColumn int                  `json:"time_per_column" validate:"min=0"` // seconds, optional
	AssignmentID  *uint                `json:"assignment_id"`
}

func (r *SubmitResultRequest) ValidateBusinessRules(bv *validator.BusinessValidator) ValidationErrors {
	errs := bv.ValidateDimensions(r.Rows, r.Columns)
	if r.TimePerColumn != 0 {
		errs = append(errs, bv.ValidateTimePerColumn(r.TimePerColumn)...)
	}
	errs = append(errs, bv.ValidateTimeElapsed(r.TimeElapsed, r.Columns, r.TimePerColumn)...)
	if len(errs) > 0 {
		return errs
	}
	if matrixErrs := bv.ValidateMatrix(r.NumberMatrix, r.Rows, r.Columns); len(matrixErrs) > 0 {
		return matrixErrs
	}
	return bv.ValidateAnswers(r.Answers, r.NumberMatrix)
}

// ===== RESPONSES =====

// SessionResponse is the client view of a live session
type SessionResponse struct {
	ID             string                     `json:"id"`
	State          kraepelin.SessionState     `json:"state"`
	Rows           int                        `json:"rows"`
	Columns        int                        `json:"cols"`
	Difficulty     kraepelin.Difficulty       `json:"difficulty"`
	TimePerColumn  int                        `json:"time_per_column"`
	NumberMatrix   kraepelin.Matrix           `json:"number_matrix"`
	Answers        kraepelin.AnswerGrid       `json:"answers"`
	CurrentRow     int                        `json:"current_row"`
	CurrentColumn  int                        `json:"current_column"`
	TimeRemaining  int64                      `json:"time_remaining_ms"`
	TimeElapsed    int                        `json:"time_elapsed"`
	Tally          kraepelin.Tally            `json:"tally"`
	ColumnAccuracy []kraepelin.ColumnAccuracy `json:"column_accuracy"`
	StartedAt      time.Time                  `json:"started_at"`
	Result         *ResultSummary             `json:"result,omitempty"`
	ResultID       *uint                      `json:"result_id,omitempty"`
	// ResultPending is true when the session finished but storing the result failed
	ResultPending bool `json:"result_pending,omitempty"`
}

// AnswerResponse reports the verdict of one entered digit
type AnswerResponse struct {
	Row     int                  `json:"row"`
	Column  int                  `json:"column"`
	Cell    kraepelin.CellResult `json:"cell"`
	Session *SessionResponse     `json:"session"`
}

// TickResponse reports how many columns a tick closed
type TickResponse struct {
	ClosedColumns int              `json:"closed_columns"`
	Session       *SessionResponse `json:"session"`
}

// ResultSummary is the outbound result payload
type ResultSummary struct {
	CorrectAnswers    int                        `json:"correctAnswers"`
	WrongAnswers      int                        `json:"wrongAnswers"`
	Unanswered        int                        `json:"unanswered"`
	TotalQuestions    int                        `json:"totalQuestions"`
	RowPerformance    []int                      `json:"rowPerformance"`
	ColumnPerformance []int                      `json:"columnPerformance"`
	ColumnAccuracy    []kraepelin.ColumnAccuracy `json:"columnAccuracy"`
	Metrics           kraepelin.Metrics          `json:"metrics"`
}

// ResultResponse is a stored result with its summary
type ResultResponse struct {
	ID            uint                 `json:"id"`
	UserID        uint                 `json:"user_id"`
	AssignmentID  *uint                `json:"assignment_id,omitempty"`
	SessionID     *string              `json:"session_id,omitempty"`
	Rows          int                  `json:"rows"`
	Columns       int                  `json:"cols"`
	Difficulty    kraepelin.Difficulty `json:"difficulty"`
	TimePerColumn int                  `json:"time_per_column"`
	TimeElapsed   int                  `json:"time_elapsed"`
	Summary       ResultSummary        `json:"summary"`
	CreatedAt     time.Time            `json:"created_at"`
}

// ResultDetail is a stored result replayed through the scorer
type ResultDetail struct {
	ResultResponse
	NumberMatrix kraepelin.Matrix         `json:"number_matrix"`
	Answers      kraepelin.AnswerGrid     `json:"answers"`
	Heatmap      [][]kraepelin.CellResult `json:"heatmap"`
	// Consistent is false when replaying the stored answers disagrees with the stored counts
	Consistent bool `json:"consistent"`
}

type ResultListResponse struct {
	Results []*ResultResponse `json:"results"`
	Total   int64             `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

// ===== MAPPERS =====

func newResultSummary(r kraepelin.Result) ResultSummary {
	return ResultSummary{
		CorrectAnswers:    r.Score.Correct,
		WrongAnswers:      r.Score.Wrong,
		Unanswered:        r.Score.Unanswered,
		TotalQuestions:    r.TotalQuestions,
		RowPerformance:    r.Vectors.RowCounts,
		ColumnPerformance: r.Vectors.ColumnCounts,
		ColumnAccuracy:    r.Vectors.ColumnAccuracy,
		Metrics:           r.Metrics,
	}
}

func newSessionResponse(live *models.LiveSession, now time.Time) *SessionResponse {
	s := live.Session
	resp := &SessionResponse{
		ID:             live.ID,
		State:          s.State,
		Rows:           s.Matrix.Rows(),
		Columns:        s.Matrix.Columns(),
		Difficulty:     live.Difficulty,
		TimePerColumn:  int(s.TimePerColumn / time.Second),
		NumberMatrix:   s.Matrix,
		Answers:        s.Answers,
		CurrentRow:     s.CurrentRow,
		CurrentColumn:  s.CurrentColumn,
		TimeRemaining:  s.TimeRemaining(now).Milliseconds(),
		TimeElapsed:    int(s.Elapsed(now) / time.Second),
		Tally:          s.Tally,
		ColumnAccuracy: s.ColumnAccuracy,
		StartedAt:      s.StartedAt,
		ResultID:       live.ResultID,
	}
	if s.Result != nil {
		summary := newResultSummary(*s.Result)
		resp.Result = &summary
		resp.ResultPending = !live.Persisted()
	}
	return resp
}

func newResultResponse(row *models.KraepelinResult) (*ResultResponse, error) {
	vectors, err := row.Vectors()
	if err != nil {
		return nil, err
	}
	return &ResultResponse{
		ID:            row.ID,
		UserID:        row.UserID,
		AssignmentID:  row.AssignmentID,
		SessionID:     row.SessionID,
		Rows:          row.Rows,
		Columns:       row.Columns,
		Difficulty:    row.Difficulty,
		TimePerColumn: row.TimePerColumn,
		TimeElapsed:   row.TimeElapsed,
		Summary: newResultSummary(kraepelin.Result{
			Score:          row.Score(),
			Vectors:        vectors,
			Metrics:        row.Metrics(),
			TotalQuestions: row.TotalQuestions,
		}),
		CreatedAt: row.CreatedAt,
	}, nil
}
