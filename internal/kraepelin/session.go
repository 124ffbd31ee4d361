package kraepelin

import (
	"fmt"
	"time"
)

// Per-column timer bounds accepted at session creation.
const (
	MinTimePerColumn = 5 * time.Second
	MaxTimePerColumn = 120 * time.Second
)

// ValidateTimePerColumn rejects column timers outside [MinTimePerColumn, MaxTimePerColumn].
func ValidateTimePerColumn(d time.Duration) error {
	if d < MinTimePerColumn || d > MaxTimePerColumn {
		return fmt.Errorf("%w: time per column %s outside [%s,%s]", ErrInvalidConfiguration, d, MinTimePerColumn, MaxTimePerColumn)
	}
	return nil
}

// SessionState is the lifecycle phase of a Session.
type SessionState string

const (
	StateNotStarted SessionState = "not_started"
	StateRunning    SessionState = "running"
	StateFinished   SessionState = "finished"
)

// Tally is the running count kept while answers are entered.
type Tally struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
}

// Session drives one test-taker through a matrix column by column. The cursor
// starts at the bottom working row of column 0 and moves up; a column closes
// when row 0 is answered or its deadline passes.
//
// A Session is not safe for concurrent use. Callers serialize access per
// session; every operation takes the current time so the deadline arithmetic
// stays with the Session and scheduling stays with the caller.
type Session struct {
	Matrix         Matrix           `json:"matrix"`
	Answers        AnswerGrid       `json:"answers"`
	TimePerColumn  time.Duration    `json:"time_per_column"`
	State          SessionState     `json:"state"`
	CurrentRow     int              `json:"current_row"`
	CurrentColumn  int              `json:"current_column"`
	Deadline       time.Time        `json:"deadline"`
	Tally          Tally            `json:"tally"`
	ColumnAccuracy []ColumnAccuracy `json:"column_accuracy"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
	Result         *Result          `json:"result,omitempty"`
}

// NewSession prepares a NotStarted session over m.
func NewSession(m Matrix, timePerColumn time.Duration) (*Session, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if timePerColumn <= 0 {
		return nil, fmt.Errorf("%w: time per column must be positive", ErrInvalidConfiguration)
	}
	return &Session{
		Matrix:         m,
		Answers:        NewAnswerGrid(m),
		TimePerColumn:  timePerColumn,
		State:          StateNotStarted,
		CurrentRow:     m.WorkingRows() - 1,
		ColumnAccuracy: []ColumnAccuracy{},
	}, nil
}

// Start moves the session to Running and arms the first column deadline.
func (s *Session) Start(now time.Time) error {
	switch s.State {
	case StateRunning:
		return ErrSessionAlreadyStarted
	case StateFinished:
		return ErrSessionAlreadyFinished
	}
	s.State = StateRunning
	s.StartedAt = now
	s.CurrentRow = s.Matrix.WorkingRows() - 1
	s.CurrentColumn = 0
	s.Deadline = now.Add(s.TimePerColumn)
	return nil
}

// Tick closes every column whose deadline is not after now and reports how
// many were closed. Each expired column hands its deadline on to the next, so
// a late tick catches up without drifting.
func (s *Session) Tick(now time.Time) (int, error) {
	if err := s.checkRunning(); err != nil {
		return 0, err
	}
	return s.expire(now), nil
}

// Answer records digit in the cell under the cursor. column is the column the
// caller believes is open; if it has already closed the answer is dropped with
// ErrColumnClosed.
func (s *Session) Answer(now time.Time, column, digit int) (CellResult, error) {
	if err := s.checkRunning(); err != nil {
		return CellResult{}, err
	}
	if err := ValidateDigit(digit); err != nil {
		return CellResult{}, err
	}
	s.expire(now)
	if s.State == StateFinished || column != s.CurrentColumn {
		return CellResult{}, fmt.Errorf("%w: column %d, open column %d", ErrColumnClosed, column, s.CurrentColumn)
	}

	row, col := s.CurrentRow, s.CurrentColumn
	if _, ok := s.Answers.At(row, col); ok {
		s.retract(row, col)
	}
	s.Answers.Set(row, col, digit)
	result := Classify(s.Matrix, s.Answers, row, col)
	if result.Status == CellCorrect {
		s.Tally.Correct++
	} else {
		s.Tally.Wrong++
	}

	if row == 0 {
		s.advanceColumn(now)
	} else {
		s.CurrentRow--
	}
	return result, nil
}

// Undo is backspace: it clears the cell under the cursor if it holds an
// answer, otherwise it steps the cursor back down one row in the same column
// and clears that cell. Closed columns are never reopened.
func (s *Session) Undo(now time.Time) error {
	if err := s.checkRunning(); err != nil {
		return err
	}
	s.expire(now)
	if s.State == StateFinished {
		return ErrSessionAlreadyFinished
	}

	row, col := s.CurrentRow, s.CurrentColumn
	if _, ok := s.Answers.At(row, col); ok {
		s.retract(row, col)
		return nil
	}
	if row >= s.Matrix.WorkingRows()-1 {
		return nil
	}
	s.CurrentRow++
	if _, ok := s.Answers.At(s.CurrentRow, col); ok {
		s.retract(s.CurrentRow, col)
	}
	return nil
}

// TimeRemaining is the time left in the open column.
func (s *Session) TimeRemaining(now time.Time) time.Duration {
	if s.State != StateRunning {
		return 0
	}
	if left := s.Deadline.Sub(now); left > 0 {
		return left
	}
	return 0
}

// Elapsed is the time between Start and now, or Start and finish.
func (s *Session) Elapsed(now time.Time) time.Duration {
	switch s.State {
	case StateNotStarted:
		return 0
	case StateFinished:
		return s.FinishedAt.Sub(s.StartedAt)
	default:
		return now.Sub(s.StartedAt)
	}
}

func (s *Session) checkRunning() error {
	switch s.State {
	case StateNotStarted:
		return ErrSessionNotStarted
	case StateFinished:
		return ErrSessionAlreadyFinished
	}
	return nil
}

func (s *Session) expire(now time.Time) int {
	closed := 0
	for s.State == StateRunning && !now.Before(s.Deadline) {
		s.advanceColumn(s.Deadline)
		closed++
	}
	return closed
}

// retract clears (row, col) and takes its verdict back out of the tally.
func (s *Session) retract(row, col int) {
	switch Classify(s.Matrix, s.Answers, row, col).Status {
	case CellCorrect:
		s.Tally.Correct--
	case CellWrong:
		s.Tally.Wrong--
	}
	s.Answers.Clear(row, col)
}

// advanceColumn closes the open column. The next deadline is measured from
// base: the expired deadline on timeout, the answer time on completion.
func (s *Session) advanceColumn(base time.Time) {
	if acc := columnAccuracy(s.Matrix, s.Answers, s.CurrentColumn); acc.Total > 0 {
		s.ColumnAccuracy = append(s.ColumnAccuracy, acc)
	}
	s.CurrentRow = s.Matrix.WorkingRows() - 1
	s.CurrentColumn++
	if s.CurrentColumn >= s.Matrix.Columns() {
		s.finish(base)
		return
	}
	s.Deadline = base.Add(s.TimePerColumn)
}

func (s *Session) finish(at time.Time) {
	s.State = StateFinished
	s.FinishedAt = at
	s.Deadline = time.Time{}
	result := Evaluate(s.Matrix, s.Answers)
	s.Result = &result
}
