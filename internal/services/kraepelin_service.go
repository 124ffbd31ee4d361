package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/psychotest-service/internal/cache"
	"github.com/SAP-F-2025/psychotest-service/internal/config"
	"github.com/SAP-F-2025/psychotest-service/internal/events"
	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
	"github.com/SAP-F-2025/psychotest-service/internal/models"
	"github.com/SAP-F-2025/psychotest-service/internal/repositories"
	"github.com/SAP-F-2025/psychotest-service/internal/validator"
)

const (
	persistAttempts = 3
	persistBackoff  = 50 * time.Millisecond
)

// KraepelinService runs live Kraepelin sessions and manages stored results
type KraepelinService interface {
	// Live sessions
	StartSession(ctx context.Context, req *StartSessionRequest, userID uint) (*SessionResponse, error)
	GetSession(ctx context.Context, sessionID string, userID uint) (*SessionResponse, error)
	SubmitAnswer(ctx context.Context, sessionID string, req *AnswerRequest, userID uint) (*AnswerResponse, error)
	Undo(ctx context.Context, sessionID string, userID uint) (*SessionResponse, error)
	Tick(ctx context.Context, sessionID string, userID uint) (*TickResponse, error)
	Finalize(ctx context.Context, sessionID string, userID uint) (*ResultResponse, error)
	CancelSession(ctx context.Context, sessionID string, userID uint) error

	// Stored results
	SubmitResult(ctx context.Context, req *SubmitResultRequest, userID uint) (*ResultResponse, error)
	GetResult(ctx context.Context, id uint, userID uint) (*ResultDetail, error)
	ListResults(ctx context.Context, filters repositories.ResultFilters, userID uint) (*ResultListResponse, error)
	GetStats(ctx context.Context, userID uint) (*repositories.ResultStats, error)
}

type kraepelinService struct {
	repo      repositories.Repository
	sessions  cache.SessionStore
	publisher events.EventPublisher
	generator *kraepelin.Generator
	defaults  config.KraepelinConfig
	logger    *slog.Logger
	log       *ServiceLogger
	validator *validator.Validator
	now       func() time.Time
}

func NewKraepelinService(
	repo repositories.Repository,
	sessions cache.SessionStore,
	publisher events.EventPublisher,
	generator *kraepelin.Generator,
	defaults config.KraepelinConfig,
	logger *slog.Logger,
	validator *validator.Validator,
) KraepelinService {
	return &kraepelinService{
		repo:      repo,
		sessions:  sessions,
		publisher: publisher,
		generator: generator,
		defaults:  defaults,
		logger:    logger,
		log:       NewServiceLogger(logger, LogConfig{Service: "psychotest-service", Component: "kraepelin"}),
		validator: validator,
		now:       time.Now,
	}
}

// ===== LIVE SESSIONS =====

func (s *kraepelinService) StartSession(ctx context.Context, req *StartSessionRequest, userID uint) (resp *SessionResponse, err error) {
	op := s.log.WithOperation(ctx, "start_session", userID)
	sessionID := uuid.NewString()
	defer func() { op.LogResult(sessionID, "session", err) }()

	s.applyDefaults(req)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	difficulty, err := kraepelin.ParseDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}

	matrix, err := s.generator.Generate(req.Rows, req.Columns, difficulty)
	if err != nil {
		return nil, err
	}

	session, err := kraepelin.NewSession(matrix, time.Duration(req.TimePerColumn)*time.Second)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := session.Start(now); err != nil {
		return nil, err
	}

	live := &models.LiveSession{
		ID:           sessionID,
		UserID:       userID,
		AssignmentID: req.AssignmentID,
		Difficulty:   difficulty,
		Session:      session,
		CreatedAt:    now,
	}
	if err := s.sessions.Save(ctx, live); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.publish(ctx, events.NewSessionStartedEvent(events.SessionStartedEvent{
		SessionID:     live.ID,
		UserID:        userID,
		AssignmentID:  req.AssignmentID,
		Rows:          req.Rows,
		Columns:       req.Columns,
		Difficulty:    difficulty,
		TimePerColumn: req.TimePerColumn,
		StartedAt:     now,
	}))

	return newSessionResponse(live, now), nil
}

func (s *kraepelinService) GetSession(ctx context.Context, sessionID string, userID uint) (*SessionResponse, error) {
	live, now, err := s.withSession(ctx, "get_session", sessionID, userID, func(live *models.LiveSession, now time.Time) error {
		if live.Session.State == kraepelin.StateRunning {
			_, err := live.Session.Tick(now)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newSessionResponse(live, now), nil
}

func (s *kraepelinService) SubmitAnswer(ctx context.Context, sessionID string, req *AnswerRequest, userID uint) (*AnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	resp := &AnswerResponse{Column: req.Column}
	live, now, err := s.withSession(ctx, "submit_answer", sessionID, userID, func(live *models.LiveSession, now time.Time) error {
		resp.Row = live.Session.CurrentRow
		cell, err := live.Session.Answer(now, req.Column, *req.Answer)
		if err != nil {
			return err
		}
		resp.Cell = cell
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp.Session = newSessionResponse(live, now)
	return resp, nil
}

func (s *kraepelinService) Undo(ctx context.Context, sessionID string, userID uint) (*SessionResponse, error) {
	live, now, err := s.withSession(ctx, "undo", sessionID, userID, func(live *models.LiveSession, now time.Time) error {
		return live.Session.Undo(now)
	})
	if err != nil {
		return nil, err
	}
	return newSessionResponse(live, now), nil
}

func (s *kraepelinService) Tick(ctx context.Context, sessionID string, userID uint) (*TickResponse, error) {
	resp := &TickResponse{}
	live, now, err := s.withSession(ctx, "tick", sessionID, userID, func(live *models.LiveSession, now time.Time) error {
		closed, err := live.Session.Tick(now)
		resp.ClosedColumns = closed
		return err
	})
	if err != nil {
		return nil, err
	}
	resp.Session = newSessionResponse(live, now)
	return resp, nil
}

// Finalize stores the result of a finished session. It is safe to repeat:
// a stored result is returned as is, a failed store is retried.
func (s *kraepelinService) Finalize(ctx context.Context, sessionID string, userID uint) (*ResultResponse, error) {
	live, _, err := s.withSession(ctx, "finalize", sessionID, userID, func(live *models.LiveSession, now time.Time) error {
		if live.Session.State == kraepelin.StateRunning {
			if _, err := live.Session.Tick(now); err != nil {
				return err
			}
		}
		if live.Session.State != kraepelin.StateFinished {
			return ErrSessionNotFinished
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !live.Persisted() {
		return nil, ErrResultNotPersisted
	}

	row, err := s.repo.KraepelinResult().GetByID(ctx, nil, *live.ResultID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored result: %w", err)
	}
	return newResultResponse(row)
}

// CancelSession discards a session that has not been stored yet
func (s *kraepelinService) CancelSession(ctx context.Context, sessionID string, userID uint) (err error) {
	op := s.log.WithOperation(ctx, "cancel_session", userID)
	defer func() { op.LogResult(sessionID, "session", err) }()

	return s.lockSession(ctx, sessionID, func() error {
		live, err := s.loadOwned(ctx, sessionID, userID, "cancel")
		if err != nil {
			return err
		}
		if live.Session.Result != nil && !live.Persisted() {
			// Dropping it would lose a scored test
			return NewBusinessRuleError("finished_session", "finished session has an unsaved result, finalize it instead", nil)
		}
		return s.sessions.Delete(ctx, sessionID)
	})
}

// ===== STORED RESULTS =====

func (s *kraepelinService) SubmitResult(ctx context.Context, req *SubmitResultRequest, userID uint) (resp *ResultResponse, err error) {
	op := s.log.WithOperation(ctx, "submit_result", userID)
	defer func() {
		id := ""
		if resp != nil {
			id = strconv.FormatUint(uint64(resp.ID), 10)
		}
		op.LogResult(id, "result", err)
	}()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	difficulty, err := kraepelin.ParseDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}

	// Never trust client-side counts, score again from the raw grid
	result := kraepelin.Evaluate(req.NumberMatrix, req.Answers)

	row, err := models.NewKraepelinResult(req.NumberMatrix, req.Answers, result)
	if err != nil {
		return nil, fmt.Errorf("failed to build result: %w", err)
	}
	row.UserID = userID
	row.AssignmentID = req.AssignmentID
	row.Difficulty = difficulty
	row.TimePerColumn = req.TimePerColumn
	row.TimeElapsed = req.TimeElapsed

	if err := s.repo.KraepelinResult().Create(ctx, nil, row); err != nil {
		return nil, fmt.Errorf("failed to store result: %w", err)
	}

	s.publishResult(ctx, row, result)
	op.LogAudit(AuditEventCreate, strconv.FormatUint(uint64(row.ID), 10), "result", map[string]interface{}{
		"overall_score": row.OverallScore,
		"source":        "submission",
	})

	return newResultResponse(row)
}

func (s *kraepelinService) GetResult(ctx context.Context, id uint, userID uint) (*ResultDetail, error) {
	row, err := s.loadResult(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	matrix, err := row.Matrix()
	if err != nil {
		return nil, err
	}
	answers, err := row.AnswerGrid()
	if err != nil {
		return nil, err
	}

	base, err := newResultResponse(row)
	if err != nil {
		return nil, err
	}

	replayed := kraepelin.ScoreAnswers(matrix, answers)
	consistent := replayed == row.Score()
	if !consistent {
		s.logger.Warn("Stored result disagrees with replay",
			"result_id", row.ID,
			"stored", row.Score(),
			"replayed", replayed)
	}

	return &ResultDetail{
		ResultResponse: *base,
		NumberMatrix:   matrix,
		Answers:        answers,
		Heatmap:        kraepelin.ClassifyAll(matrix, answers),
		Consistent:     consistent,
	}, nil
}

func (s *kraepelinService) ListResults(ctx context.Context, filters repositories.ResultFilters, userID uint) (*ResultListResponse, error) {
	filters.UserID = &userID
	rows, total, err := s.repo.KraepelinResult().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	results := make([]*ResultResponse, 0, len(rows))
	for _, row := range rows {
		resp, err := newResultResponse(row)
		if err != nil {
			return nil, err
		}
		results = append(results, resp)
	}

	limit, offset := filters.Paginate()
	return &ResultListResponse{
		Results: results,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}

func (s *kraepelinService) GetStats(ctx context.Context, userID uint) (*repositories.ResultStats, error) {
	stats, err := s.repo.KraepelinResult().GetUserStats(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get result stats: %w", err)
	}
	return stats, nil
}

// ===== HELPERS =====

func (s *kraepelinService) applyDefaults(req *StartSessionRequest) {
	if req.Rows == 0 {
		req.Rows = s.defaults.DefaultRows
	}
	if req.Columns == 0 {
		req.Columns = s.defaults.DefaultColumns
	}
	if req.TimePerColumn == 0 {
		req.TimePerColumn = int(s.defaults.DefaultTimePerColumn / time.Second)
	}
	if req.Difficulty == "" {
		req.Difficulty = s.defaults.DefaultDifficulty
	}
}

// withSession loads a session under its lock, applies fn and saves it back.
// The session is saved even when fn fails, since expiring columns can change
// state before fn rejects the call. A session that has just finished gets its
// result stored; a failure there is logged and reported via ResultPending.
func (s *kraepelinService) withSession(ctx context.Context, operation, sessionID string, userID uint, fn func(live *models.LiveSession, now time.Time) error) (live *models.LiveSession, now time.Time, err error) {
	op := s.log.WithOperation(ctx, operation, userID)
	defer func() { op.LogResult(sessionID, "session", err) }()

	err = s.lockSession(ctx, sessionID, func() error {
		loaded, err := s.loadOwned(ctx, sessionID, userID, operation)
		if err != nil {
			return err
		}
		live, now = loaded, s.now()

		fnErr := fn(live, now)

		if live.Session.State == kraepelin.StateFinished && !live.Persisted() {
			if err := s.persistResult(ctx, live); err != nil {
				s.logger.Error("Failed to store finished session result, kept in session store",
					"session_id", sessionID,
					"error", err)
			}
		}

		if err := s.sessions.Save(ctx, live); err != nil {
			return fmt.Errorf("failed to store session: %w", err)
		}
		return fnErr
	})
	return live, now, err
}

func (s *kraepelinService) lockSession(ctx context.Context, sessionID string, fn func() error) error {
	err := s.sessions.WithLock(ctx, sessionID, fn)
	if errors.Is(err, cache.ErrLockHeld) {
		return ErrSessionBusy
	}
	return err
}

func (s *kraepelinService) loadOwned(ctx context.Context, sessionID string, userID uint, action string) (*models.LiveSession, error) {
	live, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if live.UserID != userID {
		return nil, NewPermissionError(userID, sessionID, "session", action, "session belongs to another user")
	}
	return live, nil
}

func (s *kraepelinService) loadResult(ctx context.Context, id uint, userID uint) (*models.KraepelinResult, error) {
	row, err := s.repo.KraepelinResult().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	if row.UserID != userID {
		return nil, NewPermissionError(userID, strconv.FormatUint(uint64(id), 10), "result", "read", "result belongs to another user")
	}
	return row, nil
}

// persistResult writes the finished session's result, retrying transient
// failures. A row already stored for the session is adopted instead of
// duplicated.
func (s *kraepelinService) persistResult(ctx context.Context, live *models.LiveSession) error {
	session := live.Session
	row, err := models.NewKraepelinResult(session.Matrix, session.Answers, *session.Result)
	if err != nil {
		return err
	}
	sessionID := live.ID
	row.UserID = live.UserID
	row.AssignmentID = live.AssignmentID
	row.SessionID = &sessionID
	row.Difficulty = live.Difficulty
	row.TimePerColumn = int(session.TimePerColumn / time.Second)
	row.TimeElapsed = int(session.Elapsed(session.FinishedAt) / time.Second)

	store := func(tx *gorm.DB) error {
		existing, err := s.repo.KraepelinResult().GetBySessionID(ctx, tx, sessionID)
		if err == nil {
			row = existing
			return nil
		}
		if !repositories.IsNotFoundError(err) {
			return err
		}
		return s.repo.KraepelinResult().Create(ctx, tx, row)
	}

	for attempt := 1; attempt <= persistAttempts; attempt++ {
		if err = s.repo.Transaction(ctx, store); err == nil {
			break
		}
		s.logger.Warn("Storing result failed",
			"session_id", sessionID,
			"attempt", attempt,
			"error", err)
		if attempt == persistAttempts {
			return fmt.Errorf("%w: %v", ErrResultNotPersisted, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(persistBackoff * time.Duration(attempt)):
		}
	}

	id := row.ID
	live.ResultID = &id

	s.publish(ctx, events.NewSessionFinishedEvent(events.SessionFinishedEvent{
		SessionID:   sessionID,
		UserID:      live.UserID,
		FinishedAt:  session.FinishedAt,
		TimeElapsed: row.TimeElapsed,
	}))
	s.publishResult(ctx, row, *session.Result)
	return nil
}

func (s *kraepelinService) publishResult(ctx context.Context, row *models.KraepelinResult, result kraepelin.Result) {
	sessionID := ""
	if row.SessionID != nil {
		sessionID = *row.SessionID
	}
	s.publish(ctx, events.NewResultRecordedEvent(events.ResultRecordedEvent{
		ResultID:          row.ID,
		SessionID:         sessionID,
		UserID:            row.UserID,
		AssignmentID:      row.AssignmentID,
		CorrectAnswers:    result.Score.Correct,
		WrongAnswers:      result.Score.Wrong,
		Unanswered:        result.Score.Unanswered,
		RowPerformance:    result.Vectors.RowCounts,
		ColumnPerformance: result.Vectors.ColumnCounts,
		Metrics:           result.Metrics,
		RecordedAt:        row.CreatedAt,
	}))
}

// publish never fails the caller, the result is already stored
func (s *kraepelinService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event",
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err)
	}
}
