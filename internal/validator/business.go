package validator

import (
	"fmt"
	"time"

	"github.com/SAP-F-2025/psychotest-service/internal/errors"
	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
)

// BusinessRuleChecker is implemented by requests with rules beyond struct tags
type BusinessRuleChecker interface {
	ValidateBusinessRules(bv *BusinessValidator) ValidationErrors
}

// BusinessValidator checks cross-field and shape rules of test submissions
type BusinessValidator struct{}

func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{}
}

// Validate runs the request's own business rules when it has any
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if checker, ok := s.(BusinessRuleChecker); ok {
		return checker.ValidateBusinessRules(bv)
	}
	return nil
}

// ValidateDimensions checks rows and columns against the allowed range
func (bv *BusinessValidator) ValidateDimensions(rows, columns int) ValidationErrors {
	var errs ValidationErrors
	if rows < kraepelin.MinDimension || rows > kraepelin.MaxDimension {
		errs = append(errs, *errors.NewValidationErrorWithRule("rows", dimensionMessage, "kraepelin_dimension", rows))
	}
	if columns < kraepelin.MinDimension || columns > kraepelin.MaxDimension {
		errs = append(errs, *errors.NewValidationErrorWithRule("cols", dimensionMessage, "kraepelin_dimension", columns))
	}
	return errs
}

// ValidateTimePerColumn checks the per-column timer in seconds
func (bv *BusinessValidator) ValidateTimePerColumn(seconds int) ValidationErrors {
	if err := kraepelin.ValidateTimePerColumn(time.Duration(seconds) * time.Second); err != nil {
		return ValidationErrors{*errors.NewValidationErrorWithRule("time_per_column",
			fmt.Sprintf("must be between %d and %d seconds", int(kraepelin.MinTimePerColumn.Seconds()), int(kraepelin.MaxTimePerColumn.Seconds())),
			"time_per_column", seconds)}
	}
	return nil
}

// ValidateMatrix checks the matrix is well formed and matches the declared size
func (bv *BusinessValidator) ValidateMatrix(m kraepelin.Matrix, rows, columns int) ValidationErrors {
	if err := m.Validate(); err != nil {
		return ValidationErrors{*errors.NewValidationErrorWithRule("number_matrix", err.Error(), "matrix_shape", nil)}
	}
	if m.Rows() != rows || m.Columns() != columns {
		return ValidationErrors{*errors.NewValidationErrorWithRule("number_matrix",
			fmt.Sprintf("is %dx%d, declared %dx%d", m.Rows(), m.Columns(), rows, columns),
			"matrix_shape", nil)}
	}
	return nil
}

// ValidateAnswers checks the answer grid fits m; m must already be valid
func (bv *BusinessValidator) ValidateAnswers(answers kraepelin.AnswerGrid, m kraepelin.Matrix) ValidationErrors {
	if err := answers.Validate(m); err != nil {
		return ValidationErrors{*errors.NewValidationErrorWithRule("answers", err.Error(), "answer_shape", nil)}
	}
	return nil
}

// ValidateTimeElapsed rejects totals longer than the test could have run
func (bv *BusinessValidator) ValidateTimeElapsed(elapsed, columns, timePerColumn int) ValidationErrors {
	if elapsed < 0 || (timePerColumn > 0 && elapsed > columns*timePerColumn) {
		return ValidationErrors{*errors.NewValidationErrorWithRule("time_elapsed",
			fmt.Sprintf("must be between 0 and %d seconds", columns*timePerColumn),
			"time_elapsed", elapsed)}
	}
	return nil
}

const dimensionMessage = "must be between 20 and 100"
