package lifecycle

import "errors"

var (
	ErrProblemNotFound = errors.New("problem not found")
	ErrProblemClosed   = errors.New("problem is no longer accepting submissions")
	ErrWindowClosed    = errors.New("problem window has closed, submission recorded for audit only")
	ErrSubmissionLimit = errors.New("submission limit reached for this problem")
)
