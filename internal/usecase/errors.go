package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// Round Gate rejections. All are reported synchronously and never retried.
	ErrCrossRoundSubmission = errors.New("predictions span more than one round")
	ErrRoundNotOpen         = errors.New("round is not open for betting")
	ErrDeadlinePassed       = errors.New("submission deadline has passed")
	ErrUnknownFixture       = errors.New("unknown fixture")

	// State rejections: the operation already ran, re-running is a no-op.
	ErrRoundAlreadyScored     = errors.New("round already scored")
	ErrSeasonAlreadyCompleted = errors.New("season already completed")
	ErrWinnerAlreadyDecided   = errors.New("season winner already determined")
)
