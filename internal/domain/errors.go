package domain

import "errors"

var (
	// ErrContestNotFound is returned when a contest ID does not resolve.
	ErrContestNotFound = errors.New("contest not found")
	// ErrQuestionNotFound indicates a question ID is unknown or belongs to another contest.
	ErrQuestionNotFound = errors.New("question not found in contest")
	// ErrOptionNotFound indicates an option ID does not belong to the answered question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrParticipationNotFound is returned when a participation ID does not resolve.
	ErrParticipationNotFound = errors.New("participation not found")
	// ErrUserNotFound is returned when a user lookup misses.
	ErrUserNotFound = errors.New("user not found")

	// ErrAlreadyJoined is returned when a user already holds a participation in the contest.
	ErrAlreadyJoined = errors.New("already joined contest")
	// ErrAlreadySubmitted is returned when a participation has already submitted answers.
	ErrAlreadySubmitted = errors.New("answers already submitted")
	// ErrAlreadyAwarded is returned when a contest's prize has already been settled.
	ErrAlreadyAwarded = errors.New("prize already awarded")
	// ErrDuplicateAnswer is returned when a submission answers the same question twice.
	ErrDuplicateAnswer = errors.New("duplicate answer for question")
	// ErrEmailTaken is returned on signup with an email that already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrForbidden indicates a role or access-tier mismatch.
	ErrForbidden = errors.New("forbidden for role")
	// ErrBadCredentials covers failed logins and invalid or expired tokens.
	ErrBadCredentials = errors.New("invalid credentials")

	// ErrNoSubmissions is returned when a prize is settled on a contest without submissions.
	ErrNoSubmissions = errors.New("no submissions for contest")

	// ErrStoreUnavailable wraps transient store failures (timeouts, lost connections).
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError reports malformed or missing input. It causes no state
// change and is surfaced to the caller as-is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a plain message.
func Validationf(msg string) error { return &ValidationError{Msg: msg} }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
