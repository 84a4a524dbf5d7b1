package app

import (
	"context"

	"contest-service/internal/domain"
)

// Store is the durable record store behind the engine. Implementations must
// make Transaction an atomic unit: every operation performed through the tx
// Store commits or rolls back together, isolated from concurrent callers.
type Store interface {
	// Transaction runs fn against a transactional view of the store.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CreateContest(ctx context.Context, c *domain.Contest) error
	GetContest(ctx context.Context, id int64) (domain.Contest, error)

	// CreateQuestion inserts the question and its options together.
	CreateQuestion(ctx context.Context, q *domain.Question) error
	QuestionsByContest(ctx context.Context, contestID int64) ([]domain.Question, error)

	// CreateParticipation fails with domain.ErrAlreadyJoined when a row for
	// the same (userId, contestId) pair already exists.
	CreateParticipation(ctx context.Context, p *domain.Participation) error
	GetParticipation(ctx context.Context, id int64) (domain.Participation, error)
	ParticipationByUser(ctx context.Context, userID, contestID int64) (domain.Participation, bool, error)
	UpdateParticipation(ctx context.Context, p *domain.Participation) error

	CreateAnswers(ctx context.Context, answers []domain.SubmittedAnswer) error
	AnswersByParticipation(ctx context.Context, participationID int64) ([]domain.SubmittedAnswer, error)

	SubmittedParticipations(ctx context.Context, contestID int64) ([]domain.Participation, error)
	CountSubmitted(ctx context.Context, contestID int64) (int, error)

	// CreatePrizeRecord fails with domain.ErrAlreadyAwarded when the contest
	// already has a record.
	CreatePrizeRecord(ctx context.Context, r *domain.PrizeRecord) error
	PrizeRecordByContest(ctx context.Context, contestID int64) (domain.PrizeRecord, bool, error)

	// CreateUser fails with domain.ErrEmailTaken on a duplicate email.
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id int64) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	UserNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// AnswerKeyRepository serves each contest's correct-option map to the scoring
// engine (from cache or backing store).
type AnswerKeyRepository interface {
	GetAnswerKey(ctx context.Context, contestID int64) (domain.AnswerKey, error)
	// Invalidate drops the cached key after the contest's questions change.
	Invalidate(ctx context.Context, contestID int64) error
}
