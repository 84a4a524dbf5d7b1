package app

import (
	"context"
	"time"

	"contest-service/internal/domain"
)

// ContestInput is the authoring shape for a new contest.
type ContestInput struct {
	Title       string
	Description string
	Access      domain.Access
	StartTime   time.Time
	EndTime     time.Time
	Prize       string
}

// OptionInput is one candidate answer when authoring a question.
type OptionInput struct {
	Text    string
	Correct bool
}

// QuestionInput is the authoring shape for a new question.
type QuestionInput struct {
	Text    string
	Type    string
	Options []OptionInput
}

// CreateContest validates and persists a new contest. Contests are immutable
// once created.
func (s *Service) CreateContest(ctx context.Context, principal domain.Principal, in ContestInput) (domain.Contest, error) {
	if !Allowed(OpCreateContest, principal.Role) {
		return domain.Contest{}, domain.ErrForbidden
	}
	if in.Title == "" {
		return domain.Contest{}, domain.Validationf("title required")
	}
	access := in.Access
	if access == "" {
		access = domain.AccessPublic
	}
	if access != domain.AccessPublic && access != domain.AccessVIP {
		return domain.Contest{}, domain.Validationf("access must be PUBLIC or VIP")
	}

	contest := domain.Contest{
		Title:       in.Title,
		Description: in.Description,
		Access:      access,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Prize:       in.Prize,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateContest(ctx, &contest); err != nil {
		return domain.Contest{}, err
	}
	s.log.WithField("contest_id", contest.ID).Info("contest created")
	return contest, nil
}

// AddQuestion attaches a question and its options to an existing contest and
// drops the contest's cached answer key.
func (s *Service) AddQuestion(ctx context.Context, principal domain.Principal, contestID int64, in QuestionInput) (domain.Question, error) {
	if !Allowed(OpAddQuestion, principal.Role) {
		return domain.Question{}, domain.ErrForbidden
	}
	if in.Text == "" || in.Type == "" || len(in.Options) == 0 {
		return domain.Question{}, domain.Validationf("question text, type, and at least one option required")
	}

	if _, err := s.store.GetContest(ctx, contestID); err != nil {
		return domain.Question{}, err
	}

	question := domain.Question{
		ContestID: contestID,
		Text:      in.Text,
		Type:      in.Type,
		Options:   make([]domain.Option, 0, len(in.Options)),
	}
	for _, opt := range in.Options {
		question.Options = append(question.Options, domain.Option{
			Text:    opt.Text,
			Correct: opt.Correct,
		})
	}
	if err := s.store.CreateQuestion(ctx, &question); err != nil {
		return domain.Question{}, err
	}

	if err := s.keys.Invalidate(ctx, contestID); err != nil {
		// Stale keys age out by TTL; scoring correctness does not depend on
		// this call succeeding.
		s.log.WithError(err).WithField("contest_id", contestID).Warn("answer key invalidation failed")
	}
	return question, nil
}
