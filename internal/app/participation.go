package app

import (
	"context"

	"contest-service/internal/domain"
)

// Join creates a participation for the principal in the contest. VIP contests
// admit VIP and ADMIN roles only. The existence check and the insert run in
// one transaction so two concurrent joins from the same user cannot both
// pass; the store's uniqueness guarantee backstops the check.
func (s *Service) Join(ctx context.Context, principal domain.Principal, contestID int64) (domain.Participation, error) {
	if !Allowed(OpJoin, principal.Role) {
		return domain.Participation{}, domain.ErrForbidden
	}

	contest, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return domain.Participation{}, err
	}
	if contest.Access == domain.AccessVIP && principal.Role != domain.RoleVIP && principal.Role != domain.RoleAdmin {
		return domain.Participation{}, domain.ErrForbidden
	}

	participation := domain.Participation{
		UserID:    principal.UserID,
		ContestID: contestID,
		Status:    domain.StatusJoined,
		JoinedAt:  s.now(),
	}
	err = s.store.Transaction(ctx, func(tx Store) error {
		if _, ok, err := tx.ParticipationByUser(ctx, principal.UserID, contestID); err != nil {
			return err
		} else if ok {
			return domain.ErrAlreadyJoined
		}
		return tx.CreateParticipation(ctx, &participation)
	})
	if err != nil {
		return domain.Participation{}, err
	}

	s.log.WithFields(map[string]interface{}{
		"contest_id": contestID,
		"user_id":    principal.UserID,
	}).Info("user joined contest")
	return participation, nil
}

// Submit records the participation's answers exactly once. Only the owner of
// the participation may submit. Answer inserts and
// the JOINED → SUBMITTED transition commit in a single transaction; readers
// never see answers without the status flip or the reverse.
func (s *Service) Submit(ctx context.Context, principal domain.Principal, participationID int64, answers []domain.Answer) error {
	if !Allowed(OpSubmit, principal.Role) {
		return domain.ErrForbidden
	}
	if len(answers) == 0 {
		return domain.Validationf("at least one answer required")
	}
	seen := make(map[int64]bool, len(answers))
	for _, a := range answers {
		if seen[a.QuestionID] {
			return domain.ErrDuplicateAnswer
		}
		seen[a.QuestionID] = true
	}

	err := s.store.Transaction(ctx, func(tx Store) error {
		participation, err := tx.GetParticipation(ctx, participationID)
		if err != nil {
			return err
		}
		if participation.UserID != principal.UserID {
			return domain.ErrForbidden
		}
		if participation.Status == domain.StatusSubmitted {
			return domain.ErrAlreadySubmitted
		}

		questions, err := tx.QuestionsByContest(ctx, participation.ContestID)
		if err != nil {
			return err
		}
		options := make(map[int64]map[int64]bool, len(questions))
		for _, q := range questions {
			opts := make(map[int64]bool, len(q.Options))
			for _, o := range q.Options {
				opts[o.ID] = true
			}
			options[q.ID] = opts
		}

		rows := make([]domain.SubmittedAnswer, 0, len(answers))
		for _, a := range answers {
			opts, ok := options[a.QuestionID]
			if !ok {
				return domain.ErrQuestionNotFound
			}
			if !opts[a.OptionID] {
				return domain.ErrOptionNotFound
			}
			rows = append(rows, domain.SubmittedAnswer{
				ParticipationID: participationID,
				QuestionID:      a.QuestionID,
				OptionID:        a.OptionID,
			})
		}

		if err := tx.CreateAnswers(ctx, rows); err != nil {
			return err
		}
		now := s.now()
		participation.Status = domain.StatusSubmitted
		participation.SubmittedAt = &now
		return tx.UpdateParticipation(ctx, &participation)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(map[string]interface{}{
		"participation_id": participationID,
		"answers":          len(answers),
	}).Info("answers submitted")
	return nil
}
