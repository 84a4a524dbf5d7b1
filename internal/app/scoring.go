package app

import (
	"context"

	"contest-service/internal/domain"
)

// Score counts the participation's answers that picked a correct option and
// writes the result back. It is idempotent: re-scoring with unchanged answers
// overwrites with the same value. Scoring is deliberately decoupled from
// Submit so it can be re-run after correctness edits or in bulk after a
// contest closes.
func (s *Service) Score(ctx context.Context, principal domain.Principal, participationID int64) (int, error) {
	if !Allowed(OpScore, principal.Role) {
		return 0, domain.ErrForbidden
	}

	participation, err := s.store.GetParticipation(ctx, participationID)
	if err != nil {
		return 0, err
	}
	key, err := s.keys.GetAnswerKey(ctx, participation.ContestID)
	if err != nil {
		return 0, err
	}

	// Re-read and write back under the transaction's row lock, so a Submit
	// that lands after the reads above cannot be clobbered by the write.
	var score int
	err = s.store.Transaction(ctx, func(tx Store) error {
		current, err := tx.GetParticipation(ctx, participationID)
		if err != nil {
			return err
		}
		answers, err := tx.AnswersByParticipation(ctx, participationID)
		if err != nil {
			return err
		}

		score = 0
		for _, a := range answers {
			if key.IsCorrect(a.QuestionID, a.OptionID) {
				score++
			}
		}

		current.Score = &score
		return tx.UpdateParticipation(ctx, &current)
	})
	if err != nil {
		return 0, err
	}
	s.log.WithFields(map[string]interface{}{
		"participation_id": participationID,
		"score":            score,
	}).Info("participation scored")
	return score, nil
}
