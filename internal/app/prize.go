package app

import (
	"context"

	"contest-service/internal/domain"
)

// AwardPrize settles the contest's prize on the top-ranked submitted
// participation and records it exactly once. The existence check, winner
// selection, and insert run in one transaction; the store's per-contest
// uniqueness guarantee backstops concurrent callers, so a second award
// attempt fails with ErrAlreadyAwarded rather than writing a second record.
func (s *Service) AwardPrize(ctx context.Context, principal domain.Principal, contestID int64) (domain.PrizeRecord, error) {
	if !Allowed(OpAwardPrize, principal.Role) {
		return domain.PrizeRecord{}, domain.ErrForbidden
	}

	contest, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return domain.PrizeRecord{}, err
	}

	var record domain.PrizeRecord
	err = s.store.Transaction(ctx, func(tx Store) error {
		if _, ok, err := tx.PrizeRecordByContest(ctx, contestID); err != nil {
			return err
		} else if ok {
			return domain.ErrAlreadyAwarded
		}

		n, err := tx.CountSubmitted(ctx, contestID)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNoSubmissions
		}

		participations, err := tx.SubmittedParticipations(ctx, contestID)
		if err != nil {
			return err
		}
		sortStandings(participations)
		winner := participations[0]

		record = domain.PrizeRecord{
			UserID:    winner.UserID,
			ContestID: contestID,
			Prize:     contest.Prize,
			AwardedAt: s.now(),
		}
		return tx.CreatePrizeRecord(ctx, &record)
	})
	if err != nil {
		return domain.PrizeRecord{}, err
	}

	s.log.WithFields(map[string]interface{}{
		"contest_id": contestID,
		"winner_id":  record.UserID,
	}).Info("prize awarded")
	return record, nil
}
