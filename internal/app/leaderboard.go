package app

import (
	"context"
	"sort"

	"contest-service/internal/domain"
)

// Rank returns the contest's standings: submitted participations only,
// ordered by score descending, then earlier submission, then lower
// participation ID. The order is total, so ranks are 1-based and strictly
// sequential with no shared ranks for ties. Rank mutates nothing.
func (s *Service) Rank(ctx context.Context, contestID int64) ([]domain.LeaderboardEntry, error) {
	participations, err := s.store.SubmittedParticipations(ctx, contestID)
	if err != nil {
		return nil, err
	}
	sortStandings(participations)

	ids := make([]int64, 0, len(participations))
	for _, p := range participations {
		ids = append(ids, p.UserID)
	}
	names, err := s.store.UserNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(participations))
	for i, p := range participations {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:     i + 1,
			UserName: names[p.UserID],
			Score:    scoreValue(p),
		})
	}
	return entries, nil
}

// sortStandings orders participations by score desc, submittedAt asc, id asc.
// Unscored participations order as zero.
func sortStandings(participations []domain.Participation) {
	sort.Slice(participations, func(i, j int) bool {
		si, sj := scoreValue(participations[i]), scoreValue(participations[j])
		if si != sj {
			return si > sj
		}
		ti, tj := participations[i].SubmittedAt, participations[j].SubmittedAt
		if ti != nil && tj != nil && !ti.Equal(*tj) {
			return ti.Before(*tj)
		}
		return participations[i].ID < participations[j].ID
	})
}

func scoreValue(p domain.Participation) int {
	if p.Score == nil {
		return 0
	}
	return *p.Score
}
