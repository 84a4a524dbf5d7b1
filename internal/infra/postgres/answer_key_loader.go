package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"contest-service/internal/domain"
)

// AnswerKeyLoader reads a contest's correct options from Postgres. It is the
// read-side source behind the answer-key cache; questions without a correct
// option still appear in the key with an empty set.
type AnswerKeyLoader struct {
	pool *pgxpool.Pool
}

func NewAnswerKeyLoader(pool *pgxpool.Pool) *AnswerKeyLoader {
	return &AnswerKeyLoader{pool: pool}
}

func (l *AnswerKeyLoader) LoadAnswerKey(ctx context.Context, contestID int64) (domain.AnswerKey, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT q.id, o.id
		FROM questions q
		LEFT JOIN options o ON o.question_id = q.id AND o.correct
		WHERE q.contest_id = $1
		ORDER BY q.id, o.id`, contestID)
	if err != nil {
		return domain.AnswerKey{}, fmt.Errorf("load answer key: %w", err)
	}
	defer rows.Close()

	key := domain.AnswerKey{ContestID: contestID, Correct: make(map[int64][]int64)}
	for rows.Next() {
		var questionID int64
		var optionID *int64
		if err := rows.Scan(&questionID, &optionID); err != nil {
			return domain.AnswerKey{}, fmt.Errorf("scan answer key: %w", err)
		}
		if _, ok := key.Correct[questionID]; !ok {
			key.Correct[questionID] = nil
		}
		if optionID != nil {
			key.Correct[questionID] = append(key.Correct[questionID], *optionID)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.AnswerKey{}, fmt.Errorf("load answer key: %w", err)
	}
	return key, nil
}
