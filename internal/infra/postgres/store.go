package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"contest-service/internal/app"
	"contest-service/internal/domain"
)

// Store implements app.Store on Postgres through bun. The same type serves
// both the pooled connection and an open transaction: Transaction hands the
// callback a Store bound to the bun.Tx, and row-level locks plus the unique
// indexes on participations(user_id, contest_id) and
// prize_records(contest_id) enforce the engine's once-only invariants.
type Store struct {
	db   bun.IDB
	inTx bool
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx app.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	db := s.db.(*bun.DB)
	err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(&Store{db: tx, inTx: true})
	})
	return storeErr(err)
}

func (s *Store) CreateContest(ctx context.Context, c *domain.Contest) error {
	row := contestRow{
		Title:       c.Title,
		Description: c.Description,
		Access:      string(c.Access),
		StartTime:   c.StartTime,
		EndTime:     c.EndTime,
		Prize:       c.Prize,
		CreatedAt:   c.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return storeErr(err)
	}
	c.ID = row.ID
	return nil
}

func (s *Store) GetContest(ctx context.Context, id int64) (domain.Contest, error) {
	var row contestRow
	err := s.db.NewSelect().Model(&row).Where("c.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Contest{}, domain.ErrContestNotFound
	}
	if err != nil {
		return domain.Contest{}, storeErr(err)
	}
	return row.toDomain(), nil
}

func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question) error {
	return s.Transaction(ctx, func(tx app.Store) error {
		return tx.(*Store).createQuestion(ctx, q)
	})
}

func (s *Store) createQuestion(ctx context.Context, q *domain.Question) error {
	row := questionRow{ContestID: q.ContestID, Text: q.Text, Type: q.Type}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return storeErr(err)
	}
	q.ID = row.ID

	optionRows := make([]optionRow, 0, len(q.Options))
	for _, o := range q.Options {
		optionRows = append(optionRows, optionRow{
			QuestionID: q.ID,
			Text:       o.Text,
			Correct:    o.Correct,
		})
	}
	if _, err := s.db.NewInsert().Model(&optionRows).Exec(ctx); err != nil {
		return storeErr(err)
	}
	for i := range optionRows {
		q.Options[i].ID = optionRows[i].ID
		q.Options[i].QuestionID = q.ID
	}
	return nil
}

func (s *Store) QuestionsByContest(ctx context.Context, contestID int64) ([]domain.Question, error) {
	var qRows []questionRow
	err := s.db.NewSelect().Model(&qRows).
		Where("q.contest_id = ?", contestID).
		OrderExpr("q.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	if len(qRows) == 0 {
		return nil, nil
	}

	questionIDs := make([]int64, 0, len(qRows))
	for _, q := range qRows {
		questionIDs = append(questionIDs, q.ID)
	}
	var oRows []optionRow
	err = s.db.NewSelect().Model(&oRows).
		Where("o.question_id IN (?)", bun.In(questionIDs)).
		OrderExpr("o.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storeErr(err)
	}

	byQuestion := make(map[int64][]domain.Option, len(qRows))
	for _, o := range oRows {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], o.toDomain())
	}

	questions := make([]domain.Question, 0, len(qRows))
	for _, q := range qRows {
		questions = append(questions, domain.Question{
			ID:        q.ID,
			ContestID: q.ContestID,
			Text:      q.Text,
			Type:      q.Type,
			Options:   byQuestion[q.ID],
		})
	}
	return questions, nil
}

func (s *Store) CreateParticipation(ctx context.Context, p *domain.Participation) error {
	row := participationFromDomain(p)
	row.ID = 0
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyJoined
		}
		return storeErr(err)
	}
	p.ID = row.ID
	return nil
}

func (s *Store) GetParticipation(ctx context.Context, id int64) (domain.Participation, error) {
	var row participationRow
	q := s.db.NewSelect().Model(&row).Where("p.id = ?", id)
	if s.inTx {
		// Lock the row so a concurrent submit cannot pass the status check.
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participation{}, domain.ErrParticipationNotFound
	}
	if err != nil {
		return domain.Participation{}, storeErr(err)
	}
	return row.toDomain(), nil
}

func (s *Store) ParticipationByUser(ctx context.Context, userID, contestID int64) (domain.Participation, bool, error) {
	var row participationRow
	err := s.db.NewSelect().Model(&row).
		Where("p.user_id = ?", userID).
		Where("p.contest_id = ?", contestID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participation{}, false, nil
	}
	if err != nil {
		return domain.Participation{}, false, storeErr(err)
	}
	return row.toDomain(), true, nil
}

func (s *Store) UpdateParticipation(ctx context.Context, p *domain.Participation) error {
	row := participationFromDomain(p)
	res, err := s.db.NewUpdate().Model(&row).WherePK().Exec(ctx)
	if err != nil {
		return storeErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrParticipationNotFound
	}
	return nil
}

func (s *Store) CreateAnswers(ctx context.Context, answers []domain.SubmittedAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	rows := make([]answerRow, 0, len(answers))
	for _, a := range answers {
		rows = append(rows, answerRow{
			ParticipationID: a.ParticipationID,
			QuestionID:      a.QuestionID,
			OptionID:        a.OptionID,
		})
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Store) AnswersByParticipation(ctx context.Context, participationID int64) ([]domain.SubmittedAnswer, error) {
	var rows []answerRow
	err := s.db.NewSelect().Model(&rows).
		Where("a.participation_id = ?", participationID).
		OrderExpr("a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	answers := make([]domain.SubmittedAnswer, 0, len(rows))
	for _, r := range rows {
		answers = append(answers, r.toDomain())
	}
	return answers, nil
}

func (s *Store) SubmittedParticipations(ctx context.Context, contestID int64) ([]domain.Participation, error) {
	var rows []participationRow
	err := s.db.NewSelect().Model(&rows).
		Where("p.contest_id = ?", contestID).
		Where("p.status = ?", string(domain.StatusSubmitted)).
		OrderExpr("p.score DESC NULLS LAST, p.submitted_at ASC, p.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	participations := make([]domain.Participation, 0, len(rows))
	for _, r := range rows {
		participations = append(participations, r.toDomain())
	}
	return participations, nil
}

func (s *Store) CountSubmitted(ctx context.Context, contestID int64) (int, error) {
	n, err := s.db.NewSelect().Model((*participationRow)(nil)).
		Where("p.contest_id = ?", contestID).
		Where("p.status = ?", string(domain.StatusSubmitted)).
		Count(ctx)
	if err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

func (s *Store) CreatePrizeRecord(ctx context.Context, r *domain.PrizeRecord) error {
	row := prizeRow{
		UserID:    r.UserID,
		ContestID: r.ContestID,
		Prize:     r.Prize,
		AwardedAt: r.AwardedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyAwarded
		}
		return storeErr(err)
	}
	r.ID = row.ID
	return nil
}

func (s *Store) PrizeRecordByContest(ctx context.Context, contestID int64) (domain.PrizeRecord, bool, error) {
	var row prizeRow
	err := s.db.NewSelect().Model(&row).Where("pr.contest_id = ?", contestID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PrizeRecord{}, false, nil
	}
	if err != nil {
		return domain.PrizeRecord{}, false, storeErr(err)
	}
	return row.toDomain(), true, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	row := userRow{
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return storeErr(err)
	}
	u.ID = row.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("u.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, storeErr(err)
	}
	return row.toDomain(), nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("u.email = ?", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, storeErr(err)
	}
	return row.toDomain(), true, nil
}

func (s *Store) UserNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var rows []userRow
	err := s.db.NewSelect().Model(&rows).
		Column("u.id", "u.name").
		Where("u.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names, nil
}

// isUniqueViolation reports whether err is a Postgres 23505 unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return false
}

// storeErr surfaces transient infrastructure failures as ErrStoreUnavailable
// so the boundary can distinguish them from domain outcomes. Retrying is the
// caller's concern.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}
