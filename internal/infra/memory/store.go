package memory

import (
	"context"
	"fmt"
	"sync"

	"contest-service/internal/app"
	"contest-service/internal/domain"
)

// Store is an in-memory implementation of app.Store for tests and local
// development. Transactions serialize on a single mutex and operate on a
// deep copy of the dataset that replaces the live one only on commit, so a
// failed transaction rolls back and concurrent callers never observe partial
// writes.
type Store struct {
	mu sync.Mutex
	ds *dataset
}

func NewStore() *Store {
	return &Store{ds: newDataset()}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx app.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	clone := s.ds.clone()
	if err := fn(&txStore{ds: clone}); err != nil {
		return err
	}
	s.ds = clone
	return nil
}

func (s *Store) CreateContest(ctx context.Context, c *domain.Contest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.createContest(c)
}

func (s *Store) GetContest(ctx context.Context, id int64) (domain.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.getContest(id)
}

func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.createQuestion(q)
}

func (s *Store) QuestionsByContest(ctx context.Context, contestID int64) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.questionsByContest(contestID)
}

func (s *Store) CreateParticipation(ctx context.Context, p *domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.createParticipation(p)
}

func (s *Store) GetParticipation(ctx context.Context, id int64) (domain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.getParticipation(id)
}

func (s *Store) ParticipationByUser(ctx context.Context, userID, contestID int64) (domain.Participation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.participationByUser(userID, contestID)
}

func (s *Store) UpdateParticipation(ctx context.Context, p *domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.updateParticipation(p)
}

func (s *Store) CreateAnswers(ctx context.Context, answers []domain.SubmittedAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.createAnswers(answers)
}

func (s *Store) AnswersByParticipation(ctx context.Context, participationID int64) ([]domain.SubmittedAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.answersByParticipation(participationID)
}

func (s *Store) SubmittedParticipations(ctx context.Context, contestID int64) ([]domain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.submittedParticipations(contestID)
}

func (s *Store) CountSubmitted(ctx context.Context, contestID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.countSubmitted(contestID)
}

func (s *Store) CreatePrizeRecord(ctx context.Context, r *domain.PrizeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.createPrizeRecord(r)
}

func (s *Store) PrizeRecordByContest(ctx context.Context, contestID int64) (domain.PrizeRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.prizeRecordByContest(contestID)
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.createUser(u)
}

func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.getUser(id)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.userByEmail(email)
}

func (s *Store) UserNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.userNames(ids)
}

// txStore is the transactional view handed to Transaction callbacks. The
// parent's mutex is held for the whole transaction, so ops need no locking.
type txStore struct {
	ds *dataset
}

func (t *txStore) Transaction(ctx context.Context, fn func(tx app.Store) error) error {
	// Already inside a transaction; nest flatly.
	return fn(t)
}

func (t *txStore) CreateContest(_ context.Context, c *domain.Contest) error { return t.ds.createContest(c) }
func (t *txStore) GetContest(_ context.Context, id int64) (domain.Contest, error) {
	return t.ds.getContest(id)
}
func (t *txStore) CreateQuestion(_ context.Context, q *domain.Question) error {
	return t.ds.createQuestion(q)
}
func (t *txStore) QuestionsByContest(_ context.Context, contestID int64) ([]domain.Question, error) {
	return t.ds.questionsByContest(contestID)
}
func (t *txStore) CreateParticipation(_ context.Context, p *domain.Participation) error {
	return t.ds.createParticipation(p)
}
func (t *txStore) GetParticipation(_ context.Context, id int64) (domain.Participation, error) {
	return t.ds.getParticipation(id)
}
func (t *txStore) ParticipationByUser(_ context.Context, userID, contestID int64) (domain.Participation, bool, error) {
	return t.ds.participationByUser(userID, contestID)
}
func (t *txStore) UpdateParticipation(_ context.Context, p *domain.Participation) error {
	return t.ds.updateParticipation(p)
}
func (t *txStore) CreateAnswers(_ context.Context, answers []domain.SubmittedAnswer) error {
	return t.ds.createAnswers(answers)
}
func (t *txStore) AnswersByParticipation(_ context.Context, participationID int64) ([]domain.SubmittedAnswer, error) {
	return t.ds.answersByParticipation(participationID)
}
func (t *txStore) SubmittedParticipations(_ context.Context, contestID int64) ([]domain.Participation, error) {
	return t.ds.submittedParticipations(contestID)
}
func (t *txStore) CountSubmitted(_ context.Context, contestID int64) (int, error) {
	return t.ds.countSubmitted(contestID)
}
func (t *txStore) CreatePrizeRecord(_ context.Context, r *domain.PrizeRecord) error {
	return t.ds.createPrizeRecord(r)
}
func (t *txStore) PrizeRecordByContest(_ context.Context, contestID int64) (domain.PrizeRecord, bool, error) {
	return t.ds.prizeRecordByContest(contestID)
}
func (t *txStore) CreateUser(_ context.Context, u *domain.User) error { return t.ds.createUser(u) }
func (t *txStore) GetUser(_ context.Context, id int64) (domain.User, error) {
	return t.ds.getUser(id)
}
func (t *txStore) UserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	return t.ds.userByEmail(email)
}
func (t *txStore) UserNames(_ context.Context, ids []int64) (map[int64]string, error) {
	return t.ds.userNames(ids)
}
