package memory

import (
	"sort"

	"contest-service/internal/domain"
)

// dataset holds all entity tables. Values are stored by value; Question
// options are the only nested slice and get copied on clone.
type dataset struct {
	contests       map[int64]domain.Contest
	questions      map[int64]domain.Question
	participations map[int64]domain.Participation
	answers        map[int64]domain.SubmittedAnswer
	prizes         map[int64]domain.PrizeRecord
	users          map[int64]domain.User
	seq            int64
}

func newDataset() *dataset {
	return &dataset{
		contests:       make(map[int64]domain.Contest),
		questions:      make(map[int64]domain.Question),
		participations: make(map[int64]domain.Participation),
		answers:        make(map[int64]domain.SubmittedAnswer),
		prizes:         make(map[int64]domain.PrizeRecord),
		users:          make(map[int64]domain.User),
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		contests:       make(map[int64]domain.Contest, len(d.contests)),
		questions:      make(map[int64]domain.Question, len(d.questions)),
		participations: make(map[int64]domain.Participation, len(d.participations)),
		answers:        make(map[int64]domain.SubmittedAnswer, len(d.answers)),
		prizes:         make(map[int64]domain.PrizeRecord, len(d.prizes)),
		users:          make(map[int64]domain.User, len(d.users)),
		seq:            d.seq,
	}
	for id, v := range d.contests {
		c.contests[id] = v
	}
	for id, v := range d.questions {
		opts := make([]domain.Option, len(v.Options))
		copy(opts, v.Options)
		v.Options = opts
		c.questions[id] = v
	}
	for id, v := range d.participations {
		c.participations[id] = v
	}
	for id, v := range d.answers {
		c.answers[id] = v
	}
	for id, v := range d.prizes {
		c.prizes[id] = v
	}
	for id, v := range d.users {
		c.users[id] = v
	}
	return c
}

func (d *dataset) nextID() int64 {
	d.seq++
	return d.seq
}

func (d *dataset) createContest(c *domain.Contest) error {
	c.ID = d.nextID()
	d.contests[c.ID] = *c
	return nil
}

func (d *dataset) getContest(id int64) (domain.Contest, error) {
	c, ok := d.contests[id]
	if !ok {
		return domain.Contest{}, domain.ErrContestNotFound
	}
	return c, nil
}

func (d *dataset) createQuestion(q *domain.Question) error {
	q.ID = d.nextID()
	for i := range q.Options {
		q.Options[i].ID = d.nextID()
		q.Options[i].QuestionID = q.ID
	}
	stored := *q
	stored.Options = make([]domain.Option, len(q.Options))
	copy(stored.Options, q.Options)
	d.questions[q.ID] = stored
	return nil
}

func (d *dataset) questionsByContest(contestID int64) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range d.questions {
		if q.ContestID == contestID {
			opts := make([]domain.Option, len(q.Options))
			copy(opts, q.Options)
			q.Options = opts
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *dataset) createParticipation(p *domain.Participation) error {
	for _, existing := range d.participations {
		if existing.UserID == p.UserID && existing.ContestID == p.ContestID {
			return domain.ErrAlreadyJoined
		}
	}
	p.ID = d.nextID()
	d.participations[p.ID] = *p
	return nil
}

func (d *dataset) getParticipation(id int64) (domain.Participation, error) {
	p, ok := d.participations[id]
	if !ok {
		return domain.Participation{}, domain.ErrParticipationNotFound
	}
	return p, nil
}

func (d *dataset) participationByUser(userID, contestID int64) (domain.Participation, bool, error) {
	for _, p := range d.participations {
		if p.UserID == userID && p.ContestID == contestID {
			return p, true, nil
		}
	}
	return domain.Participation{}, false, nil
}

func (d *dataset) updateParticipation(p *domain.Participation) error {
	if _, ok := d.participations[p.ID]; !ok {
		return domain.ErrParticipationNotFound
	}
	d.participations[p.ID] = *p
	return nil
}

func (d *dataset) createAnswers(answers []domain.SubmittedAnswer) error {
	for i := range answers {
		answers[i].ID = d.nextID()
		d.answers[answers[i].ID] = answers[i]
	}
	return nil
}

func (d *dataset) answersByParticipation(participationID int64) ([]domain.SubmittedAnswer, error) {
	var out []domain.SubmittedAnswer
	for _, a := range d.answers {
		if a.ParticipationID == participationID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *dataset) submittedParticipations(contestID int64) ([]domain.Participation, error) {
	var out []domain.Participation
	for _, p := range d.participations {
		if p.ContestID == contestID && p.Status == domain.StatusSubmitted {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *dataset) countSubmitted(contestID int64) (int, error) {
	n := 0
	for _, p := range d.participations {
		if p.ContestID == contestID && p.Status == domain.StatusSubmitted {
			n++
		}
	}
	return n, nil
}

func (d *dataset) createPrizeRecord(r *domain.PrizeRecord) error {
	for _, existing := range d.prizes {
		if existing.ContestID == r.ContestID {
			return domain.ErrAlreadyAwarded
		}
	}
	r.ID = d.nextID()
	d.prizes[r.ID] = *r
	return nil
}

func (d *dataset) prizeRecordByContest(contestID int64) (domain.PrizeRecord, bool, error) {
	for _, r := range d.prizes {
		if r.ContestID == contestID {
			return r, true, nil
		}
	}
	return domain.PrizeRecord{}, false, nil
}

func (d *dataset) createUser(u *domain.User) error {
	for _, existing := range d.users {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	u.ID = d.nextID()
	d.users[u.ID] = *u
	return nil
}

func (d *dataset) getUser(id int64) (domain.User, error) {
	u, ok := d.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (d *dataset) userByEmail(email string) (domain.User, bool, error) {
	for _, u := range d.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (d *dataset) userNames(ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			names[id] = u.Name
		}
	}
	return names, nil
}
