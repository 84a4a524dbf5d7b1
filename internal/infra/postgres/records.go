package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"contest-service/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64  `bun:"id,pk,autoincrement"`
	Name         string `bun:"name,notnull"`
	Email        string `bun:"email,notnull,unique"`
	PasswordHash string `bun:"password_hash,notnull"`
	Role         string `bun:"role,notnull"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
	}
}

type contestRow struct {
	bun.BaseModel `bun:"table:contests,alias:c"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description"`
	Access      string    `bun:"access,notnull"`
	StartTime   time.Time `bun:"start_time,nullzero"`
	EndTime     time.Time `bun:"end_time,nullzero"`
	Prize       string    `bun:"prize"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

func (r contestRow) toDomain() domain.Contest {
	return domain.Contest{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Access:      domain.Access(r.Access),
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Prize:       r.Prize,
		CreatedAt:   r.CreatedAt,
	}
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID        int64  `bun:"id,pk,autoincrement"`
	ContestID int64  `bun:"contest_id,notnull"`
	Text      string `bun:"text,notnull"`
	Type      string `bun:"type,notnull"`
}

type optionRow struct {
	bun.BaseModel `bun:"table:options,alias:o"`

	ID         int64  `bun:"id,pk,autoincrement"`
	QuestionID int64  `bun:"question_id,notnull"`
	Text       string `bun:"text,notnull"`
	Correct    bool   `bun:"correct,notnull"`
}

func (r optionRow) toDomain() domain.Option {
	return domain.Option{
		ID:         r.ID,
		QuestionID: r.QuestionID,
		Text:       r.Text,
		Correct:    r.Correct,
	}
}

type participationRow struct {
	bun.BaseModel `bun:"table:participations,alias:p"`

	ID          int64      `bun:"id,pk,autoincrement"`
	UserID      int64      `bun:"user_id,notnull"`
	ContestID   int64      `bun:"contest_id,notnull"`
	Status      string     `bun:"status,notnull"`
	Score       *int       `bun:"score"`
	SubmittedAt *time.Time `bun:"submitted_at"`
	JoinedAt    time.Time  `bun:"joined_at,notnull"`
}

func (r participationRow) toDomain() domain.Participation {
	return domain.Participation{
		ID:          r.ID,
		UserID:      r.UserID,
		ContestID:   r.ContestID,
		Status:      domain.ParticipationStatus(r.Status),
		Score:       r.Score,
		SubmittedAt: r.SubmittedAt,
		JoinedAt:    r.JoinedAt,
	}
}

func participationFromDomain(p *domain.Participation) participationRow {
	return participationRow{
		ID:          p.ID,
		UserID:      p.UserID,
		ContestID:   p.ContestID,
		Status:      string(p.Status),
		Score:       p.Score,
		SubmittedAt: p.SubmittedAt,
		JoinedAt:    p.JoinedAt,
	}
}

type answerRow struct {
	bun.BaseModel `bun:"table:submitted_answers,alias:a"`

	ID              int64 `bun:"id,pk,autoincrement"`
	ParticipationID int64 `bun:"participation_id,notnull"`
	QuestionID      int64 `bun:"question_id,notnull"`
	OptionID        int64 `bun:"option_id,notnull"`
}

func (r answerRow) toDomain() domain.SubmittedAnswer {
	return domain.SubmittedAnswer{
		ID:              r.ID,
		ParticipationID: r.ParticipationID,
		QuestionID:      r.QuestionID,
		OptionID:        r.OptionID,
	}
}

type prizeRow struct {
	bun.BaseModel `bun:"table:prize_records,alias:pr"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	ContestID int64     `bun:"contest_id,notnull,unique"`
	Prize     string    `bun:"prize"`
	AwardedAt time.Time `bun:"awarded_at,notnull"`
}

func (r prizeRow) toDomain() domain.PrizeRecord {
	return domain.PrizeRecord{
		ID:        r.ID,
		UserID:    r.UserID,
		ContestID: r.ContestID,
		Prize:     r.Prize,
		AwardedAt: r.AwardedAt,
	}
}
