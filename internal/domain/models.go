package domain

import "time"

// Role is the access tier carried by an authenticated principal.
type Role string

const (
	RoleNormal Role = "NORMAL"
	RoleVIP    Role = "VIP"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether the role is one of the known tiers.
func (r Role) Valid() bool {
	return r == RoleNormal || r == RoleVIP || r == RoleAdmin
}

// Access gates who may join a contest.
type Access string

const (
	AccessPublic Access = "PUBLIC"
	AccessVIP    Access = "VIP"
)

// ParticipationStatus tracks a participant's progress through a contest.
// SUBMITTED is terminal.
type ParticipationStatus string

const (
	StatusJoined    ParticipationStatus = "JOINED"
	StatusSubmitted ParticipationStatus = "SUBMITTED"
)

// Principal is the authenticated caller identity produced by the identity
// provider and trusted by the engine.
type Principal struct {
	UserID int64
	Name   string
	Role   Role
}

// User is a registered account.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
}

// Contest is a timed knowledge contest. Immutable once created.
type Contest struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Access      Access    `json:"access"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Prize       string    `json:"prize"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Question belongs to a contest and owns its options.
type Question struct {
	ID        int64    `json:"id"`
	ContestID int64    `json:"contestId"`
	Text      string   `json:"text"`
	Type      string   `json:"type"`
	Options   []Option `json:"options"`
}

// Option is a possible answer. Immutable after creation.
type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"questionId"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
}

// Participation records one user's relationship to one contest. At most one
// exists per (userId, contestId) pair; it is created on join, mutated by
// submit and by scoring, and never deleted.
type Participation struct {
	ID          int64               `json:"id"`
	UserID      int64               `json:"userId"`
	ContestID   int64               `json:"contestId"`
	Status      ParticipationStatus `json:"status"`
	Score       *int                `json:"score"`
	SubmittedAt *time.Time          `json:"submittedAt"`
	JoinedAt    time.Time           `json:"joinedAt"`
}

// SubmittedAnswer is one answered question within a submission. Rows are
// bulk-inserted at submit time and immutable afterward.
type SubmittedAnswer struct {
	ID              int64 `json:"id"`
	ParticipationID int64 `json:"participationId"`
	QuestionID      int64 `json:"questionId"`
	OptionID        int64 `json:"optionId"`
}

// Answer is the inbound shape of a single answer in a submission.
type Answer struct {
	QuestionID int64 `json:"questionId"`
	OptionID   int64 `json:"optionId"`
}

// PrizeRecord marks the single winner of a contest. At most one exists per
// contest; it records the selection only, not a funds transfer.
type PrizeRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	ContestID int64     `json:"contestId"`
	Prize     string    `json:"prize"`
	AwardedAt time.Time `json:"awardedAt"`
}

// LeaderboardEntry is one row of a contest's ranking.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserName string `json:"user"`
	Score    int    `json:"score"`
}

// AnswerKey maps each question of a contest to the set of its correct
// option IDs. It is what the scoring engine checks submissions against.
type AnswerKey struct {
	ContestID int64
	Correct   map[int64][]int64
}

// IsCorrect reports whether optionID is a correct choice for questionID.
func (k AnswerKey) IsCorrect(questionID, optionID int64) bool {
	for _, id := range k.Correct[questionID] {
		if id == optionID {
			return true
		}
	}
	return false
}
