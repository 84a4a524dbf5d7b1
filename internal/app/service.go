package app

import (
	"time"

	"github.com/sirupsen/logrus"

	"contest-service/internal/domain"
)

// Operation names one engine entry point for permission checks.
type Operation string

const (
	OpCreateContest Operation = "create_contest"
	OpAddQuestion   Operation = "add_question"
	OpJoin          Operation = "join"
	OpSubmit        Operation = "submit"
	OpScore         Operation = "score"
	OpRank          Operation = "rank"
	OpAwardPrize    Operation = "award_prize"
)

// permissions is the explicit role table consulted per operation. Rank is
// public and absent on purpose; Score is restricted to admins.
var permissions = map[Operation][]domain.Role{
	OpCreateContest: {domain.RoleAdmin, domain.RoleVIP},
	OpAddQuestion:   {domain.RoleAdmin, domain.RoleVIP},
	OpJoin:          {domain.RoleAdmin, domain.RoleVIP, domain.RoleNormal},
	OpSubmit:        {domain.RoleAdmin, domain.RoleVIP, domain.RoleNormal},
	OpScore:         {domain.RoleAdmin},
	OpAwardPrize:    {domain.RoleAdmin, domain.RoleVIP},
}

// Allowed reports whether role may invoke op.
func Allowed(op Operation, role domain.Role) bool {
	for _, r := range permissions[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Service contains the contest engine use cases: contest authoring,
// participation, scoring, ranking, and prize settlement.
type Service struct {
	store Store
	keys  AnswerKeyRepository
	log   *logrus.Logger
	now   func() time.Time
}

func NewService(store Store, keys AnswerKeyRepository, log *logrus.Logger) *Service {
	return &Service{store: store, keys: keys, log: log, now: time.Now}
}

// NewServiceWithClock is test-only for deterministic timestamps.
func NewServiceWithClock(store Store, keys AnswerKeyRepository, log *logrus.Logger, now func() time.Time) *Service {
	return &Service{store: store, keys: keys, log: log, now: now}
}
