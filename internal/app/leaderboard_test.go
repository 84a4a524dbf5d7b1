package app_test

import (
	"context"
	"testing"
	"time"

	"contest-service/internal/domain"
)

// seed creates a contest with one question and joins+submits the named users
// with the given answers, advancing the clock between submissions.
func TestRankOrdersByScoreThenSubmissionTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contest := f.contest(t, domain.AccessPublic)
	q1 := f.question(t, contest.ID)
	q2 := f.question(t, contest.ID)

	type entry struct {
		name    string
		answers []domain.Answer
	}
	// carol and bob tie on score; bob submits earlier.
	plan := []entry{
		{"alice", []domain.Answer{
			{QuestionID: q1.ID, OptionID: correctOption(t, q1).ID},
			{QuestionID: q2.ID, OptionID: correctOption(t, q2).ID},
		}},
		{"bob", []domain.Answer{
			{QuestionID: q1.ID, OptionID: correctOption(t, q1).ID},
			{QuestionID: q2.ID, OptionID: wrongOption(t, q2).ID},
		}},
		{"carol", []domain.Answer{
			{QuestionID: q1.ID, OptionID: wrongOption(t, q1).ID},
			{QuestionID: q2.ID, OptionID: correctOption(t, q2).ID},
		}},
	}
	for _, e := range plan {
		principal := f.user(t, e.name, domain.RoleNormal)
		participation, err := f.service.Join(ctx, principal, contest.ID)
		if err != nil {
			t.Fatalf("%s join: %v", e.name, err)
		}
		if err := f.service.Submit(ctx, principal, participation.ID, e.answers); err != nil {
			t.Fatalf("%s submit: %v", e.name, err)
		}
		if _, err := f.service.Score(ctx, admin, participation.ID); err != nil {
			t.Fatalf("%s score: %v", e.name, err)
		}
		f.clock.Advance(time.Minute)
	}

	entries, err := f.service.Rank(ctx, contest.ID)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	want := []domain.LeaderboardEntry{
		{Rank: 1, UserName: "alice", Score: 2},
		{Rank: 2, UserName: "bob", Score: 1},
		{Rank: 3, UserName: "carol", Score: 1},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], entries[i])
		}
	}
}

func TestRankExcludesJoinedParticipations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contest := f.contest(t, domain.AccessPublic)
	question := f.question(t, contest.ID)

	lurker := f.user(t, "lurker", domain.RoleNormal)
	if _, err := f.service.Join(ctx, lurker, contest.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	active := f.user(t, "active", domain.RoleNormal)
	participation, _ := f.service.Join(ctx, active, contest.ID)
	if err := f.service.Submit(ctx, active, participation.ID, []domain.Answer{
		{QuestionID: question.ID, OptionID: correctOption(t, question).ID},
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.service.Score(ctx, admin, participation.ID); err != nil {
		t.Fatalf("score: %v", err)
	}

	entries, err := f.service.Rank(ctx, contest.ID)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(entries) != 1 || entries[0].UserName != "active" {
		t.Fatalf("expected only the submitted participant, got %+v", entries)
	}
}

func TestRankTieBreakByParticipationID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contest := f.contest(t, domain.AccessPublic)
	question := f.question(t, contest.ID)

	// Same score, same submission instant: lower participation ID wins.
	answers := []domain.Answer{{QuestionID: question.ID, OptionID: correctOption(t, question).ID}}
	var ids []int64
	for _, name := range []string{"first", "second"} {
		principal := f.user(t, name, domain.RoleNormal)
		participation, _ := f.service.Join(ctx, principal, contest.ID)
		if err := f.service.Submit(ctx, principal, participation.ID, answers); err != nil {
			t.Fatalf("%s submit: %v", name, err)
		}
		ids = append(ids, participation.ID)
	}

	entries, err := f.service.Rank(ctx, contest.ID)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if ids[0] >= ids[1] {
		t.Fatalf("test assumes increasing participation IDs, got %v", ids)
	}
	if entries[0].UserName != "first" || entries[1].UserName != "second" {
		t.Fatalf("expected id tie-break ordering [first second], got %+v", entries)
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 {
		t.Fatalf("ranks must be strictly sequential even on ties, got %+v", entries)
	}
}

func TestRankEmptyContest(t *testing.T) {
	f := newFixture(t)
	entries, err := f.service.Rank(context.Background(), 42)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty leaderboard, got %+v", entries)
	}
}
