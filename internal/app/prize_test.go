package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"contest-service/internal/domain"
)

func awardFixture(t *testing.T) (*fixture, domain.Contest, domain.Principal) {
	t.Helper()
	f := newFixture(t)
	contest := f.contest(t, domain.AccessPublic)
	question := f.question(t, contest.ID)

	winner := f.user(t, "winner", domain.RoleNormal)
	participation, err := f.service.Join(context.Background(), winner, contest.ID)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	err = f.service.Submit(context.Background(), winner, participation.ID, []domain.Answer{
		{QuestionID: question.ID, OptionID: correctOption(t, question).ID},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.service.Score(context.Background(), admin, participation.ID); err != nil {
		t.Fatalf("score: %v", err)
	}
	f.clock.Advance(time.Minute)

	// A slower runner-up with a lower score.
	runnerUp := f.user(t, "runnerup", domain.RoleNormal)
	p2, _ := f.service.Join(context.Background(), runnerUp, contest.ID)
	if err := f.service.Submit(context.Background(), runnerUp, p2.ID, []domain.Answer{
		{QuestionID: question.ID, OptionID: wrongOption(t, question).ID},
	}); err != nil {
		t.Fatalf("runner-up submit: %v", err)
	}
	return f, contest, winner
}

func TestAwardPrizePicksTopRanked(t *testing.T) {
	f, contest, winner := awardFixture(t)

	record, err := f.service.AwardPrize(context.Background(), admin, contest.ID)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if record.UserID != winner.UserID {
		t.Fatalf("expected winner %d, got %d", winner.UserID, record.UserID)
	}
	if record.Prize != contest.Prize {
		t.Fatalf("expected prize %q, got %q", contest.Prize, record.Prize)
	}
}

func TestAwardPrizeTwiceConflicts(t *testing.T) {
	f, contest, _ := awardFixture(t)
	ctx := context.Background()

	if _, err := f.service.AwardPrize(ctx, admin, contest.ID); err != nil {
		t.Fatalf("first award: %v", err)
	}
	if _, err := f.service.AwardPrize(ctx, admin, contest.ID); err != domain.ErrAlreadyAwarded {
		t.Fatalf("expected already awarded, got %v", err)
	}
}

func TestAwardPrizeConcurrent(t *testing.T) {
	f, contest, _ := awardFixture(t)
	ctx := context.Background()

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.AwardPrize(ctx, admin, contest.ID)
		}(i)
	}
	wg.Wait()

	awarded := 0
	for _, err := range errs {
		switch err {
		case nil:
			awarded++
		case domain.ErrAlreadyAwarded:
		default:
			t.Fatalf("unexpected award error: %v", err)
		}
	}
	if awarded != 1 {
		t.Fatalf("expected exactly one successful award, got %d", awarded)
	}
	if _, ok, _ := f.store.PrizeRecordByContest(ctx, contest.ID); !ok {
		t.Fatal("expected a single prize record to exist")
	}
}

func TestAwardPrizeRequiresSubmissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contest := f.contest(t, domain.AccessPublic)

	// A joined-but-silent participant does not count.
	lurker := f.user(t, "lurker", domain.RoleNormal)
	if _, err := f.service.Join(ctx, lurker, contest.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := f.service.AwardPrize(ctx, admin, contest.ID); err != domain.ErrNoSubmissions {
		t.Fatalf("expected no submissions, got %v", err)
	}
}

func TestAwardPrizeAuthorization(t *testing.T) {
	f, contest, _ := awardFixture(t)
	ctx := context.Background()

	normal := f.user(t, "normal", domain.RoleNormal)
	if _, err := f.service.AwardPrize(ctx, normal, contest.ID); err != domain.ErrForbidden {
		t.Fatalf("expected forbidden for NORMAL, got %v", err)
	}

	vip := f.user(t, "vip", domain.RoleVIP)
	if _, err := f.service.AwardPrize(ctx, vip, contest.ID); err != nil {
		t.Fatalf("VIP award should succeed: %v", err)
	}
}
