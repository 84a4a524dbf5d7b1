package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"contest-service/internal/app"
	"contest-service/internal/domain"
	pgstore "contest-service/internal/infra/postgres"
	pgmigrations "contest-service/internal/infra/postgres/migrations"
	infraredis "contest-service/internal/infra/redis"
)

func TestContestEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(t, ctx, pgURL)
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	store := pgstore.NewStore(db)
	keys := infraredis.NewAnswerKeyCache(redisClient, pgstore.NewAnswerKeyLoader(pool), 5*time.Minute)
	log := logrus.New()
	log.SetOutput(io.Discard)
	service := app.NewService(store, keys, log)

	admin := seedUser(t, ctx, store, "Admin", "admin@example.com", domain.RoleAdmin)
	alice := seedUser(t, ctx, store, "Alice", "alice@example.com", domain.RoleNormal)
	bob := seedUser(t, ctx, store, "Bob", "bob@example.com", domain.RoleNormal)

	contest, err := service.CreateContest(ctx, admin, app.ContestInput{Title: "Math Sprint", Prize: "gold medal"})
	if err != nil {
		t.Fatalf("create contest: %v", err)
	}
	question, err := service.AddQuestion(ctx, admin, contest.ID, app.QuestionInput{
		Text: "What is 2 + 2?",
		Type: "single",
		Options: []app.OptionInput{
			{Text: "3", Correct: false},
			{Text: "4", Correct: true},
			{Text: "5", Correct: false},
		},
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	var correctID, wrongID int64
	for _, o := range question.Options {
		if o.Correct {
			correctID = o.ID
		} else if wrongID == 0 {
			wrongID = o.ID
		}
	}

	pAlice, err := service.Join(ctx, alice, contest.ID)
	if err != nil {
		t.Fatalf("alice join: %v", err)
	}
	pBob, err := service.Join(ctx, bob, contest.ID)
	if err != nil {
		t.Fatalf("bob join: %v", err)
	}

	if err := service.Submit(ctx, alice, pAlice.ID, []domain.Answer{{QuestionID: question.ID, OptionID: correctID}}); err != nil {
		t.Fatalf("alice submit: %v", err)
	}
	if err := service.Submit(ctx, bob, pBob.ID, []domain.Answer{{QuestionID: question.ID, OptionID: wrongID}}); err != nil {
		t.Fatalf("bob submit: %v", err)
	}

	if score, err := service.Score(ctx, admin, pAlice.ID); err != nil || score != 1 {
		t.Fatalf("alice score = %d err=%v, want 1", score, err)
	}
	if score, err := service.Score(ctx, admin, pBob.ID); err != nil || score != 0 {
		t.Fatalf("bob score = %d err=%v, want 0", score, err)
	}

	entries, err := service.Rank(ctx, contest.ID)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 standings, got %+v", entries)
	}
	if entries[0].UserName != "Alice" || entries[0].Rank != 1 || entries[0].Score != 1 {
		t.Fatalf("expected alice leading, got %+v", entries)
	}
	if entries[1].UserName != "Bob" || entries[1].Rank != 2 {
		t.Fatalf("expected bob second, got %+v", entries)
	}

	record, err := service.AwardPrize(ctx, admin, contest.ID)
	if err != nil {
		t.Fatalf("award prize: %v", err)
	}
	if record.UserID != alice.UserID || record.Prize != "gold medal" {
		t.Fatalf("unexpected prize record %+v", record)
	}
}

func TestJoinAndAwardRacesAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(t, ctx, pgURL)
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	store := pgstore.NewStore(db)
	keys := infraredis.NewAnswerKeyCache(redisClient, pgstore.NewAnswerKeyLoader(pool), 5*time.Minute)
	log := logrus.New()
	log.SetOutput(io.Discard)
	service := app.NewService(store, keys, log)

	admin := seedUser(t, ctx, store, "Admin", "admin@example.com", domain.RoleAdmin)
	alice := seedUser(t, ctx, store, "Alice", "alice@example.com", domain.RoleNormal)

	contest, err := service.CreateContest(ctx, admin, app.ContestInput{Title: "Race", Prize: "cup"})
	if err != nil {
		t.Fatalf("create contest: %v", err)
	}
	question, err := service.AddQuestion(ctx, admin, contest.ID, app.QuestionInput{
		Text: "Pick one",
		Type: "single",
		Options: []app.OptionInput{
			{Text: "a", Correct: true},
			{Text: "b", Correct: false},
		},
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}

	// Same user joining concurrently must yield exactly one participation.
	const workers = 8
	var wg sync.WaitGroup
	joins := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Join(ctx, alice, contest.ID)
			joins <- err
		}()
	}
	wg.Wait()
	close(joins)

	var ok, conflicts int
	for err := range joins {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyJoined):
			conflicts++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	if ok != 1 || conflicts != workers-1 {
		t.Fatalf("joins ok=%d conflicts=%d, want 1/%d", ok, conflicts, workers-1)
	}

	participation, found, err := store.ParticipationByUser(ctx, alice.UserID, contest.ID)
	if err != nil || !found {
		t.Fatalf("participation lookup: found=%v err=%v", found, err)
	}
	if err := service.Submit(ctx, alice, participation.ID, []domain.Answer{{QuestionID: question.ID, OptionID: question.Options[0].ID}}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Concurrent settlement must award exactly once.
	awards := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.AwardPrize(ctx, admin, contest.ID)
			awards <- err
		}()
	}
	wg.Wait()
	close(awards)

	ok, conflicts = 0, 0
	for err := range awards {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyAwarded):
			conflicts++
		default:
			t.Fatalf("unexpected award error: %v", err)
		}
	}
	if ok != 1 || conflicts != workers-1 {
		t.Fatalf("awards ok=%d conflicts=%d, want 1/%d", ok, conflicts, workers-1)
	}
}

func seedUser(t *testing.T, ctx context.Context, store *pgstore.Store, name, email string, role domain.Role) domain.Principal {
	t.Helper()
	user := domain.User{Name: name, Email: email, PasswordHash: "x", Role: role}
	if err := store.CreateUser(ctx, &user); err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return domain.Principal{UserID: user.ID, Name: name, Role: role}
}

func openBun(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "contest", "POSTGRES_PASSWORD": "contestpass", "POSTGRES_DB": "contestdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://contest:contestpass@%s:%s/contestdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
