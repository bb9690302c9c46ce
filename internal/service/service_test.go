package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"webstarter/internal/auth"
	"webstarter/internal/cache"
	"webstarter/internal/domain"
	"webstarter/internal/repository"
	"webstarter/internal/repository/sqlite"
)

type fixture struct {
	db       *sql.DB
	mr       *miniredis.Miniredis
	store    *cache.Store
	users    *countingUsers
	sessions repository.SessionRepository
	issuer   *auth.Issuer
	guard    *auth.Guard
	auth     AuthService
	userSvc  UserService
	logs     *test.Hook
}

// countingUsers records how often listing queries reach the database.
type countingUsers struct {
	repository.UserRepository
	listCalls  int
	countCalls int
}

func (c *countingUsers) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	c.listCalls++
	return c.UserRepository.List(ctx, limit, offset)
}

func (c *countingUsers) Count(ctx context.Context) (int, error) {
	c.countCalls++
	return c.UserRepository.Count(ctx)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db))

	mr := miniredis.RunT(t)
	store := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { store.Close() })

	issuer, err := auth.NewIssuer("test-secret", 7*24*time.Hour)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	users := &countingUsers{UserRepository: sqlite.NewUserRepository(db)}
	sessions := sqlite.NewSessionRepository(db)

	authSvc := NewAuthService(users, sessions, store, store, issuer, logger)
	authSvc.(*authService).hashCost = bcrypt.MinCost

	return &fixture{
		db:       db,
		mr:       mr,
		store:    store,
		users:    users,
		sessions: sessions,
		issuer:   issuer,
		guard:    auth.NewGuard(issuer, store),
		auth:     authSvc,
		userSvc:  NewUserService(users, store, logger),
		logs:     hook,
	}
}
