package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webstarter/internal/domain"
)

func seedUsers(t *testing.T, f *fixture, n int) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		require.NoError(t, f.users.Create(context.Background(), &domain.User{
			ID:        fmt.Sprintf("u-%02d", i),
			Email:     fmt.Sprintf("user%02d@example.com", i),
			Name:      fmt.Sprintf("User %02d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestNormalizePage(t *testing.T) {
	cases := []struct{ page, limit, wantPage, wantLimit int }{
		{1, 10, 1, 10},
		{0, 0, 1, 10},
		{-3, -1, 1, 10},
		{2, 500, 2, 100},
		{5, 25, 5, 25},
	}
	for _, tc := range cases {
		page, limit := NormalizePage(tc.page, tc.limit)
		assert.Equal(t, tc.wantPage, page)
		assert.Equal(t, tc.wantLimit, limit)
	}
}

func TestList_Pagination(t *testing.T) {
	f := newFixture(t)
	seedUsers(t, f, 12)

	listing, err := f.userSvc.List(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.Page{Page: 2, Limit: 5, Total: 12, TotalPages: 3}, listing.Pagination)
	require.Len(t, listing.Users, 5)
	assert.Equal(t, "u-06", listing.Users[0].ID)

	last, err := f.userSvc.List(context.Background(), 3, 5)
	require.NoError(t, err)
	assert.Len(t, last.Users, 2)
}

func TestList_EmptyStore(t *testing.T) {
	f := newFixture(t)

	listing, err := f.userSvc.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, listing.Users)
	assert.Empty(t, listing.Users)
	assert.Equal(t, domain.Page{Page: 1, Limit: 10}, listing.Pagination)
}

func TestList_CacheHitSkipsDatabase(t *testing.T) {
	f := newFixture(t)
	seedUsers(t, f, 3)
	ctx := context.Background()

	first, err := f.userSvc.List(ctx, 1, 10)
	require.NoError(t, err)
	second, err := f.userSvc.List(ctx, 1, 10)
	require.NoError(t, err)

	assert.Equal(t, first.Pagination, second.Pagination)
	assert.Equal(t, first.Users, second.Users)
	assert.Equal(t, 1, f.users.listCalls)
	assert.Equal(t, 1, f.users.countCalls)
	assert.Equal(t, UserListingTTL, f.mr.TTL("cache:users:page:1:limit:10"))
}

func TestList_CacheExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.userSvc.List(ctx, 1, 10)
	require.NoError(t, err)
	f.mr.FastForward(UserListingTTL + time.Second)

	_, err = f.userSvc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, f.users.listCalls)
}

func TestCreate_InvalidatesListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.userSvc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, before.Pagination.Total)

	created, err := f.userSvc.Create(ctx, "demo@example.com", "Demo")
	require.NoError(t, err)
	assert.Equal(t, "demo@example.com", created.Email)

	after, err := f.userSvc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Pagination.Total)
	assert.Equal(t, 2, f.users.listCalls)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, tc := range []struct{ email, name, message string }{
		{"", "Demo", "Name and email are required"},
		{"demo@example.com", "", "Name and email are required"},
		{"nope", "Demo", "Invalid email address"},
	} {
		_, err := f.userSvc.Create(ctx, tc.email, tc.name)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, tc.message, verr.Message)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.userSvc.Create(ctx, "demo@example.com", "Demo")
	require.NoError(t, err)
	_, err = f.userSvc.Create(ctx, "demo@example.com", "Demo 2")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.auth.Register(ctx, "alice@example.com", "secret123", "Alice")
	require.NoError(t, err)

	user, err := f.userSvc.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Empty(t, user.PasswordHash)

	_, err = f.userSvc.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestList_CacheUnavailableFallsBackToDatabase(t *testing.T) {
	f := newFixture(t)
	seedUsers(t, f, 2)
	f.mr.Close()

	listing, err := f.userSvc.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Pagination.Total)
}
