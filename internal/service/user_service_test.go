package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chat-app-be/internal/dto"
	"chat-app-be/internal/entity"
	"chat-app-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_List(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store, logger.NewNopLogger())

	me := store.users.add(&entity.User{Name: "Me"})
	bob := store.users.add(&entity.User{Name: "Bob"})
	amy := store.users.add(&entity.User{Name: "Amy"})
	seen := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	store.presence.byID[bob.Id] = &entity.Presence{UserId: bob.Id, IsOnline: true, LastSeen: seen}

	users, err := svc.List(context.Background(), me.Id)
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, amy.Id, users[0].Id)
	assert.False(t, users[0].IsOnline)
	assert.Nil(t, users[0].LastSeen)

	assert.Equal(t, bob.Id, users[1].Id)
	assert.True(t, users[1].IsOnline)
	assert.Equal(t, seen, *users[1].LastSeen)
}

func TestUserService_UpdatePartial(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store, logger.NewNopLogger())
	u := store.users.add(&entity.User{Name: "Old", Mobile: strPtr("+1555")})

	res, err := svc.Update(context.Background(), u.Id, &dto.UpdateUserRequest{
		Name:  strPtr("  New Name "),
		Email: strPtr("NEW@Example.com"),
	})
	require.NoError(t, err)

	assert.Equal(t, "New Name", res.Name)
	assert.Equal(t, "new@example.com", *res.Email)
	assert.Equal(t, "+1555", *res.Mobile, "absent fields are untouched")
}

func TestUserService_UpdateContactInUse(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store, logger.NewNopLogger())
	store.users.add(&entity.User{Name: "Taken", Email: strPtr("taken@example.com")})
	u := store.users.add(&entity.User{Name: "Me"})

	_, err := svc.Update(context.Background(), u.Id, &dto.UpdateUserRequest{Email: strPtr("taken@example.com")})
	assert.ErrorIs(t, err, ErrContactInUse)
}

func TestUserService_UpdateUniqueViolationFromDB(t *testing.T) {
	store := newFakeStore()
	store.users.updateErr = fmt.Errorf("save: %w", &pgconn.PgError{Code: "23505"})
	svc := NewUserService(store, logger.NewNopLogger())
	u := store.users.add(&entity.User{Name: "Me"})

	_, err := svc.Update(context.Background(), u.Id, &dto.UpdateUserRequest{Mobile: strPtr("+4470000")})
	assert.ErrorIs(t, err, ErrContactInUse)
}

func TestUserService_GetByIDNotFound(t *testing.T) {
	svc := NewUserService(newFakeStore(), logger.NewNopLogger())

	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_DeleteSelfOnly(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store, logger.NewNopLogger())
	me := store.users.add(&entity.User{Name: "Me"})
	other := store.users.add(&entity.User{Name: "Other"})

	assert.ErrorIs(t, svc.Delete(context.Background(), me.Id, other.Id), ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), me.Id, me.Id))
	assert.NotContains(t, store.users.byID, me.Id)
}
