package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/camera-management/internal/database"
	"github.com/iliyamo/camera-management/internal/model"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	repo := NewUserRepo(database.NewTestDB(t))
	ctx := context.Background()

	u := &model.User{Username: "  ops1 ", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, u))

	_, err := uuid.Parse(u.ID)
	require.NoError(t, err, "id must be a uuid")
	assert.Equal(t, "ops1", u.Username)
	assert.Equal(t, model.RoleOperator, u.Role, "role defaults to Operator")
	assert.False(t, u.CreatedAt.IsZero())

	byName, err := repo.GetByUsername(ctx, "ops1 ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, "hash", byName.PasswordHash)
	assert.Equal(t, model.RoleOperator, byName.Role)
	assert.True(t, u.CreatedAt.Equal(byName.CreatedAt))

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ops1", byID.Username)
}

func TestUserRepo_DuplicateUsername(t *testing.T) {
	repo := NewUserRepo(database.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.User{Username: "ops1", PasswordHash: "h1"}))
	err := repo.Create(ctx, &model.User{Username: "ops1", PasswordHash: "h2", Role: model.RoleAdmin})
	assert.ErrorIs(t, err, ErrUsernameExists)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUserRepo_NotFound(t *testing.T) {
	repo := NewUserRepo(database.NewTestDB(t))

	_, err := repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepo_MySQLDuplicateMapsToExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ops1' for key 'username'"})

	err = NewUserRepo(db).Create(context.Background(), &model.User{Username: "ops1", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrUsernameExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_StoreFailureIsWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery("SELECT (.+) FROM users WHERE username=").WillReturnError(boom)

	_, err = NewUserRepo(db).GetByUsername(context.Background(), "ops1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isUniqueViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, isUniqueViolation(errors.New("1062")))
	assert.False(t, isUniqueViolation(nil))
}
