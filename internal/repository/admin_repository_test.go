package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursehub-api/internal/models"
)

func TestAdminCreateWithPrincipalSingleConnectionPool(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	db.SetMaxOpenConns(1)
	repo := NewAdminRepository(db)
	principals := NewPrincipalRepository(db)

	mock.ExpectExec("INSERT INTO principals").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO admins").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	admin := &models.Admin{Name: "Root", Email: "root@example.com"}
	err := repo.CreateWithPrincipal(ctx, admin, func(ctx context.Context) (string, error) {
		principal := &models.Principal{Email: admin.Email, PasswordHash: "hash"}
		if err := principals.Create(ctx, principal); err != nil {
			return "", err
		}
		return principal.ID, nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, admin.PrincipalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminCreateWithPrincipalInsertFailureKeepsPrincipalID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO admins").WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	admin := &models.Admin{Name: "Root", Email: "root@example.com"}
	err := repo.CreateWithPrincipal(context.Background(), admin, func(context.Context) (string, error) {
		return "p1", nil
	})
	require.Error(t, err)
	assert.Equal(t, "p1", admin.PrincipalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
