package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, NotificationRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return db, mock, NewNotificationRepository(gdb)
}

const markAsReadSQL = `UPDATE "notifications" SET "is_read"=$1 WHERE id = $2 AND user_id = $3`

func TestMarkAsRead_Owned(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	id, userID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(markAsReadSQL)).
		WithArgs(true, id, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	found, err := repo.MarkAsRead(context.Background(), id, userID)

	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAsRead_NotOwnedTouchesNothing(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	id, otherUser := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(markAsReadSQL)).
		WithArgs(true, id, otherUser).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	found, err := repo.MarkAsRead(context.Background(), id, otherUser)

	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUnread(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "notifications" WHERE user_id = $1 AND is_read = $2`)).
		WithArgs(userID, false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountUnread(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
