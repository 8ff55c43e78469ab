package repository

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"lcnetwork/internal/models"
	"lcnetwork/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestQueueRepository_LockIsOneConditionalUpdate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewQueueRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "moderation_queue" SET "assigned_to"=$1,"locked_at"=$2,"status"=$3 WHERE id = $4 AND status = $5`)).
		WithArgs(7, sqlmock.AnyArg(), models.QueueStatusLocked, 3, models.QueueStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Lock(context.Background(), 3, 7, time.Now())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_LockOutcomes(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewQueueRepository(db)
	ctx := context.Background()

	pending := &models.ModerationQueueItem{TargetType: models.QueueTargetPost, TargetID: 1, Source: models.QueueSourceManualReview}
	require.NoError(t, repo.Enqueue(ctx, pending))

	require.NoError(t, repo.Lock(ctx, pending.ID, 10, time.Now()))

	var appErr *models.AppError
	err := repo.Lock(ctx, pending.ID, 11, time.Now())
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeConflict, appErr.Code)

	got, err := repo.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusLocked, got.Status)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, uint(10), *got.AssignedTo)

	_, err = repo.CompleteOpen(ctx, models.QueueTargetPost, 1, 10, time.Now())
	require.NoError(t, err)
	err = repo.Lock(ctx, pending.ID, 10, time.Now())
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeValidation, appErr.Code)

	err = repo.Lock(ctx, 999, 10, time.Now())
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestQueueRepository_ListPendingOrder(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewQueueRepository(db)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	items := []models.ModerationQueueItem{
		{TargetType: models.QueueTargetPost, TargetID: 1, Source: models.QueueSourceManualReview, Priority: 0, CreatedAt: base},
		{TargetType: models.QueueTargetPost, TargetID: 2, Source: models.QueueSourceAIFlagged, Priority: 8, CreatedAt: base.Add(time.Minute)},
		{TargetType: models.QueueTargetPost, TargetID: 3, Source: models.QueueSourceUserReport, Priority: 8, CreatedAt: base.Add(2 * time.Minute)},
		{TargetType: models.QueueTargetPost, TargetID: 4, Source: models.QueueSourceManualReview, Priority: 0, CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range items {
		require.NoError(t, repo.Enqueue(ctx, &items[i]))
	}
	require.NoError(t, repo.Lock(ctx, items[3].ID, 5, time.Now()))

	got, total, err := repo.ListPending(ctx, NewPage(1, 20, 20))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, got, 3)
	assert.Equal(t, []uint{2, 3, 1}, []uint{got[0].TargetID, got[1].TargetID, got[2].TargetID})
}

func TestQueueRepository_ConcurrentLockHasOneWinner(t *testing.T) {
	pg := requirePostgres(t)
	repo := NewQueueRepository(pg)
	ctx := context.Background()

	item := &models.ModerationQueueItem{TargetType: models.QueueTargetAvatar, TargetID: uint(time.Now().UnixNano() % 1e6), Source: models.QueueSourceManualReview}
	require.NoError(t, repo.Enqueue(ctx, item))

	const moderators = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 1; i <= moderators; i++ {
		wg.Add(1)
		go func(mod uint) {
			defer wg.Done()
			if err := repo.Lock(ctx, item.ID, mod, time.Now()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(uint(i))
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
