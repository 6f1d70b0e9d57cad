package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-library/internal/models"
	"ms-library/internal/penalty/db"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	for _, model := range []interface{}{
		(*models.User)(nil),
		(*models.PenaltyRecord)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(context.Background()); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func seedUser(t *testing.T, bunDB *bun.DB, points int) models.User {
	user := models.User{
		ID:            uuid.New().String(),
		Name:          "reader-" + uuid.New().String()[:8],
		Email:         uuid.New().String() + "@example.com",
		PasswordHash:  "x",
		Role:          models.RoleUser,
		PenaltyPoints: points,
		CreatedAt:     time.Now(),
	}
	_, err := bunDB.NewInsert().Model(&user).Exec(context.Background())
	assert.NoError(t, err)
	return user
}

func TestApplyAddsRecordAndTotal(t *testing.T) {
	penaltyDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := seedUser(t, bunDB, 5)

	rec := models.PenaltyRecord{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Description: "Table reservation missed",
		CreatedAt:   time.Now(),
	}
	err := penaltyDB.Apply(context.Background(), rec, 5)
	assert.NoError(t, err)

	total, err := penaltyDB.Total(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 10, total)

	records, err := penaltyDB.ListByUser(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "Table reservation missed", records[0].Description)
}

func TestApplyFloorsTotalAtZero(t *testing.T) {
	penaltyDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := seedUser(t, bunDB, 3)

	rec := models.PenaltyRecord{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Description: "Administrative adjustment",
		CreatedAt:   time.Now(),
	}
	err := penaltyDB.Apply(context.Background(), rec, -10)
	assert.NoError(t, err)

	total, err := penaltyDB.Total(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestLatestRecordAt(t *testing.T) {
	penaltyDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := seedUser(t, bunDB, 0)

	_, ok, err := penaltyDB.LatestRecordAt(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.False(t, ok)

	older := models.PenaltyRecord{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Description: "first",
		CreatedAt:   time.Now().Add(-48 * time.Hour),
	}
	newer := models.PenaltyRecord{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Description: "second",
		CreatedAt:   time.Now().Add(-1 * time.Hour),
	}
	assert.NoError(t, penaltyDB.Apply(context.Background(), older, 5))
	assert.NoError(t, penaltyDB.Apply(context.Background(), newer, 5))

	last, ok, err := penaltyDB.LatestRecordAt(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.WithinDuration(t, newer.CreatedAt, last, time.Second)
}

func TestResetTotal(t *testing.T) {
	penaltyDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := seedUser(t, bunDB, 15)

	err := penaltyDB.ResetTotal(context.Background(), user.ID)
	assert.NoError(t, err)

	total, err := penaltyDB.Total(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, total)
}
