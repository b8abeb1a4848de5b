package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/demarchi-food/pricecontrol-api/internal/domain"
	"github.com/demarchi-food/pricecontrol-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRunTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.AnalysisRun{}))
	t.Cleanup(func() {
		db.Exec("DELETE FROM analysis_runs")
	})
	return db
}

func TestAnalysisRunRepository_Create(t *testing.T) {
	db := setupRunTestDB(t)
	repo := repository.NewAnalysisRunRepository(db)

	run := &domain.AnalysisRun{
		Month:        "2025-03",
		TriggeredBy:  domain.RunTriggerAPI,
		OrderCount:   12,
		LineCount:    87,
		SkippedLines: 2,
		DurationMs:   1534,
		Succeeded:    true,
	}

	err := repo.Create(context.Background(), run)
	require.NoError(t, err)
	assert.NotEqual(t, "", run.ID.String())

	found, err := repo.ListByMonth(context.Background(), "2025-03")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, domain.RunTriggerAPI, found[0].TriggeredBy)
	assert.Equal(t, 87, found[0].LineCount)
	assert.True(t, found[0].Succeeded)
}

func TestAnalysisRunRepository_CreateFailedRun(t *testing.T) {
	db := setupRunTestDB(t)
	repo := repository.NewAnalysisRunRepository(db)

	run := &domain.AnalysisRun{
		Month:       "2025-03",
		TriggeredBy: domain.RunTriggerScheduled,
		Succeeded:   false,
		Error:       "loading orders: connection refused",
	}

	require.NoError(t, repo.Create(context.Background(), run))

	found, err := repo.ListByMonth(context.Background(), "2025-03")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.False(t, found[0].Succeeded)
	assert.Contains(t, found[0].Error, "connection refused")
}

func TestAnalysisRunRepository_ListRecent(t *testing.T) {
	db := setupRunTestDB(t)
	repo := repository.NewAnalysisRunRepository(db)

	base := time.Date(2025, time.April, 1, 7, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := &domain.AnalysisRun{
			Month:       fmt.Sprintf("2025-0%d", i+1),
			TriggeredBy: domain.RunTriggerAPI,
			Succeeded:   true,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.Create(context.Background(), run))
	}

	runs, err := repo.ListRecent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Newest first
	assert.Equal(t, "2025-05", runs[0].Month)
	assert.Equal(t, "2025-04", runs[1].Month)
	assert.Equal(t, "2025-03", runs[2].Month)
}

func TestAnalysisRunRepository_ListRecentClampsLimit(t *testing.T) {
	db := setupRunTestDB(t)
	repo := repository.NewAnalysisRunRepository(db)

	for i := 0; i < 25; i++ {
		run := &domain.AnalysisRun{Month: "2025-03", TriggeredBy: domain.RunTriggerAPI}
		require.NoError(t, repo.Create(context.Background(), run))
	}

	// Zero and out-of-range limits fall back to the default of 20
	runs, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 20)

	runs, err = repo.ListRecent(context.Background(), 500)
	require.NoError(t, err)
	assert.Len(t, runs, 20)
}

func TestAnalysisRunRepository_ListByMonth_Empty(t *testing.T) {
	db := setupRunTestDB(t)
	repo := repository.NewAnalysisRunRepository(db)

	runs, err := repo.ListByMonth(context.Background(), "1999-01")
	require.NoError(t, err)
	assert.Empty(t, runs)
}
