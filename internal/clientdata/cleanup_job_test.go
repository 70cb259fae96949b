package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	require.NoError(t, repo.Store("finnhub_search", "expired", []cachedHit{}, -time.Hour))
	require.NoError(t, repo.Store("finnhub_search", "fresh", []cachedHit{}, time.Hour))
	require.NoError(t, repo.Store("finnhub_profile", "AAPL", "Apple Inc.", -time.Minute))

	require.NoError(t, job.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT (SELECT COUNT(*) FROM finnhub_search) + (SELECT COUNT(*) FROM finnhub_profile)").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCleanupJobRunEmptyTables(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.NoError(t, job.Run())
}
