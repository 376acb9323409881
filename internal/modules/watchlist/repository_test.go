package watchlist

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testhelpers "github.com/aristath/arbscan/internal/testing"
)

func repoUnderTest(t *testing.T, name string) Repository {
	t.Helper()
	switch name {
	case "memory":
		return NewMemoryRepository()
	case "sqlite":
		db, cleanup := testhelpers.NewTestDB(t, "watchlist")
		t.Cleanup(cleanup)
		return NewSQLiteRepository(db, zerolog.Nop())
	default:
		t.Fatalf("unknown repository %s", name)
		return nil
	}
}

func entry(code, name string, enabled bool) *Entry {
	return &Entry{
		StockCode: code,
		StockName: name,
		Enabled:   enabled,
		AddedAt:   time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestRepository_Contract(t *testing.T) {
	for _, impl := range []string{"memory", "sqlite"} {
		t.Run(impl, func(t *testing.T) {
			repo := repoUnderTest(t, impl)
			ctx := context.Background()

			require.NoError(t, repo.Upsert(ctx, entry("600519", "Kweichow Moutai", true)))
			require.NoError(t, repo.Upsert(ctx, entry("300750", "CATL", true)))
			require.NoError(t, repo.Upsert(ctx, entry("000001", "Ping An Bank", false)))

			got, err := repo.Get(ctx, "600519")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "Kweichow Moutai", got.StockName)

			missing, err := repo.Get(ctx, "999999")
			require.NoError(t, err)
			assert.Nil(t, missing)

			all, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "000001", all[0].StockCode)

			codes, err := repo.EnabledCodes(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"300750", "600519"}, codes)

			require.NoError(t, repo.SetEnabled(ctx, "600519", false))
			codes, err = repo.EnabledCodes(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"300750"}, codes)

			count, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, count)

			require.NoError(t, repo.Remove(ctx, "000001"))
			count, err = repo.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, count)
		})
	}
}

func TestRepository_UpsertReplaces(t *testing.T) {
	for _, impl := range []string{"memory", "sqlite"} {
		t.Run(impl, func(t *testing.T) {
			repo := repoUnderTest(t, impl)
			ctx := context.Background()

			require.NoError(t, repo.Upsert(ctx, entry("600519", "Kweichow Moutai", true)))
			updated := entry("600519", "Moutai", false)
			updated.Note = "reduced exposure"
			require.NoError(t, repo.Upsert(ctx, updated))

			got, err := repo.Get(ctx, "600519")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "Moutai", got.StockName)
			assert.False(t, got.Enabled)
			assert.Equal(t, "reduced exposure", got.Note)

			count, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}

func TestRepository_RejectsInvalidEntry(t *testing.T) {
	repo := NewMemoryRepository()
	err := repo.Upsert(context.Background(), &Entry{StockName: "nameless"})
	assert.Error(t, err)
}
