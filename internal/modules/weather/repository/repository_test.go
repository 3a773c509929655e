package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wslink-server/internal/migrate"
	"wslink-server/internal/modules/weather/types"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "weather.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})
	require.NoError(t, migrate.Run(db, "sqlite3"))
	return db
}

func setupRepo(t *testing.T) WeatherRepository {
	t.Helper()
	repo, err := NewRepository(setupTestDB(t), "sqlite3")
	require.NoError(t, err)
	return repo
}

func ptr[T any](v T) *T { return &v }

var base = time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)

func TestNewRepository_UnknownDriver(t *testing.T) {
	_, err := NewRepository(nil, "mysql")
	assert.Error(t, err)
}

func TestInsert_RoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	in := types.WeatherRecord{
		Timestamp:      base.Add(123456 * time.Microsecond),
		TempOut:        ptr(21.5),
		HumidityOut:    ptr(40),
		WindDir:        ptr(270),
		WindSpeed:      ptr(3.2),
		RainDaily:      ptr(1.25),
		SolarRadiation: ptr(512.0),
		UVIndex:        ptr(4.0),
		TempIn:         ptr(22.1),
		HumidityIn:     ptr(35),
		PressureRel:    ptr(1013.2),
	}
	id, err := repo.Insert(ctx, in)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := repo.MostRecent(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)

	want := in
	want.ID = id
	assert.True(t, got.Timestamp.Equal(in.Timestamp), "timestamp %v; want %v", got.Timestamp, in.Timestamp)
	assert.Equal(t, time.UTC, got.Timestamp.Location())
	got.Timestamp = want.Timestamp
	assert.Equal(t, want, *got)
}

func TestInsert_NullDistinctFromZero(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, types.WeatherRecord{Timestamp: base, TempOut: ptr(0.0), HumidityOut: ptr(0)})
	require.NoError(t, err)

	got, err := repo.MostRecent(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.TempOut)
	assert.Equal(t, 0.0, *got.TempOut)
	require.NotNil(t, got.HumidityOut)
	assert.Equal(t, 0, *got.HumidityOut)
	assert.Nil(t, got.WindDir)
	assert.Nil(t, got.UVIndex)
	assert.Nil(t, got.PressureRel)
}

func TestInsert_IDsIncrease(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		// Out-of-order timestamps must not affect id assignment.
		id, err := repo.Insert(ctx, types.WeatherRecord{Timestamp: base.Add(time.Duration(5-i) * time.Minute)})
		require.NoError(t, err)
		require.Greater(t, id, last)
		last = id
	}
}

func TestMostRecent_Empty(t *testing.T) {
	got, err := setupRepo(t).MostRecent(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMostRecent_ByTimestampNotInsertion(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	newest, err := repo.Insert(ctx, types.WeatherRecord{Timestamp: base.Add(time.Hour), TempOut: ptr(5.0)})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, types.WeatherRecord{Timestamp: base, TempOut: ptr(1.0)})
	require.NoError(t, err)

	got, err := repo.MostRecent(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newest, got.ID)
}

func TestMostRecent_TieBreaksOnHighestID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 3; i++ {
		id, err := repo.Insert(ctx, types.WeatherRecord{Timestamp: base})
		require.NoError(t, err)
		last = id
	}
	got, err := repo.MostRecent(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, last, got.ID)
}

func TestSinceInclusive(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	// Inserted out of order on purpose.
	offsets := []time.Duration{-2 * time.Hour, 30 * time.Minute, 0, -time.Microsecond, time.Hour}
	for _, off := range offsets {
		_, err := repo.Insert(ctx, types.WeatherRecord{Timestamp: base.Add(off)})
		require.NoError(t, err)
	}

	got, err := repo.SinceInclusive(ctx, base)
	require.NoError(t, err)

	want := []time.Time{base, base.Add(30 * time.Minute), base.Add(time.Hour)}
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, got[i].Timestamp.Equal(want[i]), "record %d timestamp = %v; want %v", i, got[i].Timestamp, want[i])
	}
}

func TestSinceInclusive_ZeroTimeReturnsEverything(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for _, ts := range []time.Time{base, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)} {
		_, err := repo.Insert(ctx, types.WeatherRecord{Timestamp: ts})
		require.NoError(t, err)
	}

	got, err := repo.SinceInclusive(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSinceInclusive_EmptyIsNonNil(t *testing.T) {
	got, err := setupRepo(t).SinceInclusive(context.Background(), base)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSinceInclusive_EqualTimestampsAscendingID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := repo.Insert(ctx, types.WeatherRecord{Timestamp: base})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	got, err := repo.SinceInclusive(ctx, base.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, got, len(ids))
	for i, rec := range got {
		assert.Equal(t, ids[i], rec.ID, "record %d", i)
	}
}

func TestPing(t *testing.T) {
	assert.NoError(t, setupRepo(t).Ping(context.Background()))
}

func TestDecodeTime(t *testing.T) {
	want := time.Date(2025, 1, 20, 12, 0, 0, 500000000, time.UTC)
	tests := []struct {
		name string
		in   any
	}{
		{name: "fixed layout string", in: "2025-01-20T12:00:00.500000Z"},
		{name: "bytes", in: []byte("2025-01-20T12:00:00.500000Z")},
		{name: "rfc3339", in: "2025-01-20T13:00:00.5+01:00"},
		{name: "time value", in: want.In(time.FixedZone("X", 3600))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeTime(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "decodeTime = %v; want %v", got, want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := decodeTime(42)
	assert.Error(t, err)
	_, err = decodeTime("yesterday")
	assert.Error(t, err)
}
