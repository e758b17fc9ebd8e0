package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/usagiclock/internal/schedule"
)

var custom = schedule.Settings{
	PeriodAlarmEnabled: true,
	StartHour:          22,
	StartMinute:        30,
	EndHour:            6,
}

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "test", zerolog.Nop()), mr
}

func TestRedisDefaultsWhenMissing(t *testing.T) {
	s, _ := setupRedis(t)
	assert.Equal(t, schedule.DefaultSettings(), s.Load(context.Background()))
}

func TestRedisSaveAndLoad(t *testing.T) {
	s, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, custom))
	assert.Equal(t, custom, s.Load(ctx))

	raw, err := mr.Get("test:" + schedule.StorageKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"periodAlarmEnabled":true`)
}

func TestRedisMalformedFallsBack(t *testing.T) {
	s, mr := setupRedis(t)
	require.NoError(t, mr.Set(s.Key(), "{not json"))
	assert.Equal(t, schedule.DefaultSettings(), s.Load(context.Background()))

	require.NoError(t, mr.Set(s.Key(), `{"startHour":30}`))
	assert.Equal(t, schedule.DefaultSettings(), s.Load(context.Background()))
}

func TestRedisSaveRejectsInvalid(t *testing.T) {
	s, _ := setupRedis(t)
	err := s.Save(context.Background(), schedule.Settings{EndMinute: 60})
	assert.ErrorIs(t, err, schedule.ErrMalformedSettings)
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "settings.json")
	f := NewFile(path, zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, schedule.DefaultSettings(), f.Load(ctx))
	require.NoError(t, f.Save(ctx, custom))
	assert.Equal(t, custom, f.Load(ctx))

	// A fresh store sees the same record.
	assert.Equal(t, custom, NewFile(path, zerolog.Nop()).Load(ctx))
}

func TestFilePreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o644))

	f := NewFile(path, zerolog.Nop())
	require.NoError(t, f.Save(context.Background(), custom))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"theme": "dark"`)
	assert.Contains(t, string(b), schedule.StorageKey)
}

func TestFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2`), 0o644))
	f := NewFile(path, zerolog.Nop())
	assert.Equal(t, schedule.DefaultSettings(), f.Load(context.Background()))

	require.NoError(t, f.Save(context.Background(), custom))
	assert.Equal(t, custom, f.Load(context.Background()))
}

func TestMemory(t *testing.T) {
	var m Memory
	ctx := context.Background()
	assert.Equal(t, schedule.DefaultSettings(), m.Load(ctx))
	require.NoError(t, m.Save(ctx, custom))
	assert.Equal(t, custom, m.Load(ctx))
	assert.Error(t, m.Save(ctx, schedule.Settings{StartHour: -1}))
	assert.Equal(t, custom, m.Load(ctx))
}

func TestNullOrEmptyRecordLoadsDefaults(t *testing.T) {
	s, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(s.Key(), "null"))
	assert.Equal(t, schedule.DefaultSettings(), s.Load(ctx))

	require.NoError(t, mr.Set(s.Key(), "{}"))
	assert.Equal(t, schedule.DefaultSettings(), s.Load(ctx))

	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"`+schedule.StorageKey+`": null}`), 0o644))
	assert.Equal(t, schedule.DefaultSettings(), NewFile(path, zerolog.Nop()).Load(ctx))
}

func TestPartialRecordKeepsDefaults(t *testing.T) {
	s, mr := setupRedis(t)
	require.NoError(t, mr.Set(s.Key(), `{"periodAlarmEnabled":true,"startHour":22}`))

	want := schedule.DefaultSettings()
	want.PeriodAlarmEnabled = true
	want.StartHour = 22
	assert.Equal(t, want, s.Load(context.Background()))
}
