package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/knowledge-clone/pkg/component/database"
	"github.com/kart-io/knowledge-clone/pkg/component/redis"
	dbopts "github.com/kart-io/knowledge-clone/pkg/options/database"
	redisopts "github.com/kart-io/knowledge-clone/pkg/options/redis"
)

func exerciseSettings(t *testing.T, s SettingsStore) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyVectorPercentage)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyVectorPercentage, "40"))
	require.NoError(t, s.Set(ctx, KeyVectorPercentage, "60"))
	require.NoError(t, s.Set(ctx, KeyKnowledgeSources, `["a.txt"]`))

	v, ok, err := s.Get(ctx, KeyVectorPercentage)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "60", v)

	require.NoError(t, s.SetMany(ctx, map[string]string{
		KeyResultLength:       "120",
		KeySummarizeThreshold: "30",
		KeyKnowledgeSources:   `["a.txt","b.md"]`,
	}))
	require.NoError(t, s.SetMany(ctx, nil))
	for key, want := range map[string]string{
		KeyVectorPercentage:   "60",
		KeyResultLength:       "120",
		KeySummarizeThreshold: "30",
		KeyKnowledgeSources:   `["a.txt","b.md"]`,
	} {
		v, ok, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, key)
		assert.Equal(t, want, v, key)
	}

	require.NoError(t, s.Delete(ctx, KeyVectorPercentage))
	_, ok, err = s.Get(ctx, KeyVectorPercentage)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySettings(t *testing.T) {
	s := NewMemorySettings()
	assert.Equal(t, "memory", s.Name())
	exerciseSettings(t, s)
}

func TestDBSettings_SQLite(t *testing.T) {
	opts := dbopts.NewOptions()
	opts.DSN = ":memory:"
	c, err := database.New(context.Background(), opts)
	require.NoError(t, err)
	defer c.Close()

	s, err := NewDBSettings(context.Background(), c.DB())
	require.NoError(t, err)
	assert.Equal(t, "database", s.Name())
	exerciseSettings(t, s)
}

func TestDBSettings_SetManyRollsBack(t *testing.T) {
	opts := dbopts.NewOptions()
	opts.DSN = ":memory:"
	c, err := database.New(context.Background(), opts)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	s, err := NewDBSettings(ctx, c.DB())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyResultLength, "100"))

	// 触发器让第二个键的写入失败
	require.NoError(t, c.DB().Exec(`CREATE TRIGGER reject_threshold BEFORE INSERT ON clone_settings
		WHEN NEW."key" = 'summarizeThreshold' BEGIN SELECT RAISE(ABORT, 'rejected'); END`).Error)

	err = s.SetMany(ctx, map[string]string{
		KeyResultLength:       "250",
		KeySummarizeThreshold: "40",
	})
	require.Error(t, err)

	v, ok, err := s.Get(ctx, KeyResultLength)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "100", v)
	_, ok, err = s.Get(ctx, KeySummarizeThreshold)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSettings(t *testing.T) {
	opts := redisopts.NewOptions()
	opts.DialTimeout = 200 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c, err := redis.New(ctx, opts)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer c.Close()

	key := "knowledge-clone:test:" + t.Name()
	t.Cleanup(func() { c.Client().Del(context.Background(), key) })

	s := NewRedisSettings(c.Client(), key)
	assert.Equal(t, "redis", s.Name())
	exerciseSettings(t, s)
}
