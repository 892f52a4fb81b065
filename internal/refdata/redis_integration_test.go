//go:build integration

package refdata_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tranquility/internal/refdata"
	"tranquility/internal/storage/storagetest"
	"tranquility/pkg/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	cache := refdata.NewRedisCache(rc.Client)

	store := storagetest.NewSQLite(t)
	_, err := refdata.Seed(ctx, store)
	require.NoError(t, err)
	svc := refdata.New(store, refdata.WithCache(cache, time.Minute))

	zones, err := svc.Timezones(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, zones)

	var cached []refdata.Timezone
	hit, err := cache.Get(ctx, "tranquility:refdata:timezones", &cached)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, zones, cached)

	require.NoError(t, cache.Invalidate(ctx, refdata.Kinds()...))
	hit, err = cache.Get(ctx, "tranquility:refdata:timezones", &cached)
	require.NoError(t, err)
	assert.False(t, hit)
}
