package valkey_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/valkey-io/valkey-go"

	"github.com/samirrijal/mapsurvey/internal/adapters/valkey"
	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

func newTestStore(t *testing.T) (*valkey.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := valkey.NewWithOption(vk.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
		AlwaysRESP2:  true,
	})
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store, mr
}

func TestStore_SetGetDelete(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "mapsurvey:features", []byte(`{"type":"FeatureCollection"}`)))
	assert.True(t, mr.Exists("mapsurvey:features"))

	got, err := store.Get(ctx, "mapsurvey:features")
	require.NoError(t, err)
	assert.Equal(t, `{"type":"FeatureCollection"}`, string(got))

	require.NoError(t, store.Delete(ctx, "mapsurvey:features"))
	assert.False(t, mr.Exists("mapsurvey:features"))
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DeleteMissingIsNoop(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Delete(context.Background(), "absent"))
}

func TestStore_BinarySafe(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	blob := []byte{0x00, 0xff, '"', '\n'}

	require.NoError(t, store.Set(ctx, "k", blob))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestStore_Ping(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
