package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shigemiyagi/marriage-astrology-app/internal/scan"
)

func sampleSet() *scan.DatedEventSet {
	s := scan.NewDatedEventSet()
	s.Add(civil.Date{Year: 2031, Month: time.May, Day: 3}, "T_JUP_7H_INGRESS")
	return s
}

var testKey = Key{Fingerprint: "abc", HorizonYears: 80, Stride: 1, Orb: 1.2}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "scan:v1:abc:h80:s1:o0:orb1.2:cfalse", testKey.String())

	other := testKey
	other.Stride = 3
	assert.NotEqual(t, testKey.String(), other.String())
	other = testKey
	other.Composite = true
	assert.NotEqual(t, testKey.String(), other.String())
}

func TestMemoComputesOnce(t *testing.T) {
	store := NewMemoryStore()
	var hits, misses int
	memo := NewMemo(store).WithObserver(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})
	var calls int
	compute := func(context.Context) (*scan.DatedEventSet, error) {
		calls++
		return sampleSet(), nil
	}

	first, hit, err := memo.Do(context.Background(), testKey, compute)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := memo.Do(context.Background(), testKey, compute)
	require.NoError(t, err)
	assert.True(t, hit)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.Equal(t, 1, store.Stats().Entries)
}

func TestWithObserverLeavesOriginalUntouched(t *testing.T) {
	store := NewMemoryStore()
	base := NewMemo(store)
	var observed []bool
	observing := base.WithObserver(func(hit bool) { observed = append(observed, hit) })
	require.NotSame(t, base, observing)
	assert.Nil(t, base.observer)

	compute := func(context.Context) (*scan.DatedEventSet, error) { return sampleSet(), nil }
	_, hit, err := base.Do(context.Background(), testKey, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, observed)

	// The copy shares the store, so the base memo's result is a hit.
	_, hit, err = observing.Do(context.Background(), testKey, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []bool{true}, observed)
}

func TestMemoDoesNotPublishFailures(t *testing.T) {
	store := NewMemoryStore()
	memo := NewMemo(store)
	boom := errors.New("boom")

	_, _, err := memo.Do(context.Background(), testKey, func(context.Context) (*scan.DatedEventSet, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.Stats().Entries)

	set, hit, err := memo.Do(context.Background(), testKey, func(context.Context) (*scan.DatedEventSet, error) {
		return sampleSet(), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, set.Len())
}

func TestMemoDeduplicatesConcurrentScans(t *testing.T) {
	memo := NewMemo(NewMemoryStore())
	release := make(chan struct{})
	var calls atomic.Int32
	compute := func(context.Context) (*scan.DatedEventSet, error) {
		calls.Add(1)
		<-release
		return sampleSet(), nil
	}

	var wg sync.WaitGroup
	results := make([]*scan.DatedEventSet, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set, _, err := memo.Do(context.Background(), testKey, compute)
			assert.NoError(t, err)
			results[i] = set
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// Late arrivals may hit the published entry instead of joining the flight.
	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, 1, r.Len())
	}
}

func TestMemoryStoreKeepsFirstValue(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []byte("one")))
	require.NoError(t, store.Set(ctx, "k", []byte("two")))
	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "one", string(v))

	_, ok, _ = store.Get(ctx, "missing")
	assert.False(t, ok)
	assert.Equal(t, 0.5, store.Stats().HitRatio())
}

func TestRedisStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, "session-1", time.Hour)
	ctx := context.Background()
	key := "marriagetiming:session-1:k"

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet(key).RedisNil()
		v, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("hit", func(t *testing.T) {
		mock.ExpectGet(key).SetVal("payload")
		v, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "payload", string(v))
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectGet(key).SetErr(redis.TxFailedErr)
		_, _, err := store.Get(ctx, "k")
		assert.Error(t, err)
	})

	t.Run("set", func(t *testing.T) {
		mock.ExpectSetNX(key, []byte("payload"), time.Hour).SetVal(true)
		require.NoError(t, store.Set(ctx, "k", []byte("payload")))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoOverRedis(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, "s", 0)
	memo := NewMemo(store)
	k := "marriagetiming:s:" + testKey.String()
	data, err := json.Marshal(sampleSet())
	require.NoError(t, err)

	mock.ExpectGet(k).RedisNil()
	mock.ExpectGet(k).RedisNil()
	mock.ExpectSetNX(k, data, DefaultRedisTTL).SetVal(true)
	mock.ExpectGet(k).SetVal(string(data))

	_, hit, err := memo.Do(context.Background(), testKey, func(context.Context) (*scan.DatedEventSet, error) {
		return sampleSet(), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)

	set, hit, err := memo.Do(context.Background(), testKey, func(context.Context) (*scan.DatedEventSet, error) {
		t.Fatal("recomputed a cached scan")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sampleSet(), set)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoDegradesOnStoreReadFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	memo := NewMemo(NewRedisStore(db, "s", time.Minute))
	k := "marriagetiming:s:" + testKey.String()
	data, err := json.Marshal(sampleSet())
	require.NoError(t, err)

	mock.ExpectGet(k).SetErr(errors.New("connection refused"))
	mock.ExpectGet(k).SetErr(errors.New("connection refused"))
	mock.ExpectSetNX(k, data, time.Minute).SetErr(errors.New("connection refused"))

	set, hit, err := memo.Do(context.Background(), testKey, func(context.Context) (*scan.DatedEventSet, error) {
		return sampleSet(), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, set.Len())
}
