package radiocache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bandradio/radio-cache/internal/cache"
	"github.com/bandradio/radio-cache/internal/datasource"
	"github.com/bandradio/radio-cache/internal/resource"
	"github.com/bandradio/radio-cache/internal/station"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	twoStations   = `{"resultData":{"data":[{"id":1,"name":"Band FM"},{"id":2,"name":"BandNews FM"}]}}`
	threeStations = `{"resultData":{"data":[{"id":1,"name":"Band FM"},{"id":2,"name":"BandNews FM"},{"id":3,"name":"Nativa FM"}]}}`
	localStream   = `{"resultData":{"id":7,"name":"BandNews FM","streamUrl":"https://local.example.com/7.aac"}}`
	remoteStream  = `{"resultData":{"id":7,"name":"BandNews FM","streamUrl":"https://remote.example.com/7.aac"}}`
)

func TestStationListCacheHitInvokesCompletionTwice(t *testing.T) {
	upstream, hits := newUpstream(t, threeStations)
	c := newTestCache(t, Options{})
	listURL := upstream.URL + "/radio/stations.json"
	seed(t, c, cache.NewLocator(listURL), twoStations)

	var (
		mu      sync.Mutex
		results []resource.Result[[]station.Station]
	)
	c.GetStationList(context.Background(), listURL, func(r resource.Result[[]station.Station]) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	})
	c.Wait()

	require.Len(t, results, 2)
	sizes := []int{len(results[0].Value), len(results[1].Value)}
	sort.Ints(sizes)
	assert.Equal(t, []int{2, 3}, sizes)

	sources := map[resource.Source]int{}
	for _, r := range results {
		assert.True(t, r.OK())
		sources[r.Source] = len(r.Value)
	}
	assert.Equal(t, 2, sources[resource.SourceLocal])
	assert.Equal(t, 3, sources[resource.SourceNetwork])
	assert.EqualValues(t, 1, hits.Load())

	refreshed := c.FirstStationList(context.Background(), listURL)
	c.Wait()
	require.True(t, refreshed.OK())
	assert.Len(t, refreshed.Value, 3, "network body should have replaced the cached copy")
}

func TestStationListMissFetchesOnce(t *testing.T) {
	upstream, hits := newUpstream(t, twoStations)
	c := newTestCache(t, Options{})
	listURL := upstream.URL + "/radio/stations.json"

	results := collect[[]station.Station](t, func(done func(resource.Result[[]station.Station])) {
		c.GetStationList(context.Background(), listURL, done)
	}, c)

	require.Len(t, results, 1)
	assert.Equal(t, resource.SourceNetwork, results[0].Source)
	assert.Len(t, results[0].Value, 2)
	assert.EqualValues(t, 1, hits.Load())

	path, err := c.CachePathFor(listURL, nil)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestStationListCacheFirstPolicyStopsAtLocal(t *testing.T) {
	upstream, hits := newUpstream(t, threeStations)
	c := newTestCache(t, Options{ListPolicy: resource.PolicyCacheFirst})
	listURL := upstream.URL + "/radio/stations.json"
	seed(t, c, cache.NewLocator(listURL), twoStations)

	results := collect[[]station.Station](t, func(done func(resource.Result[[]station.Station])) {
		c.GetStationList(context.Background(), listURL, done)
	}, c)

	require.Len(t, results, 1)
	assert.Equal(t, resource.SourceLocal, results[0].Source)
	assert.Len(t, results[0].Value, 2)
	assert.Zero(t, hits.Load())
}

func TestStreamInfoCacheHitSkipsNetwork(t *testing.T) {
	upstream, hits := newUpstream(t, remoteStream)
	c := newTestCache(t, Options{})
	streamURL := upstream.URL + "/radio/stream"
	seed(t, c, cache.NewLocator(streamURL).WithID(7), localStream)

	results := collect[station.Stream](t, func(done func(resource.Result[station.Stream])) {
		c.GetStreamInfo(context.Background(), streamURL, 7, done)
	}, c)

	require.Len(t, results, 1)
	assert.Equal(t, resource.SourceLocal, results[0].Source)
	assert.Equal(t, "https://local.example.com/7.aac", results[0].Value.StreamURL)
	assert.Zero(t, hits.Load(), "no network call expected on a stream-info hit")
}

func TestStreamInfoMissUsesNetwork(t *testing.T) {
	upstream, hits := newUpstream(t, remoteStream)
	c := newTestCache(t, Options{})
	streamURL := upstream.URL + "/radio/stream"
	// 其它 id 的缓存不应影响命中判断。
	seed(t, c, cache.NewLocator(streamURL).WithID(8), localStream)

	results := collect[station.Stream](t, func(done func(resource.Result[station.Stream])) {
		c.GetStreamInfo(context.Background(), streamURL, 7, done)
	}, c)

	require.Len(t, results, 1)
	assert.Equal(t, resource.SourceNetwork, results[0].Source)
	assert.Equal(t, "https://remote.example.com/7.aac", results[0].Value.StreamURL)
	assert.EqualValues(t, 1, hits.Load())
}

func TestStreamInfoRefreshPolicy(t *testing.T) {
	upstream, hits := newUpstream(t, remoteStream)
	c := newTestCache(t, Options{StreamPolicy: resource.PolicyRefresh})
	streamURL := upstream.URL + "/radio/stream"
	seed(t, c, cache.NewLocator(streamURL).WithID(7), localStream)

	results := collect[station.Stream](t, func(done func(resource.Result[station.Stream])) {
		c.GetStreamInfo(context.Background(), streamURL, 7, done)
	}, c)

	assert.Len(t, results, 2)
	assert.EqualValues(t, 1, hits.Load())
}

func TestStreamInfoBadNetworkBody(t *testing.T) {
	upstream, _ := newUpstream(t, "<html>maintenance</html>")
	c := newTestCache(t, Options{})
	streamURL := upstream.URL + "/radio/stream"

	result := c.FirstStreamInfo(context.Background(), streamURL, 7)
	c.Wait()

	assert.Equal(t, resource.OutcomeParseError, result.Outcome)
	path, err := c.CachePathFor(streamURL, intPtr(7))
	require.NoError(t, err)
	assert.NoFileExists(t, path)
}

func TestInvalidURLCompletesOnceWithLoadError(t *testing.T) {
	c := newTestCache(t, Options{})

	results := collect[[]station.Station](t, func(done func(resource.Result[[]station.Station])) {
		c.GetStationList(context.Background(), "https://api.example.com/", done)
	}, c)

	require.Len(t, results, 1)
	assert.Equal(t, resource.OutcomeLoadError, results[0].Outcome)
	assert.ErrorIs(t, results[0].Err, cache.ErrInvalidLocator)
}

func TestFirstStationListPrefersUsableResult(t *testing.T) {
	upstream, _ := newUpstream(t, twoStations)
	c := newTestCache(t, Options{})
	listURL := upstream.URL + "/radio/stations.json"
	seed(t, c, cache.NewLocator(listURL), "corrupted")

	result := c.FirstStationList(context.Background(), listURL)
	c.Wait()

	require.True(t, result.OK())
	assert.Equal(t, resource.SourceNetwork, result.Source)
}

func TestFirstStreamInfoHonoursContext(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(upstream.Close)
	t.Cleanup(func() { close(release) })

	c := newTestCache(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result := c.FirstStreamInfo(ctx, upstream.URL+"/radio/stream", 1)
	c.Wait()

	assert.Equal(t, resource.OutcomeLoadError, result.Outcome)
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
}

func TestCachePathForIsDeterministic(t *testing.T) {
	c := newTestCache(t, Options{})

	a, err := c.CachePathFor("https://api.example.com/radio/stream", intPtr(1))
	require.NoError(t, err)
	b, err := c.CachePathFor("https://api.example.com/radio/stream", intPtr(1))
	require.NoError(t, err)
	other, err := c.CachePathFor("https://api.example.com/radio/stream", intPtr(2))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, other)
}

func TestNewAppliesKindDefaults(t *testing.T) {
	c := newTestCache(t, Options{})
	list, stream := c.Policies()
	assert.Equal(t, resource.PolicyRefresh, list)
	assert.Equal(t, resource.PolicyCacheFirst, stream)

	_, err := New(Options{})
	assert.Error(t, err)

	loader := c.loader
	_, err = New(Options{Loader: loader, ListPolicy: "later"})
	assert.Error(t, err)
}

func collect[T any](t *testing.T, start func(func(resource.Result[T])), c *Cache) []resource.Result[T] {
	t.Helper()
	var (
		mu      sync.Mutex
		results []resource.Result[T]
	)
	start(func(r resource.Result[T]) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	})
	c.Wait()
	return results
}

func newUpstream(t *testing.T, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	hits := &atomic.Int64{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, hits
}

func newTestCache(t *testing.T, opts Options) *Cache {
	t.Helper()
	store, err := cache.NewStore(t.TempDir(), "com.example.radio")
	require.NoError(t, err)

	transport := &http.Transport{}
	t.Cleanup(transport.CloseIdleConnections)

	loader, err := datasource.NewLoader(&http.Client{Transport: transport}, store, nil)
	require.NoError(t, err)
	opts.Loader = loader

	c, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(c.Wait)
	return c
}

func seed(t *testing.T, c *Cache, locator cache.Locator, body string) {
	t.Helper()
	require.NoError(t, c.loader.Persist(context.Background(), locator, []byte(body)))
}

func intPtr(v int) *int {
	return &v
}
