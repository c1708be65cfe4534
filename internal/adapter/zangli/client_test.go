package zangli

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/almanac-etl-service/internal/domain"
	"github.com/couchcryptid/almanac-etl-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "2025.html"))
	require.NoError(t, err)
	return string(data)
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "almanac-test", 5*time.Second, 100,
		observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseObservance(t *testing.T) {
	text := pageText(readFixture(t))

	tests := []struct {
		name  string
		month int
		day   int
		want  domain.Observance
	}{
		{
			name: "amitabha full moon", month: 11, day: 5,
			want: domain.Observance{DayName: "十五", Observance: "阿彌陀佛節日、月圓日、布薩日", MeritMultiplier: "百萬倍"},
		},
		{
			name: "medicine buddha", month: 3, day: 6,
			want: domain.Observance{DayName: "初八", Observance: "藥師佛節日、布薩日", MeritMultiplier: "千倍"},
		},
		{
			name: "eclipse", month: 3, day: 14,
			want: domain.Observance{DayName: "十五", Observance: "神變節、月圓日、布薩日", MeritMultiplier: "千萬倍", SpecialEvent: "月全食 食甚 14:58"},
		},
		{
			name: "descent day", month: 11, day: 11,
			want: domain.Observance{DayName: "廿二", Observance: "釋迦牟尼佛天降日", MeritMultiplier: "千萬倍"},
		},
		{
			name: "uposatha only", month: 3, day: 22,
			want: domain.Observance{DayName: "廿三", Observance: "布薩日"},
		},
		{
			name: "leap day", month: 11, day: 12,
			want: domain.Observance{DayName: "閏廿二"},
		},
		{
			name: "ordinary day", month: 11, day: 18,
			want: domain.Observance{DayName: "廿八"},
		},
		{
			name: "day absent", month: 3, day: 1,
			want: domain.Observance{},
		},
		{
			name: "day only in the following month", month: 11, day: 4,
			want: domain.Observance{},
		},
		{
			name: "month absent", month: 7, day: 5,
			want: domain.Observance{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseObservance(text, 2025, tt.month, tt.day))
		})
	}
}

func TestPageText(t *testing.T) {
	text := pageText(`<script>x()</script><table><tr><td>5</td><td>十五</td></tr></table>`)
	assert.Equal(t, "5 | 十五 |", text)
}

func TestMonthSection(t *testing.T) {
	text := "2025年1月 a 2025年2月 b 2025年12月 c"
	assert.Equal(t, " a ", monthSection(text, 2025, 1))
	assert.Equal(t, " c", monthSection(text, 2025, 12))
	assert.Empty(t, monthSection(text, 2025, 5))
}

func TestLookupObservance_FetchesYearOnce(t *testing.T) {
	page := readFixture(t)
	var hits atomic.Int32
	var mu sync.Mutex
	var gotPath, gotUA string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		mu.Lock()
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obs, err := c.LookupObservance(context.Background(), day(2025, time.November, 5))
			assert.NoError(t, err)
			assert.Equal(t, "百萬倍", obs.MeritMultiplier)
		}()
	}
	wg.Wait()

	obs, err := c.LookupObservance(context.Background(), day(2025, time.March, 6))
	require.NoError(t, err)
	assert.Equal(t, "藥師佛節日、布薩日", obs.Observance)

	assert.LessOrEqual(t, hits.Load(), int32(5))
	before := hits.Load()
	_, err = c.LookupObservance(context.Background(), day(2025, time.March, 22))
	require.NoError(t, err)
	assert.Equal(t, before, hits.Load(), "cached year is not refetched")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/2025.html", gotPath)
	assert.Equal(t, "almanac-test", gotUA)
}

func TestLookupObservance_StatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.LookupObservance(context.Background(), day(2030, time.January, 1))
	require.Error(t, err)

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "zangli", fe.Source)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestLookupObservance_FailureIsNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	page := readFixture(t)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(page))
	}))

	_, err := c.LookupObservance(context.Background(), day(2025, time.November, 5))
	require.Error(t, err)

	fail.Store(false)
	obs, err := c.LookupObservance(context.Background(), day(2025, time.November, 5))
	require.NoError(t, err)
	assert.Equal(t, "十五", obs.DayName)
}

func TestLookupObservance_SharedFetchOutlivesCanceledCaller(t *testing.T) {
	page := readFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var startOnce, releaseOnce sync.Once
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		startOnce.Do(func() { close(started) })
		<-release
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(func() { releaseOnce.Do(func() { close(release) }) })

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.LookupObservance(ctx, day(2025, time.November, 5))
		firstErr <- err
	}()
	<-started

	type result struct {
		obs domain.Observance
		err error
	}
	second := make(chan result, 1)
	go func() {
		obs, err := c.LookupObservance(context.Background(), day(2025, time.November, 5))
		second <- result{obs, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	releaseOnce.Do(func() { close(release) })
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "百萬倍", got.obs.MeritMultiplier)
}
