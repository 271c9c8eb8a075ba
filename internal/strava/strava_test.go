// ABOUTME: Tests for the Strava gateway against an httptest fake API.
// ABOUTME: Covers paging, validation, auth failures, and rate-limit backoff.
package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeStrava struct {
	mu       sync.Mutex
	requests []*http.Request
	times    []time.Time
}

func (f *fakeStrava) record(r *http.Request) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r)
	f.times = append(f.times, time.Now())
	return len(f.requests)
}

func (f *fakeStrava) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := []Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRetry(3, 10*time.Millisecond),
	}
	return NewClient(StaticTokenSource("test-token"), append(base, opts...)...)
}

func activityJSON(id int64, start time.Time) map[string]any {
	return map[string]any{
		"id":                   id,
		"name":                 fmt.Sprintf("Run %d", id),
		"sport_type":           "TrailRun",
		"type":                 "Run",
		"start_date":           start.UTC().Format(time.RFC3339),
		"distance":             10000.0,
		"moving_time":          3000,
		"elapsed_time":         3300,
		"total_elevation_gain": 250.0,
		"average_heartrate":    142.5,
		"start_latlng":         []float64{40.01, -105.27},
	}
}

func TestActivitiesPagesUntilShortPage(t *testing.T) {
	fake := &fakeStrava{}
	base := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/athlete/activities", r.URL.Path)

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		n := perPage
		if page == 3 {
			n = 1
		}
		out := []map[string]any{}
		for i := 0; i < n; i++ {
			id := int64((page-1)*perPage + i + 1)
			out = append(out, activityJSON(id, base.Add(time.Duration(id)*time.Hour)))
		}
		_ = json.NewEncoder(w).Encode(out)
	}))

	got, err := client.ListActivities(context.Background(), time.Time{}, time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, 3, fake.count())
	assert.Equal(t, int64(5), got[4].ID)

	first := got[0]
	assert.Equal(t, "TrailRun", first.Type)
	assert.Equal(t, "5:00", first.Pace)
	require.NotNil(t, first.PaceSPerKm)
	assert.InDelta(t, 300.0, *first.PaceSPerKm, 0.001)
	require.NotNil(t, first.AverageHeartrate)
	assert.Equal(t, []float64{40.01, -105.27}, first.StartLatLng)
	assert.Empty(t, fake.requests[0].URL.Query().Get("after"))
}

func TestActivitiesIsLazy(t *testing.T) {
	fake := &fakeStrava{}
	base := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		out := []map[string]any{activityJSON(1, base), activityJSON(2, base.Add(time.Hour))}
		_ = json.NewEncoder(w).Encode(out)
	}))

	seen := 0
	for a, err := range client.Activities(context.Background(), time.Time{}, time.Time{}, 2) {
		require.NoError(t, err)
		seen++
		if a.ID == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
	assert.Equal(t, 1, fake.count(), "second page should not be requested")
}

func TestActivitiesRestartFromAfter(t *testing.T) {
	fake := &fakeStrava{}
	after := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		_ = json.NewEncoder(w).Encode([]map[string]any{})
	}), WithClock(func() time.Time { return after.Add(24 * time.Hour) }))

	got, err := client.ListActivities(context.Background(), after, time.Time{}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.Equal(t, 1, fake.count())
	q := fake.requests[0].URL.Query()
	assert.Equal(t, strconv.FormatInt(after.Unix(), 10), q.Get("after"))
	assert.Equal(t, "30", q.Get("per_page"))
	assert.Empty(t, q.Get("before"))
}

func TestActivitiesBeforeBound(t *testing.T) {
	fake := &fakeStrava{}
	after := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		_ = json.NewEncoder(w).Encode([]map[string]any{activityJSON(9, after.Add(48*time.Hour))})
	}), WithClock(func() time.Time { return before.Add(24 * time.Hour) }))

	got, err := client.ListActivities(context.Background(), after, before, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	q := fake.requests[0].URL.Query()
	assert.Equal(t, strconv.FormatInt(after.Unix(), 10), q.Get("after"))
	assert.Equal(t, strconv.FormatInt(before.Unix(), 10), q.Get("before"))
}

func TestActivitiesInvalidParams(t *testing.T) {
	fake := &fakeStrava{}
	now := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
	}), WithClock(func() time.Time { return now }))

	tests := []struct {
		name    string
		after   time.Time
		before  time.Time
		perPage int
	}{
		{"negative page size", time.Time{}, time.Time{}, -1},
		{"page size too large", time.Time{}, time.Time{}, 201},
		{"future after", now.Add(time.Hour), time.Time{}, 10},
		{"before not after lower bound", now.Add(-time.Hour), now.Add(-2 * time.Hour), 10},
		{"empty window", now.Add(-time.Hour), now.Add(-time.Hour), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.ListActivities(context.Background(), tt.after, tt.before, tt.perPage)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	assert.Equal(t, 0, fake.count())
}

func TestRateLimitBackoffSchedule(t *testing.T) {
	fake := &fakeStrava{}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		w.WriteHeader(http.StatusTooManyRequests)
	}), WithRetry(3, 20*time.Millisecond))

	start := time.Now()
	_, err := client.ListActivities(context.Background(), time.Time{}, time.Time{}, 10)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrRateLimited)
	require.Equal(t, 4, fake.count(), "one attempt plus three retries")

	// Waits double: 20ms, 40ms, 80ms.
	assert.GreaterOrEqual(t, elapsed, 140*time.Millisecond)
	want := []time.Duration{20 * time.Millisecond, 40 * time.Millisecond, 80 * time.Millisecond}
	for i, w := range want {
		gap := fake.times[i+1].Sub(fake.times[i])
		assert.GreaterOrEqual(t, gap, w, "gap before retry %d", i+1)
	}
}

func TestRateLimitThenSuccess(t *testing.T) {
	fake := &fakeStrava{}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fake.record(r) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{activityJSON(7, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))})
	}))

	got, err := client.ListActivities(context.Background(), time.Time{}, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, fake.count())
}

func TestRateLimitHonorsContext(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}), WithRetry(3, time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.ListActivities(ctx, time.Time{}, time.Time{}, 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnauthorizedNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(strconv.Itoa(status), func(t *testing.T) {
			fake := &fakeStrava{}
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fake.record(r)
				w.WriteHeader(status)
			}))

			_, err := client.ListActivities(context.Background(), time.Time{}, time.Time{}, 10)
			require.ErrorIs(t, err, ErrUnauthorized)
			assert.Equal(t, 1, fake.count())
		})
	}
}

type failingTokenSource struct{}

func (failingTokenSource) Token() (*oauth2.Token, error) {
	return nil, errors.New("refresh token revoked")
}

func TestTokenSourceFailure(t *testing.T) {
	fake := &fakeStrava{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
	}))
	defer srv.Close()

	client := NewClient(failingTokenSource{}, WithBaseURL(srv.URL))
	_, err := client.ListActivities(context.Background(), time.Time{}, time.Time{}, 10)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, fake.count())

	client = NewClient(nil, WithBaseURL(srv.URL))
	_, err = client.ListActivities(context.Background(), time.Time{}, time.Time{}, 10)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestMalformedPayloadFailsWholeCall(t *testing.T) {
	start := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		body any
	}{
		{"not json", "this is not json"},
		{"missing id", []map[string]any{activityJSON(1, start), {"name": "ghost", "start_date": start.Format(time.RFC3339)}}},
		{"bad start date", []map[string]any{{"id": 3, "name": "x", "start_date": "yesterday"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if s, ok := tt.body.(string); ok {
					_, _ = w.Write([]byte(s))
					return
				}
				_ = json.NewEncoder(w).Encode(tt.body)
			}))

			got, err := client.ListActivities(context.Background(), time.Time{}, time.Time{}, 10)
			require.ErrorIs(t, err, ErrUpstreamData)
			assert.Nil(t, got)
		})
	}
}

func TestUnexpectedStatus(t *testing.T) {
	fake := &fakeStrava{}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))

	_, err := client.ListActivities(context.Background(), time.Time{}, time.Time{}, 10)
	require.ErrorIs(t, err, ErrUpstreamStatus)
	assert.Contains(t, err.Error(), "upstream exploded")
	assert.Equal(t, 1, fake.count())
}

func TestGetActivityDetail(t *testing.T) {
	start := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/activities/42", func(w http.ResponseWriter, r *http.Request) {
		a := activityJSON(42, start)
		a["description"] = "Flagstaff loop"
		a["calories"] = 850.0
		_ = json.NewEncoder(w).Encode(a)
	})
	mux.HandleFunc("/activities/42/laps", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "lap_index": 1, "distance": 1000.0, "moving_time": 330, "elapsed_time": 340},
		})
	})
	mux.HandleFunc("/activities/42/streams", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("key_by_type"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"time":      map[string]any{"data": []float64{0, 1, 2}},
			"heartrate": map[string]any{"data": []float64{120, 121, 125}},
		})
	})

	client := newTestClient(t, mux)
	got, err := client.GetActivityDetail(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "Flagstaff loop", got.Description)
	require.Len(t, got.Laps, 1)
	assert.Equal(t, "5:30", got.Laps[0].Pace)
	assert.Equal(t, []float64{0, 1, 2}, got.Streams.Time)
	assert.Equal(t, []float64{120, 121, 125}, got.Streams.Heartrate)
	assert.NotNil(t, got.Streams.Altitude)
	assert.Empty(t, got.Streams.Altitude)
}

func TestGetActivityDetailNotFound(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())

	_, err := client.GetActivityDetail(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.GetActivityDetail(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPaceFromMoving(t *testing.T) {
	tests := []struct {
		distance float64
		moving   int64
		want     string
	}{
		{10000, 3000, "5:00"},
		{5000, 1625, "5:25"},
		{0, 100, "-"},
		{1000, 0, "-"},
	}
	for _, tt := range tests {
		if got := PaceFromMoving(tt.distance, tt.moving); got != tt.want {
			t.Errorf("PaceFromMoving(%v, %v) = %q, want %q", tt.distance, tt.moving, got, tt.want)
		}
	}
}
