// ABOUTME: Activity listing and detail retrieval from the Strava API.
// ABOUTME: Listing pages lazily and validates every record before yielding it.
package strava

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultPerPage is used when the caller passes zero.
	DefaultPerPage = 30
	// MaxPerPage is Strava's largest accepted page size.
	MaxPerPage = 200
)

// streamKeys are the stream types requested for activity detail.
const streamKeys = "time,heartrate,velocity_smooth,distance,altitude"

// ActivitySummary is a validated, unit-normalized view of one activity.
type ActivitySummary struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	StartTime        time.Time `json:"start_time"`
	DistanceM        float64   `json:"distance_m"`
	MovingTimeS      int64     `json:"moving_time_s"`
	ElapsedTimeS     int64     `json:"elapsed_time_s"`
	ElevationGainM   float64   `json:"elevation_gain_m"`
	AverageHeartrate *float64  `json:"average_heartrate"`
	Pace             string    `json:"pace"`
	PaceSPerKm       *float64  `json:"pace_s_per_km"`
	StartLatLng      []float64 `json:"start_latlng"`
}

// Lap represents a lap from a Strava activity
type Lap struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`              // e.g., "Lap 1"
	LapIndex         int     `json:"lap_index"`         // 1-based
	ElapsedTime      int64   `json:"elapsed_time"`      // sec
	MovingTime       int64   `json:"moving_time"`       // sec
	Distance         float64 `json:"distance"`          // meters
	AverageSpeed     float64 `json:"average_speed"`     // m/s
	MaxSpeed         float64 `json:"max_speed"`         // m/s
	AverageHeartrate float64 `json:"average_heartrate"` // bpm (may be 0)
	MaxHeartrate     float64 `json:"max_heartrate"`     // bpm
	ElevationGain    float64 `json:"total_elevation_gain"`
	Pace             string  `json:"pace"`
}

// Streams holds per-sample series for an activity. Missing series are empty.
type Streams struct {
	Time           []float64 `json:"time"`
	Heartrate      []float64 `json:"heartrate"`
	VelocitySmooth []float64 `json:"velocity_smooth"`
	Distance       []float64 `json:"distance"`
	Altitude       []float64 `json:"altitude"`
}

// ActivityDetail is a summary plus laps and streams.
type ActivityDetail struct {
	ActivitySummary
	Description string  `json:"description"`
	Calories    float64 `json:"calories"`
	Laps        []Lap   `json:"laps"`
	Streams     Streams `json:"streams"`
}

// apiActivity is the wire shape of a Strava activity.
type apiActivity struct {
	ID                 *int64    `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          string    `json:"start_date"`
	Distance           float64   `json:"distance"`
	MovingTime         int64     `json:"moving_time"`
	ElapsedTime        int64     `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	AverageHeartrate   *float64  `json:"average_heartrate"`
	StartLatLng        []float64 `json:"start_latlng"`
	Description        string    `json:"description"`
	Calories           float64   `json:"calories"`
}

type apiStream struct {
	Data []float64 `json:"data"`
}

// summarize validates a wire activity and converts it.
func (a apiActivity) summarize() (ActivitySummary, error) {
	if a.ID == nil {
		return ActivitySummary{}, fmt.Errorf("%w: activity missing id", ErrUpstreamData)
	}
	start, err := time.Parse(time.RFC3339, a.StartDate)
	if err != nil {
		return ActivitySummary{}, fmt.Errorf("%w: activity %d has bad start_date %q", ErrUpstreamData, *a.ID, a.StartDate)
	}

	kind := a.SportType
	if kind == "" {
		kind = a.Type
	}

	s := ActivitySummary{
		ID:               *a.ID,
		Name:             a.Name,
		Type:             kind,
		StartTime:        start.UTC(),
		DistanceM:        a.Distance,
		MovingTimeS:      a.MovingTime,
		ElapsedTimeS:     a.ElapsedTime,
		ElevationGainM:   a.TotalElevationGain,
		AverageHeartrate: a.AverageHeartrate,
		Pace:             PaceFromMoving(a.Distance, a.MovingTime),
		StartLatLng:      a.StartLatLng,
	}
	if secPerKm, ok := PaceSecondsPerKm(a.Distance, a.MovingTime); ok {
		s.PaceSPerKm = &secPerKm
	}
	if s.StartLatLng == nil {
		s.StartLatLng = []float64{}
	}
	return s, nil
}

// checkListParams applies defaults and rejects out-of-range values.
func (c *Client) checkListParams(after, before time.Time, perPage int) (int, error) {
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if perPage < 1 || perPage > MaxPerPage {
		return 0, fmt.Errorf("%w: per_page must be between 1 and %d, got %d", ErrInvalidRequest, MaxPerPage, perPage)
	}
	if !after.IsZero() && after.After(c.now()) {
		return 0, fmt.Errorf("%w: after %s is in the future", ErrInvalidRequest, after.Format(time.RFC3339))
	}
	if !after.IsZero() && !before.IsZero() && !before.After(after) {
		return 0, fmt.Errorf("%w: before %s must be later than after %s", ErrInvalidRequest,
			before.Format(time.RFC3339), after.Format(time.RFC3339))
	}
	return perPage, nil
}

// Activities lazily pages through the athlete's activities started after the
// given time and before the upper bound (zero means unbounded). Each page is fetched only when the
// previous one has been consumed, and iteration stops at the first short page.
// To resume, pass the start time of the last activity seen as after.
func (c *Client) Activities(ctx context.Context, after, before time.Time, perPage int) iter.Seq2[ActivitySummary, error] {
	return func(yield func(ActivitySummary, error) bool) {
		perPage, err := c.checkListParams(after, before, perPage)
		if err != nil {
			yield(ActivitySummary{}, err)
			return
		}

		for page := 1; ; page++ {
			batch, err := c.fetchPage(ctx, after, before, perPage, page)
			if err != nil {
				yield(ActivitySummary{}, err)
				return
			}
			for _, a := range batch {
				if !yield(a, nil) {
					return
				}
			}
			if len(batch) < perPage {
				return
			}
		}
	}
}

// ListActivities collects every page. Any error fails the whole call.
func (c *Client) ListActivities(ctx context.Context, after, before time.Time, perPage int) ([]ActivitySummary, error) {
	out := []ActivitySummary{}
	for a, err := range c.Activities(ctx, after, before, perPage) {
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, after, before time.Time, perPage, page int) ([]ActivitySummary, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	if !before.IsZero() {
		params.Set("before", strconv.FormatInt(before.Unix(), 10))
	}

	var raw []apiActivity
	if err := c.getJSON(ctx, "/athlete/activities", params, &raw); err != nil {
		return nil, err
	}

	// Validate the whole page before handing any of it out.
	out := make([]ActivitySummary, 0, len(raw))
	for _, a := range raw {
		s, err := a.summarize()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// GetActivityDetail fetches one activity with its laps and streams.
func (c *Client) GetActivityDetail(ctx context.Context, id int64) (*ActivityDetail, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: activity id must be positive, got %d", ErrInvalidRequest, id)
	}

	var raw apiActivity
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d", id), nil, &raw); err != nil {
		return nil, err
	}
	summary, err := raw.summarize()
	if err != nil {
		return nil, err
	}

	laps, err := c.getLaps(ctx, id)
	if err != nil {
		return nil, err
	}
	streams, err := c.getStreams(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ActivityDetail{
		ActivitySummary: summary,
		Description:     raw.Description,
		Calories:        raw.Calories,
		Laps:            laps,
		Streams:         *streams,
	}, nil
}

func (c *Client) getLaps(ctx context.Context, id int64) ([]Lap, error) {
	var laps []Lap
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d/laps", id), nil, &laps); err != nil {
		return nil, err
	}
	for i := range laps {
		laps[i].Pace = PaceFromMoving(laps[i].Distance, laps[i].MovingTime)
	}
	if laps == nil {
		laps = []Lap{}
	}
	return laps, nil
}

// getStreams fetches the requested streams keyed by type. Manual activities
// have no streams; a 404 there yields empty series.
func (c *Client) getStreams(ctx context.Context, id int64) (*Streams, error) {
	params := url.Values{}
	params.Set("keys", streamKeys)
	params.Set("key_by_type", "true")

	var raw map[string]apiStream
	err := c.getJSON(ctx, fmt.Sprintf("/activities/%d/streams", id), params, &raw)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	s := &Streams{
		Time:           series(raw, "time"),
		Heartrate:      series(raw, "heartrate"),
		VelocitySmooth: series(raw, "velocity_smooth"),
		Distance:       series(raw, "distance"),
		Altitude:       series(raw, "altitude"),
	}
	return s, nil
}

func series(raw map[string]apiStream, key string) []float64 {
	if v, ok := raw[key]; ok && v.Data != nil {
		return v.Data
	}
	return []float64{}
}
