// Package openf1 adapts the OpenF1 REST API as a live results source.
package openf1

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/pitwall/internal/source"
	"github.com/sydlexius/pitwall/internal/version"
)

const defaultBaseURL = "https://api.openf1.org/v1"

// Adapter implements source.Source for OpenF1.
type Adapter struct {
	client  *http.Client
	limiter *source.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates an OpenF1 adapter with the default base URL.
func New(limiter *source.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates an OpenF1 adapter with a custom base URL. An empty
// baseURL selects the public API.
func NewWithBaseURL(limiter *source.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: limiter,
		logger:  logger.With(slog.String("source", string(source.NameOpenF1))),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the source name.
func (a *Adapter) Name() source.Name { return source.NameOpenF1 }

// Meetings lists the race weekends of a season in calendar order. Testing
// events are skipped; round numbers follow the remaining order.
func (a *Adapter) Meetings(ctx context.Context, year int) ([]source.Meeting, error) {
	params := url.Values{"year": {strconv.Itoa(year)}}
	body, err := a.doRequest(ctx, a.baseURL+"/meetings?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp []APIMeeting
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing meetings response: %w", err)
	}

	meetings := make([]source.Meeting, 0, len(resp))
	for _, m := range resp {
		if isTesting(m.MeetingName) {
			continue
		}
		meetings = append(meetings, mapMeeting(m))
	}
	sort.SliceStable(meetings, func(i, j int) bool {
		return meetings[i].StartDate.Before(meetings[j].StartDate)
	})
	for i := range meetings {
		meetings[i].RoundNumber = i + 1
	}
	return meetings, nil
}

// Entrants lists the cars entered in a meeting, one per car number. The
// first session row for a number wins; later rows only fill blanks.
func (a *Adapter) Entrants(ctx context.Context, meetingKey string) ([]source.Entrant, error) {
	params := url.Values{"meeting_key": {meetingKey}}
	body, err := a.doRequest(ctx, a.baseURL+"/drivers?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp []APIDriver
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing drivers response: %w", err)
	}

	byNumber := make(map[int]int, len(resp))
	var entrants []source.Entrant
	for _, d := range resp {
		e := mapDriver(d)
		if e.FullName == "" {
			continue
		}
		if i, ok := byNumber[d.DriverNumber]; ok && d.DriverNumber != 0 {
			fillBlanks(&entrants[i], e)
			continue
		}
		byNumber[d.DriverNumber] = len(entrants)
		entrants = append(entrants, e)
	}
	return entrants, nil
}

// doRequest executes an HTTP GET with rate limiting and standard headers.
func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, source.NameOpenF1); err != nil {
		return nil, &source.ErrUnavailable{
			Source: source.NameOpenF1,
			Cause:  fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from configured base + query params
	if err != nil {
		return nil, &source.ErrUnavailable{
			Source: source.NameOpenF1,
			Cause:  err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &source.ErrNotFound{
			Source: source.NameOpenF1,
			Key:    reqURL,
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &source.ErrUnavailable{
			Source:     source.NameOpenF1,
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &source.ErrUnavailable{
			Source: source.NameOpenF1,
			Cause:  fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
}

func mapMeeting(m APIMeeting) source.Meeting {
	start := parseTime(m.DateStart)
	end := parseTime(m.DateEnd)
	if end.IsZero() && !start.IsZero() {
		end = start.AddDate(0, 0, 2)
	}
	year := m.Year
	if year == 0 && !start.IsZero() {
		year = start.Year()
	}
	return source.Meeting{
		Key:          strconv.Itoa(m.MeetingKey),
		Name:         m.MeetingName,
		OfficialName: m.MeetingOfficialName,
		Year:         year,
		StartDate:    start,
		EndDate:      end,
		CircuitName:  m.CircuitShortName,
		Location:     m.Location,
		Country:      m.CountryName,
	}
}

func mapDriver(d APIDriver) source.Entrant {
	first := strings.TrimSpace(d.FirstName)
	last := strings.TrimSpace(d.LastName)
	full := strings.TrimSpace(first + " " + last)
	if last == "" {
		full = strings.TrimSpace(d.FullName)
		first = ""
	}
	return source.Entrant{
		FullName:     full,
		FirstName:    first,
		LastName:     last,
		Abbreviation: strings.ToUpper(strings.TrimSpace(d.NameAcronym)),
		Nationality:  d.CountryCode,
		HeadshotURL:  d.HeadshotURL,
		Number:       d.DriverNumber,
		TeamName:     strings.TrimSpace(d.TeamName),
		TeamColor:    hexColor(d.TeamColour),
	}
}

func fillBlanks(dst *source.Entrant, src source.Entrant) {
	if dst.TeamName == "" {
		dst.TeamName = src.TeamName
	}
	if dst.TeamColor == "" {
		dst.TeamColor = src.TeamColor
	}
	if dst.HeadshotURL == "" {
		dst.HeadshotURL = src.HeadshotURL
	}
	if dst.Nationality == "" {
		dst.Nationality = src.Nationality
	}
	if dst.Abbreviation == "" {
		dst.Abbreviation = src.Abbreviation
	}
}

// hexColor prefixes the API's bare "3671C6" form with "#".
func hexColor(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "#") {
		return s
	}
	return "#" + s
}

func isTesting(name string) bool {
	return strings.Contains(strings.ToLower(name), "testing")
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func retryAfter(h string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 2 * time.Second
}
