// Package status polls the line status feed and turns it into the overlay
// the network applies to its connections.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/signalsfoundry/transit-planner/model"
)

// DefaultBaseURL is the public status feed.
const DefaultBaseURL = "https://api.tfl.gov.uk"

// Period is a window in which a status entry applies.
type Period struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls in the period, bounds included.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From) && !t.After(p.To)
}

// Detail is one status entry reported for a line.
type Detail struct {
	Severity model.Severity
	Reason   string
	// AffectedNaptans are the physical-stop codes named by the disruption.
	AffectedNaptans []string
	// Periods are sorted by start. An entry without periods is always current.
	Periods []Period
}

// CurrentAt reports whether the entry applies at t.
func (d Detail) CurrentAt(t time.Time) bool {
	if len(d.Periods) == 0 {
		return true
	}
	for _, p := range d.Periods {
		if p.Contains(t) {
			return true
		}
	}
	return false
}

// sameAs treats two entries as duplicates when their reasons match, or when
// either has no reason and the severities match.
func (d Detail) sameAs(o Detail) bool {
	if d.Reason == "" || o.Reason == "" {
		return d.Severity == o.Severity
	}
	return d.Reason == o.Reason
}

// LineReport is the feed's view of one line.
type LineReport struct {
	Line    model.Line
	Details []Detail
}

// Worst returns the most severe status currently in force on the line.
func (r LineReport) Worst(t time.Time) model.Severity {
	worst := model.GoodService
	for _, d := range r.Details {
		if d.CurrentAt(t) && d.Severity > worst {
			worst = d.Severity
		}
	}
	return worst
}

type lineJSON struct {
	ID           string       `json:"id"`
	LineStatuses []statusJSON `json:"lineStatuses"`
}

type statusJSON struct {
	Severity        string          `json:"statusSeverityDescription"`
	Reason          string          `json:"reason"`
	Disruption      *disruptionJSON `json:"disruption"`
	ValidityPeriods []periodJSON    `json:"validityPeriods"`
}

type disruptionJSON struct {
	AffectedStops []struct {
		StationNaptan string `json:"stationNaptan"`
	} `json:"affectedStops"`
}

type periodJSON struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
}

// Client fetches line statuses over HTTP.
type Client struct {
	baseURL string
	appID   string
	appKey  string
	lines   []model.Line
	http    *http.Client
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithCredentials sets the app_id and app_key query parameters.
func WithCredentials(appID, appKey string) ClientOption {
	return func(c *Client) {
		c.appID = appID
		c.appKey = appKey
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLines restricts the lines requested from the feed.
func WithLines(lines ...model.Line) ClientOption {
	return func(c *Client) { c.lines = lines }
}

// NewClient builds a client against baseURL, or DefaultBaseURL when empty.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		lines:   model.StatusLines,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch requests the detailed status of every configured line. Lines and
// severities the planner does not know are dropped.
func (c *Client) Fetch(ctx context.Context) ([]LineReport, error) {
	ids := make([]string, len(c.lines))
	for i, l := range c.lines {
		ids[i] = string(l)
	}
	q := url.Values{}
	q.Set("detail", "true")
	if c.appID != "" {
		q.Set("app_id", c.appID)
	}
	if c.appKey != "" {
		q.Set("app_key", c.appKey)
	}
	endpoint := fmt.Sprintf("%s/Line/%s/Status?%s", c.baseURL, strings.Join(ids, ","), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch line status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("line status request failed with status: %s", resp.Status)
	}

	var payload []lineJSON
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode line status: %w", err)
	}
	return reportsFromJSON(payload), nil
}

func reportsFromJSON(payload []lineJSON) []LineReport {
	reports := make([]LineReport, 0, len(payload))
	for _, lj := range payload {
		line := model.Line(lj.ID)
		if !line.Known() {
			continue
		}
		report := LineReport{Line: line}
		for _, sj := range lj.LineStatuses {
			severity, err := model.ParseSeverity(sj.Severity)
			if err != nil {
				continue
			}
			d := Detail{
				Severity: severity,
				Reason:   strings.TrimSpace(sj.Reason),
				Periods:  periodsFromJSON(sj.ValidityPeriods),
			}
			if sj.Disruption != nil {
				for _, stop := range sj.Disruption.AffectedStops {
					if stop.StationNaptan != "" {
						d.AffectedNaptans = append(d.AffectedNaptans, stop.StationNaptan)
					}
				}
			}
			if !containsDetail(report.Details, d) {
				report.Details = append(report.Details, d)
			}
		}
		reports = append(reports, report)
	}
	return reports
}

// periodsFromJSON parses and sorts validity periods, skipping malformed ones.
func periodsFromJSON(in []periodJSON) []Period {
	var out []Period
	for _, pj := range in {
		from, err := parseFeedTime(pj.FromDate)
		if err != nil {
			continue
		}
		to, err := parseFeedTime(pj.ToDate)
		if err != nil {
			continue
		}
		out = append(out, Period{From: from, To: to})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].From.Before(out[j].From) })
	return out
}

// parseFeedTime accepts RFC 3339 and the feed's zone-less form, read as UTC.
func parseFeedTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

func containsDetail(details []Detail, d Detail) bool {
	for _, other := range details {
		if other.sameAs(d) {
			return true
		}
	}
	return false
}
