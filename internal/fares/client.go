// Package fares looks up journey fares from the fare service and picks the
// one row that applies to a journey.
package fares

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/transit-planner/model"
)

// DefaultBaseURL is the public fare service.
const DefaultBaseURL = "https://api.tfl.gov.uk"

const avoidingZoneOne = "Avoiding Zone 1"

type fareResponseJSON struct {
	Rows []rowJSON `json:"rows"`
}

type rowJSON struct {
	PassengerType    string       `json:"passengerType"`
	RouteDescription string       `json:"routeDescription"`
	TicketsAvailable []ticketJSON `json:"ticketsAvailable"`
}

type ticketJSON struct {
	Cost       string `json:"cost"`
	TicketType struct {
		Type string `json:"type"`
	} `json:"ticketType"`
	TicketTime struct {
		Type string `json:"type"`
	} `json:"ticketTime"`
}

// Client queries the fare service over HTTP.
type Client struct {
	baseURL string
	appID   string
	appKey  string
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

// NewClient builds a client against baseURL, or DefaultBaseURL when empty.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns every fare row offered between two physical stops for the
// given travelcard.
func (c *Client) Lookup(ctx context.Context, from, to string, travelcard model.Travelcard) ([]model.Fare, error) {
	q := url.Values{}
	q.Set("passengerType", string(travelcard))
	if c.appID != "" {
		q.Set("app_id", c.appID)
	}
	if c.appKey != "" {
		q.Set("app_key", c.appKey)
	}
	endpoint := fmt.Sprintf("%s/Stoppoint/%s/FareTo/%s?%s",
		c.baseURL, url.PathEscape(from), url.PathEscape(to), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build fare request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch fares: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fare request failed with status: %s", resp.Status)
	}

	var payload []fareResponseJSON
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode fares: %w", err)
	}
	return faresFromJSON(payload), nil
}

func faresFromJSON(payload []fareResponseJSON) []model.Fare {
	var out []model.Fare
	for _, group := range payload {
		for _, row := range group.Rows {
			avoids := strings.Contains(row.RouteDescription, avoidingZoneOne)
			for _, ticket := range row.TicketsAvailable {
				cost, err := strconv.ParseFloat(strings.TrimSpace(ticket.Cost), 64)
				if err != nil {
					continue
				}
				fareType := model.FareType(ticket.TicketType.Type)
				if fareType != model.FareCashSingle {
					fareType = model.FarePayAsYouGo
				}
				out = append(out, model.Fare{
					Cost:          cost,
					Type:          fareType,
					Peak:          ticket.TicketTime.Type == "Peak",
					AvoidsZoneOne: avoids,
				})
			}
		}
	}
	return out
}

// Select applies the disambiguation rule to the rows for one journey: keep
// pay-as-you-go rows whose peak flag matches; a single survivor wins,
// otherwise the row whose zone-one avoidance matches the zones travelled.
// It returns nil when nothing matches.
func Select(rows []model.Fare, peak bool, zones []model.Zone) *model.Fare {
	var candidates []model.Fare
	for _, r := range rows {
		if r.Type == model.FarePayAsYouGo && r.Peak == peak {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 1 {
		return &candidates[0]
	}

	throughZoneOne := model.FareQuery{Zones: zones}.IncludesZoneOne()
	for i := range candidates {
		if candidates[i].AvoidsZoneOne != throughZoneOne {
			return &candidates[i]
		}
	}
	return nil
}
