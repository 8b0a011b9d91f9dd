package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/freerahn/stockblog/lib/db/util"
	"github.com/freerahn/stockblog/remote/common"
	"github.com/freerahn/stockblog/remote/transport"
	"github.com/lni/dragonboat/v4/logger"
	"math"
	"math/rand/v2"
	"net/url"
	"time"
)

// DefaultEndpoint is the Yahoo Finance chart API
const DefaultEndpoint = "https://query1.finance.yahoo.com"

// DateLayout is the layout of PricePoint.Date
const DateLayout = "2006-01-02"

var Logger = logger.GetLogger("quote")

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// PricePoint is the closing price of one trading day
type PricePoint struct {
	Date  string `json:"date"`
	Price int64  `json:"price"`
}

// Range is the history requested from the quote API
type Range string

const (
	Range3M Range = "3m"
	Range3Y Range = "3y"
)

// apiRange maps a range to the value of the range query parameter
func (r Range) apiRange() string {
	if r == Range3Y {
		return "3y"
	}
	return "3mo"
}

// Period is the window a series is trimmed to for display
type Period string

const (
	Period1D Period = "1d"
	Period1W Period = "1w"
	Period3M Period = "3m"
	Period1Y Period = "1y"
	Period3Y Period = "3y"
)

// ParsePeriod validates a period name
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case Period1D, Period1W, Period3M, Period1Y, Period3Y:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q (use 1d, 1w, 3m, 1y or 3y)", s)
	}
}

// basePrices are the starting prices of the simulated series
var basePrices = map[string]float64{
	"079160": 6000, // CJ CGV
	"084990": 5000, // Helixmith
	"035720": 4000,
}

const defaultBasePrice = 5000

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// Client fetches daily closing prices of KOSPI listed stocks
type Client struct {
	transport transport.IClientTransport
	now       func() time.Time
}

// NewClient connects transport to the quote API and returns a client.
// An empty endpoint uses DefaultEndpoint.
func NewClient(config common.ClientConfig, t transport.IClientTransport) (*Client, error) {
	if len(config.Endpoints) == 0 {
		config.Endpoints = []string{DefaultEndpoint}
	}
	if err := t.Connect(config); err != nil {
		return nil, err
	}
	return &Client{transport: t, now: time.Now}, nil
}

// chartResponse is the part of the chart API response we read
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// Fetch queries the daily closes of symbol. Days without a positive close are dropped.
func (c *Client) Fetch(ctx context.Context, symbol string, r Range) ([]PricePoint, error) {
	resp, err := c.transport.Send(ctx, transport.Request{
		Method: "GET",
		Path:   "/v8/finance/chart/" + url.PathEscape(symbol+".KS"),
		Query:  url.Values{"interval": {"1d"}, "range": {r.apiRange()}},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch quotes of %s: %w", symbol, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("fetch quotes of %s: http %s", symbol, resp.Status)
	}

	var chart chartResponse
	if err := json.Unmarshal(resp.Body, &chart); err != nil {
		return nil, fmt.Errorf("decode quotes of %s: %w", symbol, err)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quotes for %s", symbol)
	}
	result := chart.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	points := make([]PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		price := int64(math.Round(*closes[i]))
		if price <= 0 {
			continue
		}
		points = append(points, PricePoint{
			Date:  time.Unix(ts, 0).UTC().Format(DateLayout),
			Price: price,
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no quotes for %s", symbol)
	}
	return points, nil
}

// Series returns the fetched series, or a simulated one if fetching fails.
// The boolean reports whether the series is simulated.
func (c *Client) Series(ctx context.Context, symbol string, r Range) ([]PricePoint, bool) {
	points, err := c.Fetch(ctx, symbol, r)
	if err == nil {
		return points, false
	}
	Logger.Warningf("falling back to simulated quotes: %v", err)
	return Simulate(symbol, r, c.now()), true
}

// --------------------------------------------------------------------------
// Simulation and filtering
// --------------------------------------------------------------------------

// Simulate generates a daily random walk of weekdays up to now. Each day moves
// at most 3% and the price never drops below half of the symbol's base price.
// The series is deterministic for a symbol, range and day.
func Simulate(symbol string, r Range, now time.Time) []PricePoint {
	today := truncateDay(now.UTC())
	start := today.AddDate(0, -3, 0)
	if r == Range3Y {
		start = today.AddDate(-3, 0, 0)
	}

	base, ok := basePrices[symbol]
	if !ok {
		base = defaultBasePrice
	}

	seed := uint64(util.HashString(symbol, 0))
	rng := rand.New(rand.NewPCG(seed, uint64(start.Unix())))

	var points []PricePoint
	price := base
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		change := (rng.Float64() - 0.5) * 6
		price *= 1 + change/100
		if price < base*0.5 {
			price = base * 0.5
		}
		points = append(points, PricePoint{Date: d.Format(DateLayout), Price: int64(math.Round(price))})
	}
	return points
}

// Filter keeps the points between the start of period and today (inclusive).
// Points with an unreadable date are dropped.
func Filter(points []PricePoint, period Period, now time.Time) []PricePoint {
	today := truncateDay(now)
	var start time.Time
	switch period {
	case Period1D:
		start = today
	case Period1W:
		start = today.AddDate(0, 0, -7)
	case Period3M:
		start = today.AddDate(0, -3, 0)
	case Period1Y:
		start = today.AddDate(-1, 0, 0)
	default:
		start = today.AddDate(-3, 0, 0)
	}

	out := make([]PricePoint, 0, len(points))
	for _, p := range points {
		d, err := time.ParseInLocation(DateLayout, p.Date, now.Location())
		if err != nil {
			continue
		}
		if !d.Before(start) && !d.After(today) {
			out = append(out, p)
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
