// Package quote provides the daily price series shown next to posts that reference a stock.
//
// Prices come from the Yahoo Finance chart API (symbol suffixed with ".KS"). When the API
// is unreachable or returns nothing usable, Series falls back to a simulated random walk so
// that a chart can always be drawn. Filter trims a series to a display period.
package quote
