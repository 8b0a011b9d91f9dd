// Package stats counts blog visitors per day and views per post.
//
// The counters are kept as one JSON document under StatsKey:
//
//	{"visitors": {"2024-05-01": 12}, "views": {"1714557600000": 3}}
//
// Reads fail soft, a corrupt document is treated as no data.
package stats
