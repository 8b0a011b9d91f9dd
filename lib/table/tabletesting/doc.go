// Package tabletesting provides the conformance suite for table.ITable implementations.
package tabletesting
