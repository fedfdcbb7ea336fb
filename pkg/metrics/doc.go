// Package metrics exposes the prometheus collectors for the sack service.
package metrics
