// Package feed is the HTTP surface for post discovery: full-text search
// gated by the strict interaction policy, and the per-post access decision
// endpoint that combines the read gate with the anonymous view quota.
package feed
