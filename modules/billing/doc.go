// Package billing is the HTTP surface for the subscription lifecycle: the
// processor webhook endpoint plus the user-facing checkout and subscription
// management operations.
package billing
