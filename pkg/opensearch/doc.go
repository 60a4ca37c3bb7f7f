// Package opensearch provides client construction and health checking for the
// posts search index. Query logic lives with the feed module; this package is
// connection plumbing only.
package opensearch
