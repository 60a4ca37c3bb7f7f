// Package notifier delivers subscription lifecycle notifications. The core
// decides which transitions notify; this package owns the transport.
package notifier
