// Package email provides a provider-agnostic interface for sending
// transactional emails with a Postmark implementation for production and a
// log-based sender for development.
//
// The subscription notifier uses this package as its delivery transport; the
// core never depends on a concrete provider.
package email
