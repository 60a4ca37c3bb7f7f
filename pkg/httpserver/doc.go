// Package httpserver wraps net/http with graceful shutdown, env-driven
// timeouts and probe handlers for the API server.
package httpserver
