// Package core holds the HTTP response envelope and the projection of
// domain errors onto status codes, shared by every module router.
package core
