// Package middleware provides the HTTP middleware chain: W3C request
// logging and Prometheus request metrics.
package middleware
