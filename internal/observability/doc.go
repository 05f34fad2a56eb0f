// Package observability holds gin middleware for request logging and
// request metrics.
package observability
