// Package observability provides structured logging and metrics for the
// chat relay.
//
// This package implements:
//   - Structured logging with the request id attached (zap-based)
//   - Prometheus metrics for requests, upstream attempts, retry waits
//     and streaming connections
//
// Both are exposed behind small interfaces so services can be tested with
// no-op implementations.
package observability
