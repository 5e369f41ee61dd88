// Package server manages the HTTP server lifecycle: non-blocking start,
// graceful shutdown, and SIGINT/SIGTERM handling.
package server
