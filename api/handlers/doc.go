// Package handlers implements the HTTP endpoints of the browser-use
// API: health, synchronous and asynchronous task execution, task status
// lookup, and the simplified common-action endpoint.
package handlers
