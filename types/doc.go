// Package types defines the shared data model of the browser-use API:
// task records, task states, and the structured error taxonomy used by
// every layer of the service.
package types
