// Package component defines the lifecycle contract shared by the session
// client, token stores and the mock API server, plus a Registry that starts
// them in order and stops them in reverse.
package component
