// Package version carries build information for sessionkit binaries.
//
// Values are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kelmah/sessionkit/version.Version=1.2.0"
//
// The client version is sent on every API call as X-Client-Version.
package version
