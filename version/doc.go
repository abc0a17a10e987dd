// Package version provides build version information for plugwire
// binaries.
//
// Version, git commit, branch, and build time are set at compile time
// via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/plugwire/version.Version=1.0.0" ./cmd/plugwire
//
// Binaries installed with go install report their module version instead.
package version
