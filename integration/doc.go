//go:build integration

// Package integration provides integration tests for the glbrange library.
//
// These tests require Docker and serve GLB files from a real nginx container
// using testcontainers.
// Run with: go test -tags=integration ./integration/...
package integration
