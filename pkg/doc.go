// Package pkg provides shared utilities for the usbuart bridge.
//
// This package contains functionality used by the bridge core, its hardware
// backends, and the host-side tools:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for rejected requests and data path faults
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with bridge-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentBridge, "channel switched", "channel", "B")
//
// # Errors
//
// Errors are sentinel values compared with [errors.Is]. A request error
// rejects one control transfer and never takes the bridge down:
//
//	if pkg.IsRequestError(err) {
//	    // stall EP0
//	}
package pkg
