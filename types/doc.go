// Package types defines the shared error taxonomy used across the engine.
//
// All failures that cross a package boundary are expressed as *types.Error
// with a stable ErrorCode, so callers can branch on the class of failure
// (capacity, not-found, timeout, retry exhaustion) without string matching.
package types
