// Package version provides the pure versioning and integrity functions shared
// by the write path and the conflict-resolution path: monotonic version
// counters and deterministic checksums over a record's business fields.
//
// Versions are plain integer increments, never derived from wall-clock time.
// Clock skew between devices would otherwise let two competing writes mint
// the same or out-of-order version tokens.
package version

// Next returns the version counter following prev.
func Next(prev int64) int64 {
	return prev + 1
}
