package ir

// Version constants for the snapshot schema and the generator.
const (
	// SnapshotVersion is the snapshot schema version.
	SnapshotVersion = "1"

	// GeneratorVersion is the builtingen version.
	GeneratorVersion = "0.1.0"
)
