package model

// Version constants for the snapshot schema and export tool.
const (
	// SchemaVersion is the snapshot schema version stamped by the builder.
	SchemaVersion = "2.0"

	// ExportVersion is the version of the export document layout.
	ExportVersion = "1.0"

	// ExportedBy identifies this tool in export documents.
	ExportedBy = "tallykeep"
)
