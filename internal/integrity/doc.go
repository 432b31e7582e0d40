// Package integrity decides whether a document is an acceptable snapshot.
//
// Two levels of checking are provided:
//
//   - Shape: a hard structural check against CUE schemas (schema.cue).
//     Failing it rejects the document.
//   - References: cross-collection links (project to client, time entry to
//     project, invoice to client). Broken links only produce warnings.
//
// Classify runs the schemas as a tagged-variant parse for import, trying
// the export envelope first, then a bare snapshot, then the legacy layout.
package integrity
