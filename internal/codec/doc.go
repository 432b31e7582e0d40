// Package codec serializes snapshots into the checksummed export document
// and parses user-supplied documents back into snapshots.
//
// Export document layout:
//
//	{
//	  "data": { ...snapshot..., "exportedAt": "<RFC 3339>", "exportVersion": "1.0" },
//	  "checksum": "<16 hex chars>",
//	  "exportedBy": "tallykeep"
//	}
//
// Import accepts that envelope, a bare snapshot, or the legacy layout with
// only clients and projects. Import never returns an error; every problem is
// reported on the Result.
package codec
