// Package model defines the business-record types that make up a working set
// and the snapshot aggregate persisted by the durability layer.
//
// This package contains type definitions and small value helpers only. Every
// other internal package imports model; model imports nothing internal.
//
// Key constraints:
//   - Money is decimal.Decimal, never float64
//   - JSON tags use camelCase to stay compatible with exported documents
//   - Invoice.PaidAmount and Invoice.TDSReceived are written only by the
//     ledger package
//   - Collections are never serialized as null (see WorkingSet.Normalize)
package model
