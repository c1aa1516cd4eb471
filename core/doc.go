// Package core defines the domain model for the crosswalk control store.
//
// # Architecture Overview
//
// The core package provides:
//   - Typed records for every stored entity (Standard, Requirement,
//     SecurityLevel, Mapping, Zone, Conduit, ZoneConduitFlow, Technique,
//     Mitigation, TechniqueMitigation, SectorApplicability)
//   - Closed enumerations with IsValid checks
//   - Result shapes returned by the query services
//   - The validation error type shared by every layer
//
// # Nullability
//
// Columns that may be NULL in the store are pointer fields. A nil pointer
// always means "not recorded", never a zero value.
//
// # Outcome classes
//
// Query operations distinguish three outcomes:
//  1. Not found / empty: nil record or empty slice with a nil error
//  2. Validation failure: a *ValidationError (errors.Is(err, ErrValidation))
//  3. Store failure: logged and degraded to outcome 1 by the service layer
package core
