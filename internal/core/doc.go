// Package core provides the card catalog's business logic: the CSV import
// pipeline and the service layer the web server and commands call.
//
// Nothing in this package reads the environment or knows about HTTP. It can be
// driven by web handlers, the import command or tests without modification.
//
// # Import Pipeline
//
// An import turns one CSV file into created, updated and skipped cards:
//
//  1. [Detector] guesses the byte encoding from the first 4 KiB
//  2. [Reader] decodes the file (falling back to Latin-1), sniffs ',' or ';'
//     and yields one [Row] per record
//  3. [Normalizer] maps header aliases onto card fields and canonicalizes
//     list cells and attacks_<i>_<attr> columns into JSON array text
//  4. the upserter looks the card up by (set_id, number) and inserts or
//     patches it under a per-row savepoint
//  5. [Importer] runs the whole file in one transaction and collects a
//     [Result] with per-row failures
//
// Rows missing their key or name, and rows the store rejects with an
// integrity violation, are skipped and reported as [RowFailure]. Any other
// error rolls the whole file back and no result is returned.
//
// # Service
//
// [Service] wraps the importer with an [ImportLimiter] (imports are
// serialized by default), a per-import timeout and the import run history,
// and exposes card, collection and price quote operations with payload
// validation through go-playground/validator.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB007: Database errors (duplicates, constraints, connections)
//   - VAL001-VAL004: Validation errors (missing key or name, payloads)
//   - FILE001-FILE005: File errors (size, format, missing)
//   - IMP001-IMP003: Import errors (busy, cancelled, timeout)
//   - CARD001-CARD002: Catalog lookups
package core
