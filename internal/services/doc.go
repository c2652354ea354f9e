// Package services defines shared utilities consumed by the cache orchestrator,
// the APOD client, and the CLI.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper so every failure carries
//     one of the named kinds (remote, unsupported media, download, storage,
//     not found) through %w chains.
//   - Classify, which maps an error back to its kind for CLI reporting.
//   - Context helpers that stamp record IDs, dates, and correlation
//     identifiers for logging.
//
// Use these helpers when wiring new code paths so failure reporting stays
// uniform across the module.
package services
