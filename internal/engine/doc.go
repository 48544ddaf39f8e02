// Package engine implements the timing shadow reconciliation engine.
//
// For a set of rounds the engine cross-validates two legacy per-participant
// timing quantities, time spent dead and playtime denied to the opponent,
// against the newer Lua telemetry source. Every (round, participant) pair
// yields one corrected PlayerRoundTimingShadow row, and the rows roll up into
// per-round diagnostics and per-participant session summaries.
//
// PIPELINE:
//
// Engine.Compare runs load -> compare -> aggregate -> write:
//  1. Loader.RoundMeta, Loader.LegacyTimings, Loader.TelemetryTimings
//  2. compareRounds joins legacy rows with telemetry by (round_id, fingerprint)
//     and calls ComputeShadowTiming once per pair
//  3. buildDiagnostics and buildSummaries roll the rows up
//  4. an ArtifactSink (optional) writes one CSV row per pair
//
// Results are memoized per normalized round-id set. A cache hit returns the
// stored *SessionTimingShadowResult itself; results are never mutated after
// they are stored.
//
// DATA QUALITY:
//
// Missing, negative or implausible telemetry is never an error. The value is
// always produced and the condition is recorded as a fallback reason tag:
//
//   - lua_missing_for_guid_prefix: the round has telemetry, this fingerprint does not
//   - lua_missing_for_round: no telemetry rows exist for the round
//   - lua_query_failed: the telemetry query failed for this run
//   - lua_guid_prefix_collision: two participants share the fingerprint
//   - lua_dead_negative_clamped / lua_dead_capped_to_plausible_limit
//
// Only legacy and round metadata query failures propagate to the caller.
//
// IDENTITY:
//
// The telemetry source reports an 8-character prefix of the participant GUID.
// Lookups try the canonical participant id first and fall back to the
// fingerprint. Two canonical ids sharing a fingerprint inside one round are
// never merged; see ReasonGUIDPrefixCollision.
package engine
