// Package store provides the SQLite-backed system of record read by the
// timing shadow engine.
//
// The store holds four tables:
//   - rounds: one row per scored round (map, round number)
//   - player_comprehensive_stats: legacy per-player stats, possibly several rows per (round, guid)
//   - lua_round_teams: telemetry round snapshots; the latest captured_at carries the duration
//   - lua_spawn_stats: telemetry per-player dead time, keyed by a truncated guid
//
// *Store implements engine.Loader. Each loader method issues exactly one query.
//
// # Deterministic Query Results
//
// All loader queries order their output:
//   - RoundMeta: by round id
//   - LegacyTimings: by round_id, player_guid
//   - TelemetryTimings: by round_id, fingerprint, id
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Seeding (Seed, Insert*) exists for fixtures, tests and the operator CLI.
// The engine itself never writes.
package store
