// Package harness runs timing shadow scenarios end to end.
//
// A scenario seeds a fresh in-memory store, compares the requested rounds
// with the engine, and checks the resulting rows, summaries and
// diagnostics against declared expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	round_ids: [101, 102]
//	fixture:
//	  rounds:
//	    - { id: 101, map_name: supply, round_number: 1 }
//	  player_stats: [...]
//	  round_teams: [...]
//	  spawn_stats: [...]
//	assertions:
//	  - type: row
//	    round_id: 101
//	    participant_id: A1B2C3D4E5F60718293A4B5C6D7E8F90
//	    expect: { new_dead_seconds: 200, fallback_reason: lua_dead_capped_to_plausible_limit }
//	  - type: round
//	    round_id: 101
//	    expect: { coverage_percent: 100 }
//
// fixture_file may replace the inline fixture; it is resolved relative to
// the scenario file.
//
// # Assertion Types
//
//   - row: Subset match on the row for (round_id, participant_id)
//   - summary: Subset match on the session summary for participant_id
//   - round: Subset match on the diagnostics for round_id
//   - result: Subset match on top-level result fields
//   - top_n: Ranking order for metric (abs unless signed is set)
//   - row_count: Exact number of rows
//
// Expected values are compared against the JSON form of the engine types,
// so keys use the snake_case field names.
//
// # Deterministic Testing
//
// Every scenario runs with a fixed clock (testutil.Epoch) and a fixed run
// id, in a private ":memory:" database, with no artifact sink.
// fail_telemetry drops the telemetry table before comparing.
package harness
