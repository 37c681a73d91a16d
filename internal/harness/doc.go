// Package harness provides conformance testing for the moments pipeline.
//
// Scenarios are YAML files that describe a game (play by play, in builder
// shorthand), how to run the pipeline over it, and what the outcome must
// look like: ledger rows, moment counts, violations, published versions.
// Every scenario additionally passes through a fixed set of principles,
// invariants that must hold for ANY run regardless of what the scenario
// asserts.
//
// # Scenario Format
//
//	name: lead_changes
//	description: "two lead changes split the game into two moments"
//	game:
//	  id: g
//	  plays:
//	    - score: {side: HOME, points: 2}
//	    - score: {side: AWAY, points: 3}
//	    - quiet: 1
//	    - score: {side: HOME, points: 2}
//	options:
//	  auto_chain: true
//	expect:
//	  moments: 2
//	  version: 1
//	  stages:
//	    - {stage: VALIDATE_MOMENTS, status: success}
//	golden: true
//
// A scenario that needs a structurally broken document bypasses the
// builder with a raw doc:
//
//	game:
//	  doc: '{"game_id": "g", "league": "nba"}'
//
// Scenarios run against a throwaway SQLite database and the deterministic
// template renderer, so outcomes (and golden snapshots) are stable across
// runs. options.narrative swaps in a fixed-text renderer, which is how
// contract-violation scenarios force bad narrative.
package harness
