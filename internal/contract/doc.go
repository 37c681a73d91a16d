// Package contract mechanically validates a (possibly narrative-annotated)
// moment sequence against the rules every finalized story must satisfy.
//
// Validation is pure and side-effect free. Every rule runs; all violations
// come back in one structured list (code, message, offending indices) so a
// single pass reports every problem at once. Expected-invalid input NEVER
// causes a panic; only programmer errors do (an empty sequence where one
// is structurally required).
//
// A violated invariant is loud here, never repaired. A score continuity
// break, including the classic accidental reset to (0,0) at a period
// boundary, is reported, not corrected.
package contract
