// Package payload builds the serialized frontend payload for a finalized
// story and computes its content-addressed identity.
//
// Identity uses RFC 8785 canonical JSON hashed with SHA-256 under a domain
// prefix. Canonical serialization is the ONLY form that feeds the hash:
// object keys sorted by UTF-16 code units, NFC-normalized strings, no HTML
// escaping, no floats, no null. Two payloads with the same content hash are
// byte-identical, which is what makes version diffing and the single-active
// constraint trustworthy.
package payload
