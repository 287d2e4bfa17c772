// Package claims extracts expiry metadata from opaque JWT access tokens.
//
// # Architecture boundaries
//
// This package decodes the claims segment only. Signature verification and
// issuer policy belong to whoever issued the token; the access manager treats
// the token as an opaque credential whose exp claim drives its alarms.
//
// # What this package must NOT do
//
//   - Verify signatures or hold key material.
//   - Reject expired tokens: an expired token still has a decodable expiry.
//   - Keep state between calls.
package claims
