// Package redisstream ships goAccess audit events to a Redis stream with XADD,
// one entry per event, so several processes sharing a token can be audited in
// one place.
//
// # What this package must NOT do
//
//   - Block the manager; it runs on the audit dispatcher goroutine only.
//   - Write token strings. Events never carry them.
package redisstream
