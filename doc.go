// Package goAccess manages the lifecycle of a short-lived authorization token:
// it tracks the token's expiry, warns a delegate ahead of and at expiration,
// and distributes replacement tokens to listeners that it never keeps alive.
//
// A [Manager] is created through [Builder.Build] or [Create] and is safe for
// concurrent use until [Manager.Shutdown].
//
// # Architecture boundaries
//
// goAccess is the public surface: [Manager], [Builder], [Config], the delegate
// capability interfaces and the audit and metrics value types. Claims decoding
// lives in claims/, the deferred-execution substrate in clock/, and alarm
// bookkeeping and the weak listener registry under internal/.
//
// Token state and alarm state share one mutex. The listener registry has its
// own mutex, always taken after the manager's. Delegate and listener callbacks
// run with no lock held, so calling UpdateToken from TokenWillExpire is the
// expected pattern.
//
// # What this package must NOT do
//
//   - Verify token signatures or issue tokens.
//   - Log or audit token strings.
//   - Hold a strong reference to a listener's client key.
//   - Perform network I/O; refreshing the token is the delegate's job.
package goAccess
