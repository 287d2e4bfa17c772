// Package internal holds goAccess building blocks that are private to the
// module.
//
// # Sub-packages
//
//   - registry: weak-keyed listener registry with cleanup-driven purge
//   - schedule: generation-guarded will-expire and expired alarms
//   - clocktest: manually advanced clock for deterministic alarm tests
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAccess API.
//   - Be imported by any package outside the goAccess module.
package internal
