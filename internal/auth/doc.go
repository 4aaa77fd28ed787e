// Package auth keeps per-provider credentials usable across requests.
//
// A [Manager] runs the credential lifecycle on every request: it resolves the session subject,
// merges a fresh sign-in into the per-provider bundles, hydrates missing bundles from the
// account store, refreshes bundles that are about to expire and writes refreshed tokens back.
// Each step reports an [Outcome] so callers can see what was applied, skipped or degraded.
//
// Sessions travel as an opaque, sealed token produced by [SessionCodec].
package auth
