// Package metering contains the token-budget domain for the GPT coaching
// features: per-user monthly quota records, the billing-period resolver, and
// the repository contract the gateway meters against.
//
// The quota record is keyed by (user_id, period_start). Admission checks read
// the stored counter and compare against the limit; the post-call reconcile
// step applies the upstream-reported token count as a server-side increment.
// The admission check is best-effort under concurrency; the reconcile
// increment is the authoritative usage record.
package metering
