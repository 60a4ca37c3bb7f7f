// Package billing adapts the external recurring-billing processor behind a
// small Gateway interface and normalizes its asynchronous webhook events into
// a tagged union the reconciler can branch on.
//
// Two rules shape this package:
//
//   - Local subscription state is authoritative. Gateway calls exist to stop
//     or verify processor-side billing and are best-effort: bounded timeouts,
//     errors reported but never allowed to block a local transition.
//   - Webhook bodies are decoded exactly once, at the boundary, into Event.
//     The reconciler trusts only the correlation fields carried there.
package billing
