// Package subscription implements the subscription lifecycle: the per-user
// profile state machine, the checkout payment sessions that bridge the
// processor handshake, the webhook reconciler that applies the processor's
// asynchronous events, the retry/grace escalation policy, and the access
// gates every protected feature consults.
//
// Design rules, in order of precedence:
//
//   - Local state is authoritative. Processor calls are best-effort side
//     effects and never block a local transition.
//   - Webhook delivery is at least once and unordered. Every reconciler
//     branch is idempotent under a per-identity lock, with event-identity
//     dedup in front of it.
//   - Notifications are strictly downstream: dispatch failures are logged
//     and never roll back the transition that triggered them.
//
// The pure pieces (Escalate, HasAccess, CanInteract, the session transition
// chain) take explicit clocks and perform no I/O, so the policy layer is
// testable without any store.
package subscription
