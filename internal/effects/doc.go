// Package effects holds every side effect of fmdesk.
//
// Reducers are pure; all I/O happens here. Register binds handlers to action
// types on an engine. A handler receives the triggering action together with
// the state right after that action was reduced, performs its calls and
// returns the follow-up actions. Follow-ups inherit the trigger's flow.
//
// INVARIANTS:
//   - A handler never returns an error: failures become "... Failure" actions
//   - Validation failures are reported without any I/O
//   - Responses carry RequestSeq = trigger seq so reducers can drop stale ones
//   - Updates are confirm-then-apply: state changes on Success only
//   - The auth pipeline never half-applies: any failure ends in "[Auth] Logout"
package effects
