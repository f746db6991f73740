// Package harness runs YAML behaviour scenarios against the fmdesk state
// container.
//
// A scenario drives the real engine, reducers and effects. The session talks
// to an in-process mock backend (mockapi) that also plays the identity
// provider, so a scenario can log in through the full authorization-code
// flow, load and mutate users and service requests, and inject backend
// faults.
//
// # Determinism
//
// The harness uses:
//   - Numbered flow tokens ("<flow_prefix>-1", "<flow_prefix>-2", ...)
//   - A settable wall clock shared by effects, the provider and the mock
//     backend (testutil.Clock); flow steps move it with advance
//   - A fresh in-memory SQLite action log per run
//   - Redaction of signed tokens, authorization codes and login state
//
// Steps wait for the engine to go idle, and each action type has a single
// effect, so every run of a scenario logs the same actions in the same order.
// Traces are compared with goldie snapshots.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/admin_dashboard.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
