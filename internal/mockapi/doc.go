// Package mockapi is an in-process fake of the facility backend and its
// identity provider.
//
// It serves the REST API under /api/v1 and an OAuth 2.0 provider (authorize,
// token, userinfo, logout) from the same chi router, seeded from embedded JSON
// fixtures. Fixtures deliberately use the API's inconsistent field aliases and
// enum vocabularies so the adapter layer is exercised end to end.
//
// Tests drive it through httptest; "fmdesk mock-api" serves it on a port.
// Faults can be queued per route to simulate server and network errors, and
// every request is counted so tests can assert on network traffic.
package mockapi
