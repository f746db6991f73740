// Package identity is the boundary to the OAuth identity provider.
//
// The effects layer consumes the Provider interface: whether a session
// exists, a silent access token, the signed-in profile, a login redirect URL,
// the callback code exchange, and logout. OAuth implements it with the
// authorization-code flow plus PKCE via golang.org/x/oauth2 and keeps the
// session token in the preference store so a later CLI invocation can reuse it.
//
// CheckAuthenticated bounds the session check. A provider that hangs or fails
// is treated as "not authenticated" rather than blocking the auth pipeline.
package identity
