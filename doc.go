// Package googletoken authenticates users with a Google issued OAuth
// credential and exchanges the verified identity for a local account plus a
// short lived signed session token.
//
// The package is built around two collaborators:
//
//   - IdentityResolver maps a verified ExternalProfile onto exactly one local
//     Account, creating or linking accounts as needed.
//   - SessionIssuer turns a resolved Account into a signed JWT and, when
//     enabled, the Set-Cookie attributes that carry it.
//
// Provider verification lives in provider/google, durable storage in
// repository, and the HTTP boundary in HTTPController. Live connection teardown
// on logout is delegated to an optional ConnectionRegistry.
package googletoken
