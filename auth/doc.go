// Package auth identifies the viewer of a page.
//
// The sidebar only needs to know whether the viewer is logged in and which
// roles they hold. Authenticators read a signed token from the Authorization
// header or a session cookie and produce an Identity; Identify and Middleware
// attach it to the request context where the request-context resolver picks
// it up. Keys come from a static HMAC secret or a JWKS endpoint.
package auth
