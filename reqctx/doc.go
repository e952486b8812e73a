// Package reqctx resolves the per-request signals used to pick a sidebar
// profile: content identity and taxonomy terms, visitor roles and
// authentication state, locale, device class, the site-local clock and the
// normalized current URL.
//
// A Resolver is constructed per request (or per iteration of a batch job)
// and memoizes its snapshot so every consumer sees one consistent view,
// even as the wall clock moves. Reset forces recomputation.
package reqctx
