// Package apiclient is the authenticated HTTP client for the identity service.
//
// Every request runs through an ordered pipeline:
//
//	build -> attach credential -> dispatch -> classify -> (refresh and retry)
//
// A 401 on a request that has not been retried triggers one refresh call. On success the
// new token is written to the token store and the original request is sent once more with
// it; whatever that second attempt returns is final. When the refresh call fails the store
// is cleared, the browser is sent to the login path and the caller gets
// errors.ErrAuthenticationLost.
//
// The retry marker lives in the request context. It is set by deriving a new context, so
// concurrent requests never share it.
package apiclient
