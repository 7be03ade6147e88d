package common

// SessionCookieName is the cookie carrying the session bearer token.
const SessionCookieName = "session_token"

// AuthorizationHeaderName is the HTTP header (and gRPC metadata key) carrying
// "Bearer <token>".
const AuthorizationHeaderName = "authorization"

// BearerPrefix precedes the token in the authorization header.
const BearerPrefix = "Bearer "
