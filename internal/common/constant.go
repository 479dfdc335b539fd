package common

const (
	// AuthorizationHeaderName is the HTTP header and gRPC metadata key that
	// carries the bearer token.
	AuthorizationHeaderName = "authorization"

	// BearerPrefix precedes the token in the authorization value.
	BearerPrefix = "Bearer "

	// StatusSuccess is the status reported in successful auth envelopes.
	StatusSuccess = "success"
)
