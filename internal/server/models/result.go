package models

// AuthResult is returned by every operation that issues a login token.
type AuthResult struct {
	Status string   `json:"status"`
	Token  string   `json:"token"`
	Data   AuthData `json:"data"`
}

type AuthData struct {
	User PublicUser `json:"user"`
}

// MessageResult carries a human-readable confirmation.
type MessageResult struct {
	Message string `json:"message"`
}

// ResetResult confirms a password reset. Token echoes the reset token that
// was consumed; it is not a login token.
type ResetResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}
