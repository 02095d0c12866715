package server

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
	Tone    string `json:"tone"`
}

type forgetRequest struct {
	UserID string `json:"user_id"`
}

// googleAuthRequest carries either a Google ID token or, when no client ID is
// configured, the already-decoded profile fields.
type googleAuthRequest struct {
	Credential string  `json:"credential"`
	Sub        string  `json:"sub"`
	Name       string  `json:"name"`
	Email      *string `json:"email"`
}
