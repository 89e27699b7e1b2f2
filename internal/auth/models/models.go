package models

// AdminLoginRequest is the credential payload for staff and admin sign-in.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AdminLoginResult struct {
	Token    string `json:"session_token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type ParticipantSignupRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phone_number"`
	Organization string `json:"organization"`
	Password     string `json:"password"`
}

type ParticipantSignupResult struct {
	ParticipantID string `json:"participant_id"`
	Token         string `json:"session_token"`
}

type ParticipantLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ParticipantLoginResult struct {
	Token         string `json:"session_token"`
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
}
