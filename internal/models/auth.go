package models

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the session token together with the
// post-reset penalty snapshot the main menu needs.
type LoginResponse struct {
	Token         string `json:"token"`
	User          *User  `json:"user"`
	PenaltyPoints int    `json:"penalty_points"`
	PenaltyReset  bool   `json:"penalty_reset"`
	Notice        string `json:"notice,omitempty"`
}
