package domain

// Profile is the signed-in user as returned by the backend. SchoolID is 0
// when the backend did not send one.
type Profile struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	SchoolID int64  `json:"school_id,omitempty"`
}
