package domain

// Participant identifies one side of a chat room. The id is the backend's
// numeric user id; every room carries exactly two participants.
type Participant struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}
