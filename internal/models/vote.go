package models

// VoteRequest is the body of a vote call. Only the sign of Delta matters:
// positive adds an upvote, negative a downvote, zero changes nothing.
type VoteRequest struct {
	Delta int `json:"delta"`
}
