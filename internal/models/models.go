package models

import "time"

// Swipe directions
const (
	DirectionLike = "like"
	DirectionPass = "pass"
)

// User represents an account holder
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	School    string    `json:"school"`
	PhotoRef  *string   `json:"photo_ref,omitempty"`
	PushToken *string   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Prompt is the question of a single UTC calendar day
type Prompt struct {
	ID        string    `json:"id"`
	Day       string    `json:"day"`
	Question  string    `json:"question"`
	CreatedAt time.Time `json:"created_at"`
}

// PromptResponse is a user's answer to a prompt
type PromptResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PromptID  string    `json:"prompt_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResponseView pairs a response with its prompt question
type ResponseView struct {
	Question  string    `json:"question"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Swipe is a directional decision of one user about another
type Swipe struct {
	ID        string    `json:"id"`
	SwiperID  string    `json:"swiper_id"`
	SwipedID  string    `json:"swiped_id"`
	Direction string    `json:"direction"`
	CreatedAt time.Time `json:"created_at"`
}

// Match represents a mutual like. UserAID is always the lexicographically smaller id.
type Match struct {
	ID        string    `json:"id"`
	UserAID   string    `json:"user_a_id"`
	UserBID   string    `json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HasUser reports whether userID is one of the participants
func (m *Match) HasUser(userID string) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// OtherUserID returns the participant that is not userID
func (m *Match) OtherUserID(userID string) (string, bool) {
	switch userID {
	case m.UserAID:
		return m.UserBID, true
	case m.UserBID:
		return m.UserAID, true
	}
	return "", false
}

// CanonicalPair orders two user ids the way matches are stored
func CanonicalPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// Message is a chat line inside a match
type Message struct {
	ID        int64     `json:"id"`
	MatchID   string    `json:"match_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	Position  int64     `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Invite is a single-use signup code
type Invite struct {
	Code      string     `json:"code"`
	CreatedBy *string    `json:"created_by,omitempty"`
	UsedBy    *string    `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// PublicProfile is what other users may see about a user
type PublicProfile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	School   string `json:"school"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// CandidateView is a feed card
type CandidateView struct {
	PublicProfile
	Responses []ResponseView `json:"responses"`
}

// MatchView is a match as seen by one participant
type MatchView struct {
	ID        string        `json:"id"`
	MatchedAt time.Time     `json:"matched_at"`
	OtherUser PublicProfile `json:"other_user"`
}
