package chat

// SessionIdentity is the opaque correlation key of a session. It is supplied
// from outside and never interpreted here.
type SessionIdentity string

// String returns the raw identity.
func (id SessionIdentity) String() string {
	return string(id)
}

// Request is the body of POST /api/chat.
type Request struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Response is the body returned by POST /api/chat.
type Response struct {
	Reply string `json:"reply"`
}
