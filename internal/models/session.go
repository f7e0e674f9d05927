package models

// User is the authenticated identity returned by the OTP verification flow.
type User struct {
	ID    string `json:"id" db:"id"`
	Phone string `json:"phone" db:"phone"`
	Name  string `json:"name" db:"name"`
}

// Session identifies the user a storage call is acting for. It is threaded
// explicitly into every storage operation; there is no ambient current user.
type Session struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

// SessionFor builds the session that scopes storage calls for a user.
func SessionFor(u User) Session {
	return Session{UserID: u.ID, Name: u.Name, Phone: u.Phone}
}
