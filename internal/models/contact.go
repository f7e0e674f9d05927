package models

import "strings"

// Contact is a saved name/phone pair used to resolve member identities when
// adding people to a shared list.
type Contact struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Phone string `json:"phone" db:"phone"`
}

// PhoneDigits strips everything but digits from a phone number. Member keys
// and membership lookups compare phones in this normalised form.
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
