package domain

import "strings"

// Contact is an entry in the contact directory. IsUser marks a contact
// that is also a registered account; such contacts may only be deleted by
// their owner.
type Contact struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Color  string `json:"color,omitempty"`
	IsUser bool   `json:"isUser,omitempty"`
}

// SentinelContact is the projection used when a referenced contact id
// resolves to no document. It is a stable value, not an error: a stream
// for a contact that never exists keeps emitting it indefinitely.
func SentinelContact(id string) Contact {
	return Contact{ID: id}
}

// ContactRef is the denormalized assignee entry embedded in a BoardTask.
type ContactRef struct {
	ContactID string `json:"contactId"`
	Name      string `json:"name"`
	Initials  string `json:"initials"`
	Color     string `json:"color"`
}

// Ref projects the contact into its board representation.
func (c Contact) Ref() ContactRef {
	return ContactRef{
		ContactID: c.ID,
		Name:      c.Name,
		Initials:  initials(c.Name),
		Color:     c.Color,
	}
}

func initials(name string) string {
	var b strings.Builder
	for i, w := range strings.Fields(name) {
		if i == 2 {
			break
		}
		r := []rune(w)
		b.WriteString(strings.ToUpper(string(r[0])))
	}
	return b.String()
}
