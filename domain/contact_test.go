package domain

import "testing"

func TestContactRef(t *testing.T) {
	c := Contact{ID: "c1", Name: "Sofia Müller", Color: "#FF7A00"}
	ref := c.Ref()
	if ref.ContactID != "c1" || ref.Name != "Sofia Müller" || ref.Color != "#FF7A00" {
		t.Fatalf("unexpected ref %+v", ref)
	}
	if ref.Initials != "SM" {
		t.Fatalf("got initials %q", ref.Initials)
	}
}

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"anja":              "A",
		"Anton Mayer":       "AM",
		"Eva Maria Fischer": "EM",
		"  benedikt  ziegler ": "BZ",
	}
	for name, want := range cases {
		if got := initials(name); got != want {
			t.Fatalf("initials(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestSentinelContact(t *testing.T) {
	s := SentinelContact("ghost")
	if s.ID != "ghost" || s.Name != "" || s.Email != "" || s.Phone != "" || s.Color != "" || s.IsUser {
		t.Fatalf("unexpected sentinel %+v", s)
	}
	ref := s.Ref()
	if ref.ContactID != "ghost" || ref.Name != "" || ref.Initials != "" {
		t.Fatalf("unexpected sentinel ref %+v", ref)
	}
}
