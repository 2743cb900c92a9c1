package normalize

import "testing"

func TestEmail(t *testing.T) {
	in := "  John.DOE@Example.COM  "
	want := "john.doe@example.com"
	got := Email(in)
	if got != want {
		t.Fatalf("Normalize.Email(%q) = %q, want %q", in, got, want)
	}
}

func TestUserID(t *testing.T) {
	in := " 65aB01 "
	if got := UserID(in); got != "65aB01" {
		t.Fatalf("UserID(%q) = %q, want %q", in, got, "65aB01")
	}
}

func TestContent(t *testing.T) {
	tests := map[string]string{
		"  hi there \n": "hi there",
		"\t \n":         "",
		"a  b":          "a  b",
	}
	for in, want := range tests {
		if got := Content(in); got != want {
			t.Fatalf("Content(%q) = %q, want %q", in, got, want)
		}
	}
}
