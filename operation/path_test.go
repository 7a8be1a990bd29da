package operation

import "testing"

func TestPathEqual(t *testing.T) {
	cases := []struct {
		name  string
		a, b  Path
		equal bool
	}{
		{"identical", NewPath("user", 1, "profile"), NewPath("user", 1, "profile"), true},
		{"different length", NewPath("user", 1), NewPath("user", 1, "profile"), false},
		{"different element", NewPath("user", 1), NewPath("user", 2), false},
		{"both empty", NewPath(), NewPath(), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Equal(c.b); got != c.equal {
				t.Fatalf("Equal() = %v, want %v", got, c.equal)
			}
		})
	}
}

func TestPathHasPrefix(t *testing.T) {
	p := NewPath("user", 1, "profile")

	if !p.HasPrefix(NewPath("user", 1)) {
		t.Fatal("expected prefix match")
	}
	if !p.HasPrefix(NewPath()) {
		t.Fatal("empty path is a prefix of everything")
	}
	if p.HasPrefix(NewPath("user", 2)) {
		t.Fatal("mismatched element should not be a prefix")
	}
	if p.HasPrefix(NewPath("user", 1, "profile", "extra")) {
		t.Fatal("longer path cannot be a prefix")
	}
}

func TestPathKeyDistinguishesTypes(t *testing.T) {
	intPath := NewPath("id", 1)
	strPath := NewPath("id", "1")

	if intPath.key() == strPath.key() {
		t.Fatal("paths differing only in element type must not collide")
	}
}

func TestPathString(t *testing.T) {
	p := NewPath("user", 1)
	if got, want := p.String(), "[user, 1]"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
