package langmeta

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "ru", want: "ru"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		got := canonicalize(tc.in)
		if got != tc.want {
			t.Fatalf("canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		got := Resolve("ko")
		if got.Name != "한국어" || got.PluralForms != "nplurals=1; plural=0;" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("normalized match", func(t *testing.T) {
		got := Resolve("pt_br")
		if got.Name != "Português (Brasil)" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("base fallback", func(t *testing.T) {
		got := Resolve("fr-LU")
		if got.Name != "Français" {
			t.Fatalf("unexpected fallback result: %#v", got)
		}
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		got := Resolve("zz-ZZ")
		if got.Name != "zz-ZZ" || got.PluralForms == "" {
			t.Fatalf("unexpected unknown result: %#v", got)
		}
	})
}

func TestNPlurals(t *testing.T) {
	if got := NPlurals(PluralForms("ru")); got != 3 {
		t.Fatalf("NPlurals(ru) = %d, want 3", got)
	}
	if got := NPlurals("garbage"); got != 2 {
		t.Fatalf("NPlurals(garbage) = %d, want 2", got)
	}
	if got := NPlurals("nplurals=1; plural=0;"); got != 1 {
		t.Fatalf("NPlurals = %d, want 1", got)
	}
}
