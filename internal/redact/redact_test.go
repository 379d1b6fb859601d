package redact

import "testing"

func TestToken(t *testing.T) {
	got := Token("clone https://abc123@github.com/x/y.git failed", "abc123")
	want := "clone https://***@github.com/x/y.git failed"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestTokenEmptySecret(t *testing.T) {
	s := "nothing to redact here"
	if got := Token(s, ""); got != s {
		t.Fatalf("empty secret should be a no-op, got %q", got)
	}
}

func TestURLRedactsUserinfo(t *testing.T) {
	got := URL("https://ghtoken@github.com/x/y.git", "")
	want := "https://***@github.com/x/y.git"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestURLRedactsSecretEvenWithoutUserinfo(t *testing.T) {
	got := URL("https://api.github.com/repos/x/y/releases?access_token=sekret", "sekret")
	want := "https://api.github.com/repos/x/y/releases?access_token=***"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
