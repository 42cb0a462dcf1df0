package main

import "testing"

func TestEnvOr(t *testing.T) {
	t.Setenv("LETTERS_TEST_KEY", "from-env")
	if got := envOr("LETTERS_TEST_KEY", "fallback"); got != "from-env" {
		t.Errorf("envOr = %q, want env value", got)
	}
	if got := envOr("LETTERS_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("envOr = %q, want fallback", got)
	}
}
