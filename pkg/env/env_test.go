package env

import "testing"

func TestFirstPrefersEarlierKeys(t *testing.T) {
	t.Setenv("BAZAAR_TEST_A", "")
	t.Setenv("BAZAAR_TEST_B", "  beta ")
	t.Setenv("BAZAAR_TEST_C", "gamma")
	if got := First("fallback", "BAZAAR_TEST_A", "BAZAAR_TEST_B", "BAZAAR_TEST_C"); got != "beta" {
		t.Fatalf("expected beta, got %q", got)
	}
	if got := First("fallback", "BAZAAR_TEST_A"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
