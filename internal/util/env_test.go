package util

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("ORGTREE_TEST_VALUE", "hello")

	if got := GetEnv("ORGTREE_TEST_VALUE"); got != "hello" {
		t.Fatalf("expected %q, got %q", "hello", got)
	}
	if got := GetEnv("ORGTREE_TEST_MISSING"); got != "" {
		t.Fatalf("expected empty string for unset key, got %q", got)
	}
}

func TestGetEnvNumeric(t *testing.T) {
	t.Setenv("ORGTREE_TEST_TTL", "3600")
	if got := GetEnvNumeric("ORGTREE_TEST_TTL", 60); got != 3600 {
		t.Fatalf("expected 3600, got %v", got)
	}

	t.Setenv("ORGTREE_TEST_TTL", "not-a-number")
	if got := GetEnvNumeric("ORGTREE_TEST_TTL", 60); got != 60 {
		t.Fatalf("expected default 60 for malformed value, got %v", got)
	}

	if got := GetEnvNumeric("ORGTREE_TEST_UNSET", 60); got != 60 {
		t.Fatalf("expected default 60 for unset key, got %v", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	cases := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"false", true, false},
		{"yes", false, false},
		{"", true, true},
	}
	for _, tc := range cases {
		t.Setenv("ORGTREE_TEST_FLAG", tc.value)
		if got := GetEnvBool("ORGTREE_TEST_FLAG", tc.def); got != tc.want {
			t.Fatalf("value %q default %v: expected %v, got %v", tc.value, tc.def, got, tc.want)
		}
	}

	if got := GetEnvBool("ORGTREE_TEST_FLAG_UNSET", true); got != true {
		t.Fatalf("expected default true for unset key, got false")
	}
}
