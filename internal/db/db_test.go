package db

import "testing"

func TestSetTimezoneValidatesName(t *testing.T) {
	if err := SetTimezone(nil, "UTC"); err != nil {
		t.Fatalf("UTC: %v", err)
	}
	if err := SetTimezone(nil, ""); err != nil {
		t.Fatalf("empty timezone should be a no-op, got %v", err)
	}
	if err := SetTimezone(nil, "Definitely/Bogus"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
	if err := SetTimezone(nil, "UTC'; DROP TABLE users; --"); err == nil {
		t.Fatal("expected error for a timezone that is not a zone name")
	}
}
