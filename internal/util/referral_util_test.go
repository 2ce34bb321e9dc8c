package util

import "testing"

func TestReferralCodeRoundTrip(t *testing.T) {
	code := EncodeReferralCode(42)

	id, err := DecodeReferralCode(code)
	if err != nil {
		t.Fatal(err)
	}
	if id != 42 {
		t.Errorf("decoded id = %d, want 42", id)
	}
}

func TestDecodeReferralCodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeReferralCode("not base64!!"); err == nil {
		t.Error("expected an error for invalid base64")
	}
	// Valid base64 but not a number.
	if _, err := DecodeReferralCode("aGVsbG8="); err == nil {
		t.Error("expected an error for a non-numeric payload")
	}
}
