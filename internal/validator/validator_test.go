package validator

import "testing"

func TestValidator(t *testing.T) {
	var v Validator

	if !v.Valid() {
		t.Error("empty validator should be valid")
	}

	v.CheckField(NotBlank(""), "nom", "cannot be blank")
	v.CheckField(NotBlank("ok"), "plante", "cannot be blank")
	if v.Valid() {
		t.Error("validator with field error should be invalid")
	}
	if _, ok := v.FieldErrors["nom"]; !ok {
		t.Error("missing field error for nom")
	}
	if _, ok := v.FieldErrors["plante"]; ok {
		t.Error("unexpected field error for plante")
	}

	// First message for a key wins.
	v.AddFieldError("nom", "second message")
	if v.FieldErrors["nom"] != "cannot be blank" {
		t.Errorf("field error = %q", v.FieldErrors["nom"])
	}
}

func TestNotBlank(t *testing.T) {
	if NotBlank("   ") {
		t.Error("whitespace should not count as content")
	}
	if !NotBlank(" x ") {
		t.Error("non-blank value rejected")
	}
}

func TestMinChars(t *testing.T) {
	if !MinChars("abcdefgh", 8) || MinChars("abcdefg", 8) {
		t.Error("MinChars boundary wrong")
	}
	// Counted in runes, not bytes.
	if !MinChars("héllo", 5) {
		t.Error("MinChars should count runes")
	}
}

func TestMatchesEmail(t *testing.T) {
	if !Matches("user@example.com", EmailRX) {
		t.Error("valid email rejected")
	}
	if Matches("not-an-email", EmailRX) {
		t.Error("invalid email accepted")
	}
}

func TestPermittedValue(t *testing.T) {
	if !PermittedValue("fr", "ar", "fr") {
		t.Error("permitted value rejected")
	}
	if PermittedValue("en", "ar", "fr") {
		t.Error("unpermitted value accepted")
	}
}
