package i18n

import "testing"

func TestSupported(t *testing.T) {
	for _, lang := range []string{"ar", "fr"} {
		if !Supported(lang) {
			t.Errorf("Supported(%q) = false", lang)
		}
	}
	if Supported("en") {
		t.Error("Supported(en) = true")
	}
}

func TestPackFallsBackToDefault(t *testing.T) {
	if got := Pack("en"); got["login"] != Pack(DefaultLang)["login"] {
		t.Errorf("Pack(en) did not fall back to %s", DefaultLang)
	}
}

func TestTranslationTablesAligned(t *testing.T) {
	ar, fr := Pack("ar"), Pack("fr")
	for key := range ar {
		if _, ok := fr[key]; !ok {
			t.Errorf("key %q missing from fr", key)
		}
	}
	for key := range fr {
		if _, ok := ar[key]; !ok {
			t.Errorf("key %q missing from ar", key)
		}
	}

	// Keys the dashboard's connection and sensor panels rely on.
	for _, key := range []string{"esp32_ip", "light", "disconnected", "never"} {
		if _, ok := ar[key]; !ok {
			t.Errorf("ar missing %q", key)
		}
	}
}
