package schedule

import (
	"testing"
)

func TestToScheduleKey(t *testing.T) {
	cases := map[string]string{
		"Featured Homes": KeyFeaturedHomes,
		"Ready4Rehab":    KeyReady4Rehab,
		"Demolition":     KeyDemolition,
		"VIP":            KeyVIP,
	}
	for display, want := range cases {
		if got := ToScheduleKey(display); got != want {
			t.Errorf("ToScheduleKey(%q) = %q, want %q", display, got, want)
		}
	}
}

func TestToScheduleKey_IdentityFallback(t *testing.T) {
	// Unknown names pass through unchanged; the timing engine surfaces
	// them as missing-schedule errors.
	if got := ToScheduleKey("Homestead"); got != "Homestead" {
		t.Errorf("ToScheduleKey(Homestead) = %q, want identity", got)
	}
	// A record already carrying a catalog key also passes through.
	if got := ToScheduleKey(KeyFeaturedHomes); got != KeyFeaturedHomes {
		t.Errorf("ToScheduleKey(%s) = %q, want identity", KeyFeaturedHomes, got)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, name := range ProgramNames() {
		if got := ToDisplayName(ToScheduleKey(name)); got != name {
			t.Errorf("round trip of %q = %q", name, got)
		}
	}
}
