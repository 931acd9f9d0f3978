package schedule

// Schedule keys for the four disposition programs.
const (
	KeyFeaturedHomes = "FeaturedHomes"
	KeyReady4Rehab   = "Ready4Rehab"
	KeyDemolition    = "Demolition"
	KeyVIP           = "VIP"
)

// displayToKey maps the display names used in property records to catalog
// keys. Only "Featured Homes" actually differs; the rest map to themselves.
var displayToKey = map[string]string{
	"Featured Homes": KeyFeaturedHomes,
	"Ready4Rehab":    KeyReady4Rehab,
	"Demolition":     KeyDemolition,
	"VIP":            KeyVIP,
}

var keyToDisplay = func() map[string]string {
	m := make(map[string]string, len(displayToKey))
	for d, k := range displayToKey {
		m[k] = d
	}
	return m
}()

// ToScheduleKey converts a program display name to its catalog key.
// Unknown input is returned unchanged, so a record that already carries a
// catalog key passes through. The permissive fallback means a misspelled
// program name surfaces later as a missing-schedule error, not here.
func ToScheduleKey(displayName string) string {
	if key, ok := displayToKey[displayName]; ok {
		return key
	}
	return displayName
}

// ToDisplayName converts a catalog key to its display name. Unknown input
// is returned unchanged.
func ToDisplayName(key string) string {
	if d, ok := keyToDisplay[key]; ok {
		return d
	}
	return key
}

// ProgramKeys returns the catalog keys of all known programs.
func ProgramKeys() []string {
	return []string{KeyFeaturedHomes, KeyReady4Rehab, KeyDemolition, KeyVIP}
}

// ProgramNames returns the display names of all known programs.
func ProgramNames() []string {
	return []string{"Featured Homes", "Ready4Rehab", "Demolition", "VIP"}
}
