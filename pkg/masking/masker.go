package masking

// Masker is the interface for code-based maskers that need structural awareness
// beyond regex pattern matching. Code-based maskers can parse YAML/JSON and
// apply context-sensitive masking (e.g., mask K8s Secrets returned by a tool
// call but leave ConfigMaps untouched) — content a flat regex group can't
// safely reach into without either over- or under-masking.
type Masker interface {
	// Name returns the unique identifier for this masker, used as the key
	// under which Service.registerMasker stores it.
	Name() string

	// AppliesTo performs a lightweight check on whether this masker
	// should process the data. Should be fast (string contains, not parsing).
	AppliesTo(data string) bool

	// Mask applies masking logic and returns the masked result.
	// Must be defensive: return original data on parse/processing errors.
	Mask(data string) string
}
