package models

import "time"

// DefaultCompanyID is the registry identifier used when no company context is
// available.
const DefaultCompanyID = "default"

// CompanyEntry holds the display metadata for one company in the registry.
type CompanyEntry struct {
	DisplayName string `json:"display_name"`
	SourceFile  string `json:"source_file"`
	LogoRef     string `json:"logo_ref,omitempty"`
}

// CompanyRegistry maps company identifiers to display metadata. It is built
// once per session from the hosted store and cached locally; a minimal
// registry is synthesized when the remote source is unreachable.
type CompanyRegistry struct {
	Companies   map[string]CompanyEntry `json:"companies"`
	DefaultID   string                  `json:"default_id"`
	LastUpdated time.Time               `json:"last_updated,omitempty"`
}

// Entry returns the registry entry for id, falling back to the default entry
// when id is unknown. The second return reports whether id itself was found.
func (r *CompanyRegistry) Entry(id string) (CompanyEntry, bool) {
	if e, ok := r.Companies[id]; ok {
		return e, true
	}
	return r.Companies[r.DefaultID], false
}
