package providers

// Source is a read-only view over a collection of providers. *Catalog
// implements it; HTTP handlers and choosers that only need to read provider
// info accept a Source instead of a concrete *Catalog.
type Source interface {
	Get(name string) (*Info, bool)
	List() []string
	All() []Info
	FindByType(types []Type) []Info
}

var _ Source = (*Catalog)(nil)

// TypesFromStrings converts raw identifiers (config, JSON bodies) to Types,
// dropping empty entries.
func TypesFromStrings(raw []string) []Type {
	out := make([]Type, 0, len(raw))
	for _, s := range raw {
		if s == "" {
			continue
		}
		out = append(out, Type(s))
	}
	return out
}
