package providers

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
)

//go:embed catalog.json
var bundledCatalog []byte

// Catalog manages the providers a chooser can offer, keyed by name.
// A Catalog is built at startup and read concurrently afterwards; Register
// must not race with readers.
type Catalog struct {
	providers map[string]Info
}

// NewCatalog creates a catalog holding infos.
func NewCatalog(infos ...Info) *Catalog {
	c := &Catalog{providers: make(map[string]Info, len(infos))}
	for _, info := range infos {
		c.Register(info)
	}
	return c
}

// DefaultCatalog returns the catalog shipped with the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(bundledCatalog)
}

// ParseCatalog decodes a JSON array of Info into a Catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var infos []Info
	if err := json.Unmarshal(data, &infos); err != nil {
		return nil, fmt.Errorf("parsing provider catalog: %w", err)
	}
	for i, info := range infos {
		if info.Name == "" || info.Component == "" {
			return nil, fmt.Errorf("provider catalog entry %d: name and component are required", i)
		}
	}
	return NewCatalog(infos...), nil
}

// Register adds or replaces a provider in the catalog.
func (c *Catalog) Register(info Info) {
	c.providers[info.Name] = *info.Clone()
}

// Get returns a copy of the named provider and whether it was found.
func (c *Catalog) Get(name string) (*Info, bool) {
	info, ok := c.providers[name]
	if !ok {
		return nil, false
	}
	return info.Clone(), true
}

// List returns the sorted names of all providers.
func (c *Catalog) List() []string {
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns copies of every provider, sorted by name.
func (c *Catalog) All() []Info {
	out := make([]Info, 0, len(c.providers))
	for _, name := range c.List() {
		info := c.providers[name]
		out = append(out, *info.Clone())
	}
	return out
}

// FindByType returns the providers that supply at least one of types,
// sorted by name.
func (c *Catalog) FindByType(types []Type) []Info {
	var out []Info
	for _, info := range c.All() {
		if info.Supports(types) {
			out = append(out, info)
		}
	}
	return out
}

// Len returns the number of providers.
func (c *Catalog) Len() int {
	return len(c.providers)
}
