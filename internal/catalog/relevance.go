package catalog

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/clinical-interview-sim/internal/domain"
)

type relevanceFile struct {
	Diagnoses map[string][]string `yaml:"diagnoses"`
	Aliases   map[string]string   `yaml:"aliases"`
}

// RelevanceMap resolves a diagnosis name to the catalog conditions that matter for
// its family history. Lookups are case-insensitive and follow at most one alias hop.
// Unknown diagnoses resolve to an empty list.
type RelevanceMap struct {
	entries map[string][]string
	aliases *AliasResolver
}

// NewRelevanceMap validates every entry against conditions. Alias targets must be
// canonical diagnoses and an alias may not shadow a canonical name.
func NewRelevanceMap(entries map[string][]string, aliases map[string]string, conditions *ConditionCatalog) (*RelevanceMap, error) {
	m := &RelevanceMap{
		entries: make(map[string][]string, len(entries)),
		aliases: NewAliasResolver(aliases),
	}
	for name, ids := range entries {
		key := NormalizeName(name)
		if key == "" {
			return nil, fmt.Errorf("%w: relevance entry with empty diagnosis name", domain.ErrInvalidCatalog)
		}
		seen := make(map[string]struct{}, len(ids))
		list := make([]string, 0, len(ids))
		for _, id := range ids {
			if conditions != nil && !conditions.Has(id) {
				return nil, fmt.Errorf("%w: relevance entry %q names unknown condition %q",
					domain.ErrInvalidCatalog, key, id)
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			list = append(list, id)
		}
		m.entries[key] = list
	}
	for alias, target := range m.aliases.pairs() {
		if _, ok := m.entries[alias]; ok {
			return nil, fmt.Errorf("%w: alias %q shadows a canonical diagnosis", domain.ErrInvalidCatalog, alias)
		}
		if _, ok := m.entries[target]; !ok {
			return nil, fmt.Errorf("%w: alias %q points at unknown diagnosis %q",
				domain.ErrInvalidCatalog, alias, target)
		}
	}
	return m, nil
}

// ParseRelevance decodes a relevance YAML document.
func ParseRelevance(data []byte, conditions *ConditionCatalog) (*RelevanceMap, error) {
	var f relevanceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse relevance: %v", domain.ErrInvalidCatalog, err)
	}
	return NewRelevanceMap(f.Diagnoses, f.Aliases, conditions)
}

// Resolve returns the relevant condition ids for diagnosisName, in the order the
// entry lists them. The returned slice is never nil and safe to modify.
func (m *RelevanceMap) Resolve(diagnosisName string) []string {
	ids, ok := m.entries[m.aliases.Canonical(diagnosisName)]
	if !ok {
		return []string{}
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Known reports whether diagnosisName resolves to an entry.
func (m *RelevanceMap) Known(diagnosisName string) bool {
	_, ok := m.entries[m.aliases.Canonical(diagnosisName)]
	return ok
}

// ResolveAll returns the de-duplicated union of Resolve over the differential,
// preserving first-seen order.
func (m *RelevanceMap) ResolveAll(differential []string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, dx := range differential {
		for _, id := range m.Resolve(dx) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Diagnoses lists the canonical diagnosis names, sorted.
func (m *RelevanceMap) Diagnoses() []string {
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aliases exposes the resolver so other catalogs can share the same spellings.
func (m *RelevanceMap) Aliases() *AliasResolver {
	return m.aliases
}
