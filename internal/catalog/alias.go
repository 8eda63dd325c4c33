package catalog

import "strings"

// NormalizeName folds a diagnosis name into its lookup key: lower-cased, trimmed,
// with internal whitespace collapsed to single spaces.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// AliasResolver maps alternative diagnosis spellings to canonical names. Resolution is
// a single hop: an alias always names a canonical entry, never another alias.
type AliasResolver struct {
	aliases map[string]string
}

// NewAliasResolver normalizes both sides of every alias pair.
func NewAliasResolver(aliases map[string]string) *AliasResolver {
	r := &AliasResolver{aliases: make(map[string]string, len(aliases))}
	for alias, canonical := range aliases {
		r.aliases[NormalizeName(alias)] = NormalizeName(canonical)
	}
	return r
}

// Canonical returns the canonical key for name. Names that are not aliases are
// returned normalized but otherwise unchanged.
func (r *AliasResolver) Canonical(name string) string {
	key := NormalizeName(name)
	if r == nil {
		return key
	}
	if target, ok := r.aliases[key]; ok {
		return target
	}
	return key
}

// IsAlias reports whether name is a registered alias.
func (r *AliasResolver) IsAlias(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.aliases[NormalizeName(name)]
	return ok
}

// Len returns the number of aliases.
func (r *AliasResolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.aliases)
}

func (r *AliasResolver) pairs() map[string]string {
	if r == nil {
		return nil
	}
	return r.aliases
}
