// Package domain contains the core entities of the family-history interview simulator:
// the health conditions a virtual family may carry, the generated family graph, the
// intents a learner question resolves to, and the coverage report produced at case end.
//
// Everything in this package is plain data. Behaviour lives in internal/service and
// static content lives in internal/catalog.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// InheritanceStrength is a qualitative weight modelling how heritable a condition is.
type InheritanceStrength string

const (
	InheritanceWeak     InheritanceStrength = "weak"
	InheritanceModerate InheritanceStrength = "moderate"
	InheritanceStrong   InheritanceStrength = "strong"
)

// IsValid reports whether the strength is one of the known values.
func (s InheritanceStrength) IsValid() bool {
	switch s {
	case InheritanceWeak, InheritanceModerate, InheritanceStrong:
		return true
	default:
		return false
	}
}

func (s InheritanceStrength) String() string {
	return string(s)
}

// Gender of a family member. The empty value is used for "no bias" on a condition.
type Gender string

const (
	GenderMale    Gender = "M"
	GenderFemale  Gender = "F"
	GenderUnknown Gender = ""
)

// IsValid reports whether g is M, F or unset.
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderUnknown:
		return true
	default:
		return false
	}
}

// ParseGender accepts the spellings a case-authoring system tends to emit
// ("m", "male", "F", "woman", ...). Anything else maps to GenderUnknown.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male", "man", "boy":
		return GenderMale
	case "f", "female", "woman", "girl":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// Pronoun returns the subject pronoun used in patient replies.
func (g Gender) Pronoun() string {
	switch g {
	case GenderMale:
		return "he"
	case GenderFemale:
		return "she"
	default:
		return "they"
	}
}

// Side of the family a relative belongs to, relative to the patient.
type Side string

const (
	SideMaternal Side = "maternal"
	SidePaternal Side = "paternal"
	SideBoth     Side = "both"
)

// Degree of relationship to the patient. Relevance boosts are keyed by degree.
type Degree int

const (
	FirstDegree  Degree = 1
	SecondDegree Degree = 2
	ThirdDegree  Degree = 3
)

// AgeRange is an inclusive [Min, Max] range in years.
type AgeRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Contains reports whether age lies inside the range.
func (r AgeRange) Contains(age int) bool {
	return age >= r.Min && age <= r.Max
}

// Clip clamps age into the range.
func (r AgeRange) Clip(age int) int {
	if age < r.Min {
		return r.Min
	}
	if age > r.Max {
		return r.Max
	}
	return age
}

// Condition is an immutable catalog entry with the epidemiological parameters the
// generator samples from and the aliases the query classifier matches against.
type Condition struct {
	ID                  string              `json:"id" yaml:"id"`
	Name                string              `json:"name" yaml:"name"`
	Prevalence          float64             `json:"prevalence" yaml:"prevalence"`
	InheritanceStrength InheritanceStrength `json:"inheritance_strength" yaml:"inheritance"`
	TypicalOnsetAge     AgeRange            `json:"typical_onset_age" yaml:"onset"`
	GenderBias          Gender              `json:"gender_bias,omitempty" yaml:"gender_bias"`
	CanCauseDeath       bool                `json:"can_cause_death" yaml:"can_cause_death"`
	Aliases             []string            `json:"aliases" yaml:"aliases"`
}

var (
	ErrInvalidPrevalence  = errors.New("prevalence must be within [0, 1]")
	ErrInvalidInheritance = errors.New("invalid inheritance strength")
	ErrInvalidGender      = errors.New("invalid gender bias")
	ErrInvalidOnsetRange  = errors.New("invalid onset age range")
)

// DisplayName returns the lay name used in patient replies.
func (c *Condition) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return strings.ReplaceAll(c.ID, "_", " ")
}

// MatchTerms returns every lower-cased phrase that identifies the condition in free
// text: the display name, the id with underscores spaced out, and all aliases.
func (c *Condition) MatchTerms() []string {
	seen := make(map[string]struct{}, len(c.Aliases)+2)
	terms := make([]string, 0, len(c.Aliases)+2)
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		terms = append(terms, s)
	}
	add(c.DisplayName())
	add(strings.ReplaceAll(c.ID, "_", " "))
	for _, a := range c.Aliases {
		add(a)
	}
	return terms
}

// Validate checks the catalog entry before it is accepted at load time.
func (c *Condition) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("condition validation: %w", errors.New("id is required"))
	}
	if c.Prevalence < 0 || c.Prevalence > 1 {
		return fmt.Errorf("condition %s: %w", c.ID, ErrInvalidPrevalence)
	}
	if !c.InheritanceStrength.IsValid() {
		return fmt.Errorf("condition %s: %w: %q", c.ID, ErrInvalidInheritance, c.InheritanceStrength)
	}
	if !c.GenderBias.IsValid() {
		return fmt.Errorf("condition %s: %w: %q", c.ID, ErrInvalidGender, c.GenderBias)
	}
	if c.TypicalOnsetAge.Min < 0 || c.TypicalOnsetAge.Min > c.TypicalOnsetAge.Max {
		return fmt.Errorf("condition %s: %w: %d-%d", c.ID, ErrInvalidOnsetRange,
			c.TypicalOnsetAge.Min, c.TypicalOnsetAge.Max)
	}
	return nil
}
