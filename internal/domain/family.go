package domain

import (
	"errors"
	"fmt"
)

// DiagnosedCondition records a condition a relative carries.
type DiagnosedCondition struct {
	ConditionID    string `json:"condition_id"`
	AgeAtDiagnosis int    `json:"age_at_diagnosis"`
}

// DeathInfo is set only for deceased relatives.
type DeathInfo struct {
	AgeAtDeath        int    `json:"age_at_death"`
	Cause             string `json:"cause"`
	CauseConditionID  string `json:"cause_condition_id,omitempty"`
	DiedFromCondition bool   `json:"died_from_condition"`
}

// FamilyMember is one generated relative. Members are created once at case start and
// are read-only for the rest of the session.
type FamilyMember struct {
	Relationship string `json:"relationship"`
	Generation   int    `json:"generation"`
	Side         Side   `json:"side"`
	Degree       Degree `json:"degree"`
	Gender       Gender `json:"gender"`

	// CurrentAge is nil when the member is deceased. NominalAge is the age the
	// member is, or would have been, today.
	CurrentAge *int `json:"current_age"`
	NominalAge int  `json:"nominal_age"`

	Alive      bool                 `json:"alive"`
	Conditions []DiagnosedCondition `json:"conditions"`
	DeathInfo  *DeathInfo           `json:"death_info"`
}

// HasCondition reports whether the member carries conditionID and returns the record.
func (m *FamilyMember) HasCondition(conditionID string) (DiagnosedCondition, bool) {
	for _, c := range m.Conditions {
		if c.ConditionID == conditionID {
			return c, true
		}
	}
	return DiagnosedCondition{}, false
}

var (
	ErrDeceasedWithoutDeathInfo = errors.New("deceased member has no death info")
	ErrLivingWithDeathInfo      = errors.New("living member has death info")
	ErrDeathAfterNominalAge     = errors.New("age at death exceeds nominal age")
	ErrDiagnosisOutOfRange      = errors.New("age at diagnosis outside typical onset range")
	ErrUnknownCondition         = errors.New("unknown condition")
)

// Validate checks the structural invariants of a generated member against the
// condition lookup used to generate it.
func (m *FamilyMember) Validate(lookup func(id string) (*Condition, bool)) error {
	if m.Alive {
		if m.DeathInfo != nil {
			return fmt.Errorf("%s: %w", m.Relationship, ErrLivingWithDeathInfo)
		}
		if m.CurrentAge == nil || *m.CurrentAge < 0 {
			return fmt.Errorf("%s: living member needs a non-negative current age", m.Relationship)
		}
	} else {
		if m.DeathInfo == nil {
			return fmt.Errorf("%s: %w", m.Relationship, ErrDeceasedWithoutDeathInfo)
		}
		if m.DeathInfo.AgeAtDeath > m.NominalAge {
			return fmt.Errorf("%s: %w (%d > %d)", m.Relationship, ErrDeathAfterNominalAge,
				m.DeathInfo.AgeAtDeath, m.NominalAge)
		}
		if m.CurrentAge != nil {
			return fmt.Errorf("%s: deceased member has a current age", m.Relationship)
		}
	}
	for _, dc := range m.Conditions {
		cond, ok := lookup(dc.ConditionID)
		if !ok {
			return fmt.Errorf("%s: %w: %s", m.Relationship, ErrUnknownCondition, dc.ConditionID)
		}
		if !cond.TypicalOnsetAge.Contains(dc.AgeAtDiagnosis) {
			return fmt.Errorf("%s: %w: %s at %d", m.Relationship, ErrDiagnosisOutOfRange,
				dc.ConditionID, dc.AgeAtDiagnosis)
		}
	}
	return nil
}

// FamilyGraph is the generated set of relatives for one case instance. Fixed slots hold
// the parents and grandparents; the remaining relatives live in variable-length lists.
type FamilyGraph struct {
	PatientAge    int      `json:"patient_age"`
	PatientGender Gender   `json:"patient_gender"`
	Differential  []string `json:"differential"`

	// RelevantConditions is the union of relevance-map results for Differential.
	RelevantConditions []string `json:"relevant_conditions"`

	Mother              *FamilyMember `json:"mother"`
	Father              *FamilyMember `json:"father"`
	MaternalGrandmother *FamilyMember `json:"maternal_grandmother"`
	MaternalGrandfather *FamilyMember `json:"maternal_grandfather"`
	PaternalGrandmother *FamilyMember `json:"paternal_grandmother"`
	PaternalGrandfather *FamilyMember `json:"paternal_grandfather"`

	Siblings            []*FamilyMember `json:"siblings"`
	Children            []*FamilyMember `json:"children"`
	MaternalAuntsUncles []*FamilyMember `json:"maternal_aunts_uncles"`
	PaternalAuntsUncles []*FamilyMember `json:"paternal_aunts_uncles"`
	MaternalCousins     []*FamilyMember `json:"maternal_cousins"`
	PaternalCousins     []*FamilyMember `json:"paternal_cousins"`
}

// Members returns every relative ordered by closeness: parents, siblings, children,
// grandparents, aunts and uncles, then cousins. Disclosure summaries rely on this order.
func (g *FamilyGraph) Members() []*FamilyMember {
	if g == nil {
		return nil
	}
	out := make([]*FamilyMember, 0, 6+len(g.Siblings)+len(g.Children)+
		len(g.MaternalAuntsUncles)+len(g.PaternalAuntsUncles)+
		len(g.MaternalCousins)+len(g.PaternalCousins))

	appendSlot := func(m *FamilyMember) {
		if m != nil {
			out = append(out, m)
		}
	}
	appendSlot(g.Mother)
	appendSlot(g.Father)
	out = append(out, g.Siblings...)
	out = append(out, g.Children...)
	appendSlot(g.MaternalGrandmother)
	appendSlot(g.MaternalGrandfather)
	appendSlot(g.PaternalGrandmother)
	appendSlot(g.PaternalGrandfather)
	out = append(out, g.MaternalAuntsUncles...)
	out = append(out, g.PaternalAuntsUncles...)
	out = append(out, g.MaternalCousins...)
	out = append(out, g.PaternalCousins...)
	return out
}

// MembersWith returns the members carrying conditionID, in Members order.
func (g *FamilyGraph) MembersWith(conditionID string) []*FamilyMember {
	var out []*FamilyMember
	for _, m := range g.Members() {
		if _, ok := m.HasCondition(conditionID); ok {
			out = append(out, m)
		}
	}
	return out
}

// Size returns the number of generated relatives.
func (g *FamilyGraph) Size() int {
	return len(g.Members())
}

// Validate checks every member's invariants.
func (g *FamilyGraph) Validate(lookup func(id string) (*Condition, bool)) error {
	for _, m := range g.Members() {
		if err := m.Validate(lookup); err != nil {
			return fmt.Errorf("family graph validation: %w", err)
		}
	}
	return nil
}
