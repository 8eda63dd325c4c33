package domain

import (
	"errors"
	"reflect"
	"testing"
)

func intPtr(v int) *int { return &v }

func testLookup(id string) (*Condition, bool) {
	conds := map[string]*Condition{
		"stroke":       {ID: "stroke", TypicalOnsetAge: AgeRange{Min: 55, Max: 85}},
		"hypertension": {ID: "hypertension", TypicalOnsetAge: AgeRange{Min: 30, Max: 70}},
	}
	c, ok := conds[id]
	return c, ok
}

func TestFamilyMemberValidate(t *testing.T) {
	tests := []struct {
		name    string
		member  FamilyMember
		wantErr error
	}{
		{
			name:   "living",
			member: FamilyMember{Relationship: "mother", Alive: true, CurrentAge: intPtr(70), NominalAge: 70},
		},
		{
			name: "deceased",
			member: FamilyMember{Relationship: "father", NominalAge: 80,
				DeathInfo: &DeathInfo{AgeAtDeath: 76, Cause: "stroke"}},
		},
		{
			name: "living with death info",
			member: FamilyMember{Relationship: "mother", Alive: true, CurrentAge: intPtr(70),
				DeathInfo: &DeathInfo{AgeAtDeath: 60}},
			wantErr: ErrLivingWithDeathInfo,
		},
		{
			name:    "deceased without death info",
			member:  FamilyMember{Relationship: "father", NominalAge: 80},
			wantErr: ErrDeceasedWithoutDeathInfo,
		},
		{
			name: "death after nominal age",
			member: FamilyMember{Relationship: "father", NominalAge: 70,
				DeathInfo: &DeathInfo{AgeAtDeath: 72}},
			wantErr: ErrDeathAfterNominalAge,
		},
		{
			name: "diagnosis outside onset",
			member: FamilyMember{Relationship: "brother", Alive: true, CurrentAge: intPtr(40), NominalAge: 40,
				Conditions: []DiagnosedCondition{{ConditionID: "stroke", AgeAtDiagnosis: 38}}},
			wantErr: ErrDiagnosisOutOfRange,
		},
		{
			name: "unknown condition",
			member: FamilyMember{Relationship: "sister", Alive: true, CurrentAge: intPtr(40), NominalAge: 40,
				Conditions: []DiagnosedCondition{{ConditionID: "gout", AgeAtDiagnosis: 38}}},
			wantErr: ErrUnknownCondition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.member.Validate(testLookup)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFamilyGraphMembersOrder(t *testing.T) {
	m := func(rel string) *FamilyMember { return &FamilyMember{Relationship: rel} }
	g := &FamilyGraph{
		Mother:              m("mother"),
		Father:              m("father"),
		MaternalGrandmother: m("maternal grandmother"),
		PaternalGrandfather: m("paternal grandfather"),
		Siblings:            []*FamilyMember{m("brother")},
		Children:            []*FamilyMember{m("daughter")},
		PaternalAuntsUncles: []*FamilyMember{m("paternal aunt")},
		MaternalCousins:     []*FamilyMember{m("maternal cousin")},
	}

	var got []string
	for _, member := range g.Members() {
		got = append(got, member.Relationship)
	}
	want := []string{"mother", "father", "brother", "daughter", "maternal grandmother",
		"paternal grandfather", "paternal aunt", "maternal cousin"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Members() = %v, want %v", got, want)
	}
	if g.Size() != len(want) {
		t.Errorf("Size() = %d, want %d", g.Size(), len(want))
	}

	var nilGraph *FamilyGraph
	if nilGraph.Members() != nil {
		t.Error("nil graph should have no members")
	}
}

func TestFamilyGraphMembersWith(t *testing.T) {
	withStroke := &FamilyMember{Relationship: "father", Conditions: []DiagnosedCondition{{ConditionID: "stroke", AgeAtDiagnosis: 70}}}
	g := &FamilyGraph{
		Mother: &FamilyMember{Relationship: "mother"},
		Father: withStroke,
	}

	got := g.MembersWith("stroke")
	if len(got) != 1 || got[0] != withStroke {
		t.Errorf("MembersWith(stroke) = %v", got)
	}
	if len(g.MembersWith("hypertension")) != 0 {
		t.Error("no member carries hypertension")
	}
}
