package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/clinical-interview-sim/internal/domain"
)

func TestGenerate_Invariants(t *testing.T) {
	core := newTestCore(t)

	for seed := uint64(1); seed <= 500; seed++ {
		age := int(seed % 90)
		graph := core.generator.Generate(NewRand(seed), GenerateParams{
			PatientAge:    age,
			PatientGender: domain.GenderFemale,
			Differential:  []string{"ACS", "breast mass"},
		})

		require.NoError(t, graph.Validate(core.lookup), "seed %d", seed)

		for _, m := range graph.Members() {
			assert.GreaterOrEqual(t, m.NominalAge, 0)
			if m.Alive {
				require.NotNil(t, m.CurrentAge)
				assert.Nil(t, m.DeathInfo)
				continue
			}
			require.NotNil(t, m.DeathInfo, "seed %d %s", seed, m.Relationship)
			assert.Nil(t, m.CurrentAge)
			assert.LessOrEqual(t, m.DeathInfo.AgeAtDeath, m.NominalAge)
			assert.NotEmpty(t, m.DeathInfo.Cause)
			for _, dc := range m.Conditions {
				assert.LessOrEqual(t, dc.AgeAtDiagnosis, m.DeathInfo.AgeAtDeath,
					"%s diagnosed after death", m.Relationship)
			}
			if m.DeathInfo.DiedFromCondition {
				_, has := m.HasCondition(m.DeathInfo.CauseConditionID)
				assert.True(t, has, "died from a condition the member does not carry")
				cond, ok := core.lookup(m.DeathInfo.CauseConditionID)
				require.True(t, ok)
				assert.True(t, cond.CanCauseDeath)
			}
		}
	}
}

func TestGenerate_DeterministicForSeed(t *testing.T) {
	core := newTestCore(t)
	params := GenerateParams{PatientAge: 50, PatientGender: domain.GenderMale, Differential: []string{"ACS"}}

	a := core.generator.Generate(NewRand(42), params)
	b := core.generator.Generate(NewRand(42), params)
	c := core.generator.Generate(NewRand(43), params)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGenerate_CollectionSizes(t *testing.T) {
	core := newTestCore(t)

	for seed := uint64(1); seed <= 200; seed++ {
		g := core.generator.Generate(NewRand(seed), GenerateParams{PatientAge: 50})
		assert.LessOrEqual(t, len(g.Siblings), maxSiblings)
		assert.LessOrEqual(t, len(g.Children), maxChildren)
		assert.GreaterOrEqual(t, len(g.MaternalAuntsUncles), minAuntsUncles)
		assert.LessOrEqual(t, len(g.MaternalAuntsUncles), maxAuntsUncles)
		assert.GreaterOrEqual(t, len(g.PaternalAuntsUncles), minAuntsUncles)
		assert.LessOrEqual(t, len(g.PaternalCousins), maxCousinsPerSide)
		assert.Equal(t, "mother", g.Mother.Relationship)
		assert.Equal(t, domain.GenderMale, g.Father.Gender)
		assert.Equal(t, domain.SecondDegree, g.PaternalGrandfather.Degree)
	}
}

func TestGenerate_NoChildrenForYoungPatient(t *testing.T) {
	core := newTestCore(t)
	for seed := uint64(1); seed <= 100; seed++ {
		g := core.generator.Generate(NewRand(seed), GenerateParams{PatientAge: 25})
		assert.Empty(t, g.Children)
	}
}

func TestGenerate_AgeOffsets(t *testing.T) {
	core := newTestCore(t)
	jitter := domain.DefaultGeneratorConfig().AgeJitter

	for seed := uint64(1); seed <= 200; seed++ {
		g := core.generator.Generate(NewRand(seed), GenerateParams{PatientAge: 40})
		assert.GreaterOrEqual(t, g.Mother.NominalAge, 40+25-jitter)
		assert.LessOrEqual(t, g.Mother.NominalAge, 40+35+jitter)
		assert.GreaterOrEqual(t, g.MaternalGrandmother.NominalAge, 40+50-jitter)
		assert.LessOrEqual(t, g.MaternalGrandmother.NominalAge, 40+65+jitter)
		for _, sib := range g.Siblings {
			assert.InDelta(t, 40, sib.NominalAge, float64(5+jitter))
		}
		for _, child := range g.Children {
			assert.LessOrEqual(t, child.NominalAge, 40-25+jitter)
		}
	}
}

func TestGenerate_InvalidPatientAgeUsesDefault(t *testing.T) {
	core := newTestCore(t)

	for _, age := range []int{-4, 500} {
		g := core.generator.Generate(NewRand(1), GenerateParams{PatientAge: age})
		assert.Equal(t, domain.DefaultGeneratorConfig().DefaultPatientAge, g.PatientAge)
	}
}

func TestGenerate_UnknownDifferentialFallsBackToBaseRates(t *testing.T) {
	core := newTestCore(t)

	g := core.generator.Generate(NewRand(7), GenerateParams{PatientAge: 50, Differential: []string{"spontaneous levitation"}})
	assert.Empty(t, g.RelevantConditions)
	require.NoError(t, g.Validate(core.lookup))
	assert.Equal(t, int64(1), core.resolver.Stats().UnknownDiagnoses)
}

func TestAcceptanceProbability(t *testing.T) {
	core := newTestCore(t)
	cad, _ := core.lookup("coronary_artery_disease")
	breast, _ := core.lookup("breast_cancer")
	hf, _ := core.lookup("heart_failure")

	tests := []struct {
		name     string
		cond     *domain.Condition
		degree   domain.Degree
		gender   domain.Gender
		relevant bool
		want     float64
	}{
		{"relevant first degree matching gender", cad, domain.FirstDegree, domain.GenderMale, true, 0.06 * 4 * 1.0 * 1.5},
		{"relevant second degree mismatched gender", cad, domain.SecondDegree, domain.GenderFemale, true, 0.06 * 2 * 1.0 * 0.3},
		{"not relevant", cad, domain.FirstDegree, domain.GenderMale, false, 0.06 * 1.5},
		{"third degree gets no boost", cad, domain.ThirdDegree, domain.GenderMale, true, 0.06 * 1.5},
		{"strong inheritance", breast, domain.FirstDegree, domain.GenderFemale, true, 0.06 * 4 * 1.5 * 1.5},
		{"weak inheritance without bias", hf, domain.FirstDegree, domain.GenderMale, false, 0.02 * 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.generator.AcceptanceProbability(tt.cond, tt.degree, tt.gender, tt.relevant)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDeathProbability(t *testing.T) {
	core := newTestCore(t)

	assert.InDelta(t, 0.01, core.generator.DeathProbability(30, false), 1e-9)
	assert.InDelta(t, 0.40, core.generator.DeathProbability(30, true), 1e-9)
	assert.InDelta(t, 0.25, core.generator.DeathProbability(75, false), 1e-9)
	assert.InDelta(t, 0.50, core.generator.DeathProbability(85, true), 1e-9, "baseline wins when higher")
	assert.InDelta(t, 1.0, core.generator.DeathProbability(104, false), 1e-9)

	prev := 0.0
	for age := 0; age <= 110; age += 5 {
		p := core.generator.DeathProbability(age, false)
		assert.GreaterOrEqual(t, p, prev, "baseline mortality is monotonic in age")
		prev = p
	}
}

// countMothersWith returns how many of n generated mothers carry conditionID.
func countMothersWith(core *testCore, conditionID string, differential []string, n int) int {
	k := 0
	for seed := uint64(0); seed < uint64(n); seed++ {
		g := core.generator.Generate(NewRand(seed+1000), GenerateParams{
			PatientAge:    45,
			PatientGender: domain.GenderFemale,
			Differential:  differential,
		})
		if _, ok := g.Mother.HasCondition(conditionID); ok {
			k++
		}
	}
	return k
}

func TestGenerate_RelevanceBoostIsSignificant(t *testing.T) {
	core := newTestCore(t)
	const n = 1000

	breast, ok := core.lookup("breast_cancer")
	require.True(t, ok)
	require.Equal(t, domain.InheritanceStrong, breast.InheritanceStrength)
	require.Equal(t, domain.GenderFemale, breast.GenderBias)

	boosted := countMothersWith(core, "breast_cancer", []string{"breast mass"}, n)
	control := countMothersWith(core, "breast_cancer", []string{"migraine"}, n)

	// Under the null hypothesis mothers carry the condition at the base prevalence.
	null := distuv.Binomial{N: n, P: breast.Prevalence}
	pValue := 1 - null.CDF(float64(boosted-1))
	assert.Less(t, pValue, 1e-6, "boosted frequency %d/%d not significant", boosted, n)

	expected := breast.Prevalence * 4 * 1.5 * 1.5
	observed := float64(boosted) / n
	assert.InDelta(t, expected, observed, 0.06, "observed %.3f, expected %.3f", observed, expected)

	assert.Greater(t, boosted, 2*control, "relevance boost should dominate the unboosted rate")
}
