// Package calibration generates cohorts of family graphs and checks that the
// observed condition frequencies among first-degree relatives match the configured
// relevance boosts.
package calibration

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/clinical-interview-sim/internal/domain"
	"github.com/clinical-interview-sim/internal/service"
)

// consistencyAlpha is the two-sided level below which an observed frequency is
// reported as inconsistent with the configured multipliers.
const consistencyAlpha = 0.001

// Summary describes a numeric sample.
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ConditionResult is the calibration of one relevant condition.
type ConditionResult struct {
	ConditionID string  `json:"condition_id"`
	Prevalence  float64 `json:"prevalence"`

	// Eligible counts first-degree relatives old enough for the condition.
	Eligible int `json:"eligible"`
	Affected int `json:"affected"`

	ObservedFrequency float64 `json:"observed_frequency"`
	ExpectedFrequency float64 `json:"expected_frequency"`
	BaselineFrequency float64 `json:"baseline_frequency"`

	// ExpectedMultiplier is ExpectedFrequency over BaselineFrequency; Lift is the
	// observed counterpart.
	ExpectedMultiplier float64 `json:"expected_multiplier"`
	Lift               float64 `json:"lift"`

	// PValue is the one-sided probability of at least Affected cases if the
	// condition were not boosted.
	PValue     float64 `json:"p_value"`
	Consistent bool    `json:"consistent"`
}

// Report is the cohort calibration.
type Report struct {
	Graphs       int                `json:"graphs"`
	Seed         uint64             `json:"seed"`
	Differential []string           `json:"differential"`
	FamilySize   Summary            `json:"family_size"`
	MemberAge    Summary            `json:"member_age"`
	DeceasedRate float64            `json:"deceased_rate"`
	Conditions   []*ConditionResult `json:"conditions"`
}

// Run generates n graphs from consecutive seeds starting at seed.
func Run(gen *service.FamilyGraphGenerator, params service.GenerateParams, n int, seed uint64) (*Report, error) {
	if n <= 0 {
		return nil, fmt.Errorf("calibration needs at least one graph, got %d", n)
	}

	report := &Report{Graphs: n, Seed: seed, Differential: params.Differential}
	results := make(map[string]*ConditionResult)
	expected := make(map[string]float64)
	baseline := make(map[string]float64)

	var sizes, ages []float64
	var members, deceased int

	for i := 0; i < n; i++ {
		graph := gen.Generate(service.NewRand(seed+uint64(i)), params)
		if i == 0 {
			for _, id := range graph.RelevantConditions {
				cond, ok := gen.Conditions().Get(id)
				if !ok {
					continue
				}
				results[id] = &ConditionResult{ConditionID: id, Prevalence: cond.Prevalence}
			}
		}

		all := graph.Members()
		sizes = append(sizes, float64(len(all)))
		for _, m := range all {
			members++
			ages = append(ages, float64(m.NominalAge))
			if !m.Alive {
				deceased++
			}
			if m.Degree != domain.FirstDegree {
				continue
			}
			for id, res := range results {
				cond, _ := gen.Conditions().Get(id)
				if m.NominalAge < cond.TypicalOnsetAge.Min {
					continue
				}
				res.Eligible++
				expected[id] += gen.AcceptanceProbability(cond, m.Degree, m.Gender, true)
				baseline[id] += gen.AcceptanceProbability(cond, m.Degree, m.Gender, false)
				if _, ok := m.HasCondition(id); ok {
					res.Affected++
				}
			}
		}
	}

	var err error
	if report.FamilySize, err = summarize(sizes); err != nil {
		return nil, fmt.Errorf("family size summary: %w", err)
	}
	if report.MemberAge, err = summarize(ages); err != nil {
		return nil, fmt.Errorf("member age summary: %w", err)
	}
	if members > 0 {
		report.DeceasedRate = float64(deceased) / float64(members)
	}

	for id, res := range results {
		if res.Eligible > 0 {
			res.ObservedFrequency = float64(res.Affected) / float64(res.Eligible)
			res.ExpectedFrequency = expected[id] / float64(res.Eligible)
			res.BaselineFrequency = baseline[id] / float64(res.Eligible)
		}
		if res.BaselineFrequency > 0 {
			res.ExpectedMultiplier = res.ExpectedFrequency / res.BaselineFrequency
			res.Lift = res.ObservedFrequency / res.BaselineFrequency
		}
		res.PValue = upperTail(res.Eligible, res.Affected, res.BaselineFrequency)
		res.Consistent = twoSided(res.Eligible, res.Affected, res.ExpectedFrequency) >= consistencyAlpha
		report.Conditions = append(report.Conditions, res)
	}
	sort.Slice(report.Conditions, func(i, j int) bool {
		return report.Conditions[i].ConditionID < report.Conditions[j].ConditionID
	})

	return report, nil
}

func summarize(data []float64) (Summary, error) {
	var s Summary
	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}
	if s.P25, err = stats.Percentile(data, 25); err != nil {
		return s, err
	}
	if s.P75, err = stats.Percentile(data, 75); err != nil {
		return s, err
	}
	if s.Min, err = stats.Min(data); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	return s, nil
}

// upperTail returns P(X >= k) for X ~ Binomial(n, p).
func upperTail(n, k int, p float64) float64 {
	if k <= 0 || n == 0 {
		return 1
	}
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return 1
	}
	b := distuv.Binomial{N: float64(n), P: p}
	return 1 - b.CDF(float64(k-1))
}

// twoSided doubles the smaller tail, capped at one.
func twoSided(n, k int, p float64) float64 {
	if n == 0 || p <= 0 || p >= 1 {
		return 1
	}
	b := distuv.Binomial{N: float64(n), P: p}
	lower := b.CDF(float64(k))
	upper := upperTail(n, k, p)
	return math.Min(1, 2*math.Min(lower, upper))
}
