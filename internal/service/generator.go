package service

import (
	"github.com/sirupsen/logrus"

	"github.com/clinical-interview-sim/internal/catalog"
	"github.com/clinical-interview-sim/internal/domain"
)

// relationSpec describes how one kind of relative is placed relative to the patient.
// An empty gender means the member's gender is drawn at random.
type relationSpec struct {
	maleLabel   string
	femaleLabel string
	generation  int
	side        domain.Side
	degree      domain.Degree
	gender      domain.Gender
	offsetMin   int
	offsetMax   int
}

var (
	motherSpec = relationSpec{femaleLabel: "mother", generation: 1, side: domain.SideMaternal,
		degree: domain.FirstDegree, gender: domain.GenderFemale, offsetMin: 25, offsetMax: 35}
	fatherSpec = relationSpec{maleLabel: "father", generation: 1, side: domain.SidePaternal,
		degree: domain.FirstDegree, gender: domain.GenderMale, offsetMin: 25, offsetMax: 35}

	maternalGrandmotherSpec = relationSpec{femaleLabel: "maternal grandmother", generation: 2,
		side: domain.SideMaternal, degree: domain.SecondDegree, gender: domain.GenderFemale, offsetMin: 50, offsetMax: 65}
	maternalGrandfatherSpec = relationSpec{maleLabel: "maternal grandfather", generation: 2,
		side: domain.SideMaternal, degree: domain.SecondDegree, gender: domain.GenderMale, offsetMin: 50, offsetMax: 65}
	paternalGrandmotherSpec = relationSpec{femaleLabel: "paternal grandmother", generation: 2,
		side: domain.SidePaternal, degree: domain.SecondDegree, gender: domain.GenderFemale, offsetMin: 50, offsetMax: 65}
	paternalGrandfatherSpec = relationSpec{maleLabel: "paternal grandfather", generation: 2,
		side: domain.SidePaternal, degree: domain.SecondDegree, gender: domain.GenderMale, offsetMin: 50, offsetMax: 65}

	siblingSpec = relationSpec{maleLabel: "brother", femaleLabel: "sister", generation: 0,
		side: domain.SideBoth, degree: domain.FirstDegree, offsetMin: -5, offsetMax: 5}
	childSpec = relationSpec{maleLabel: "son", femaleLabel: "daughter", generation: -1,
		side: domain.SideBoth, degree: domain.FirstDegree, offsetMin: -35, offsetMax: -25}

	maternalAuntUncleSpec = relationSpec{maleLabel: "maternal uncle", femaleLabel: "maternal aunt", generation: 1,
		side: domain.SideMaternal, degree: domain.SecondDegree, offsetMin: 20, offsetMax: 40}
	paternalAuntUncleSpec = relationSpec{maleLabel: "paternal uncle", femaleLabel: "paternal aunt", generation: 1,
		side: domain.SidePaternal, degree: domain.SecondDegree, offsetMin: 20, offsetMax: 40}

	maternalCousinSpec = relationSpec{maleLabel: "maternal cousin", femaleLabel: "maternal cousin", generation: 0,
		side: domain.SideMaternal, degree: domain.ThirdDegree, offsetMin: -5, offsetMax: 10}
	paternalCousinSpec = relationSpec{maleLabel: "paternal cousin", femaleLabel: "paternal cousin", generation: 0,
		side: domain.SidePaternal, degree: domain.ThirdDegree, offsetMin: -5, offsetMax: 10}
)

// Collection sizes are inclusive ranges.
const (
	maxSiblings        = 3
	maxChildren        = 3
	minAuntsUncles     = 1
	maxAuntsUncles     = 3
	maxCousinsPerSide  = 4
	minParentAgeForKid = 25
)

// genericCauses are non-condition causes of death. None of them may contain a
// condition name or alias.
var genericCauses = []string{
	"a car accident",
	"pneumonia",
	"an infection",
	"complications after surgery",
	"a bad fall",
	"complications from the flu",
}

const naturalCauses = "natural causes"

// deathBand is the baseline probability of death for members whose nominal age is
// below upTo.
type deathBand struct {
	upTo        int
	probability float64
}

var baselineMortality = []deathBand{
	{upTo: 40, probability: 0.01},
	{upTo: 60, probability: 0.03},
	{upTo: 70, probability: 0.10},
	{upTo: 80, probability: 0.25},
	{upTo: 90, probability: 0.50},
	{upTo: 100, probability: 0.80},
}

// GenerateParams are the case inputs of one family graph.
type GenerateParams struct {
	PatientAge    int
	PatientGender domain.Gender
	Differential  []string
}

// FamilyGraphGenerator samples a synthetic family from the condition catalog. It holds
// no per-case state; all randomness comes from the Rand passed to Generate, so two
// calls with identically seeded sources return identical graphs.
type FamilyGraphGenerator struct {
	conditions *catalog.ConditionCatalog
	relevance  *RelevanceResolver
	config     domain.GeneratorConfig
	logger     *logrus.Logger
}

// NewFamilyGraphGenerator creates a generator.
func NewFamilyGraphGenerator(conditions *catalog.ConditionCatalog, relevance *RelevanceResolver, config domain.GeneratorConfig, logger *logrus.Logger) *FamilyGraphGenerator {
	return &FamilyGraphGenerator{
		conditions: conditions,
		relevance:  relevance,
		config:     config,
		logger:     logger,
	}
}

// Config returns the generator configuration.
func (g *FamilyGraphGenerator) Config() domain.GeneratorConfig {
	return g.config
}

// Conditions returns the catalog the generator samples from.
func (g *FamilyGraphGenerator) Conditions() *catalog.ConditionCatalog {
	return g.conditions
}

// Generate builds a family graph. Out-of-range patient ages are replaced by the
// configured default.
func (g *FamilyGraphGenerator) Generate(rng domain.Rand, params GenerateParams) *domain.FamilyGraph {
	age := g.sanitizeAge(params.PatientAge)
	relevant := g.relevance.Resolve(params.Differential)
	relevantSet := make(map[string]struct{}, len(relevant))
	for _, id := range relevant {
		relevantSet[id] = struct{}{}
	}

	b := &graphBuilder{gen: g, rng: rng, patientAge: age, relevant: relevantSet}

	graph := &domain.FamilyGraph{
		PatientAge:         age,
		PatientGender:      params.PatientGender,
		Differential:       append([]string(nil), params.Differential...),
		RelevantConditions: relevant,
	}

	graph.Mother = b.member(motherSpec)
	graph.Father = b.member(fatherSpec)
	graph.MaternalGrandmother = b.member(maternalGrandmotherSpec)
	graph.MaternalGrandfather = b.member(maternalGrandfatherSpec)
	graph.PaternalGrandmother = b.member(paternalGrandmotherSpec)
	graph.PaternalGrandfather = b.member(paternalGrandfatherSpec)

	graph.Siblings = b.members(siblingSpec, rng.IntN(maxSiblings+1))
	if age > minParentAgeForKid {
		graph.Children = b.members(childSpec, rng.IntN(maxChildren+1))
	}
	graph.MaternalAuntsUncles = b.members(maternalAuntUncleSpec, minAuntsUncles+rng.IntN(maxAuntsUncles-minAuntsUncles+1))
	graph.PaternalAuntsUncles = b.members(paternalAuntUncleSpec, minAuntsUncles+rng.IntN(maxAuntsUncles-minAuntsUncles+1))
	graph.MaternalCousins = b.members(maternalCousinSpec, rng.IntN(maxCousinsPerSide+1))
	graph.PaternalCousins = b.members(paternalCousinSpec, rng.IntN(maxCousinsPerSide+1))

	g.logger.WithFields(logrus.Fields{
		"patient_age":         age,
		"differential":        params.Differential,
		"relevant_conditions": len(relevant),
		"family_size":         graph.Size(),
	}).Debug("Generated family graph")

	return graph
}

func (g *FamilyGraphGenerator) sanitizeAge(age int) int {
	if age < 0 || age > g.config.MaxPatientAge {
		g.logger.WithFields(logrus.Fields{
			"patient_age": age,
			"default_age": g.config.DefaultPatientAge,
		}).Warn("Patient age out of range, using default")
		return g.config.DefaultPatientAge
	}
	return age
}

// AcceptanceProbability is the per-member probability that cond is sampled.
// relevant reports whether cond belongs to the differential's relevance set.
func (g *FamilyGraphGenerator) AcceptanceProbability(cond *domain.Condition, degree domain.Degree, gender domain.Gender, relevant bool) float64 {
	p := cond.Prevalence
	if relevant {
		p *= g.relevanceBoost(degree)
	}
	p *= g.inheritanceMultiplier(cond.InheritanceStrength)
	p *= g.genderMultiplier(cond.GenderBias, gender)
	if p > 1 {
		return 1
	}
	return p
}

func (g *FamilyGraphGenerator) relevanceBoost(degree domain.Degree) float64 {
	switch degree {
	case domain.FirstDegree:
		return g.config.FirstDegreeBoost
	case domain.SecondDegree:
		return g.config.SecondDegreeBoost
	default:
		return g.config.ThirdDegreeBoost
	}
}

func (g *FamilyGraphGenerator) inheritanceMultiplier(s domain.InheritanceStrength) float64 {
	switch s {
	case domain.InheritanceStrong:
		return g.config.StrongInheritance
	case domain.InheritanceWeak:
		return g.config.WeakInheritance
	default:
		return g.config.ModerateInheritance
	}
}

func (g *FamilyGraphGenerator) genderMultiplier(bias, gender domain.Gender) float64 {
	switch {
	case bias == domain.GenderUnknown:
		return 1.0
	case bias == gender:
		return g.config.GenderMatch
	default:
		return g.config.GenderMismatch
	}
}

// DeathProbability is the probability that a member of the given nominal age dies,
// given whether any of their conditions can cause death.
func (g *FamilyGraphGenerator) DeathProbability(nominalAge int, hasFatalCondition bool) float64 {
	base := 1.0
	for _, band := range baselineMortality {
		if nominalAge < band.upTo {
			base = band.probability
			break
		}
	}
	if hasFatalCondition && g.config.FatalDeathProbability > base {
		return g.config.FatalDeathProbability
	}
	return base
}

// graphBuilder carries the per-call state of one Generate invocation.
type graphBuilder struct {
	gen        *FamilyGraphGenerator
	rng        domain.Rand
	patientAge int
	relevant   map[string]struct{}
}

func (b *graphBuilder) members(spec relationSpec, n int) []*domain.FamilyMember {
	out := make([]*domain.FamilyMember, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, b.member(spec))
	}
	return out
}

func (b *graphBuilder) member(spec relationSpec) *domain.FamilyMember {
	gender := spec.gender
	if gender == domain.GenderUnknown {
		gender = domain.GenderFemale
		if b.rng.IntN(2) == 0 {
			gender = domain.GenderMale
		}
	}
	label := spec.femaleLabel
	if gender == domain.GenderMale {
		label = spec.maleLabel
	}

	age := b.sampleAge(spec)
	m := &domain.FamilyMember{
		Relationship: label,
		Generation:   spec.generation,
		Side:         spec.side,
		Degree:       spec.degree,
		Gender:       gender,
		NominalAge:   age,
	}
	m.Conditions = b.sampleConditions(m)
	b.applyMortality(m)
	return m
}

func (b *graphBuilder) sampleAge(spec relationSpec) int {
	jitter := b.gen.config.AgeJitter
	offset := spec.offsetMin + b.rng.IntN(spec.offsetMax-spec.offsetMin+1)
	age := b.patientAge + offset + b.rng.IntN(2*jitter+1) - jitter
	if age < 0 {
		return 0
	}
	return age
}

func (b *graphBuilder) sampleConditions(m *domain.FamilyMember) []domain.DiagnosedCondition {
	var out []domain.DiagnosedCondition
	for _, cond := range b.gen.conditions.All() {
		if m.NominalAge < cond.TypicalOnsetAge.Min {
			continue
		}
		_, relevant := b.relevant[cond.ID]
		p := b.gen.AcceptanceProbability(cond, m.Degree, m.Gender, relevant)
		if b.rng.Float64() >= p {
			continue
		}
		dx := m.NominalAge - b.rng.IntN(b.gen.config.DiagnosisJitter+1)
		out = append(out, domain.DiagnosedCondition{
			ConditionID:    cond.ID,
			AgeAtDiagnosis: cond.TypicalOnsetAge.Clip(dx),
		})
	}
	return out
}

func (b *graphBuilder) applyMortality(m *domain.FamilyMember) {
	var fatal []*domain.Condition
	latestDiagnosis := 0
	for _, dc := range m.Conditions {
		if dc.AgeAtDiagnosis > latestDiagnosis {
			latestDiagnosis = dc.AgeAtDiagnosis
		}
		if cond, ok := b.gen.conditions.Get(dc.ConditionID); ok && cond.CanCauseDeath {
			fatal = append(fatal, cond)
		}
	}

	if b.rng.Float64() >= b.gen.DeathProbability(m.NominalAge, len(fatal) > 0) {
		m.Alive = true
		age := m.NominalAge
		m.CurrentAge = &age
		return
	}

	ageAtDeath := m.NominalAge - b.rng.IntN(b.gen.config.DeathAgeOffset+1)
	if ageAtDeath < latestDiagnosis {
		ageAtDeath = latestDiagnosis
	}
	if ageAtDeath < 0 {
		ageAtDeath = 0
	}

	info := &domain.DeathInfo{AgeAtDeath: ageAtDeath}
	if len(fatal) > 0 && b.rng.Float64() < b.gen.config.FatalCauseProbability {
		cause := b.pickWeighted(fatal)
		info.Cause = cause.DisplayName()
		info.CauseConditionID = cause.ID
		info.DiedFromCondition = true
	} else if ageAtDeath > b.gen.config.NaturalCausesAge {
		info.Cause = naturalCauses
	} else {
		info.Cause = genericCauses[b.rng.IntN(len(genericCauses))]
	}

	m.Alive = false
	m.CurrentAge = nil
	m.DeathInfo = info
}

// pickWeighted draws one condition with probability proportional to prevalence.
func (b *graphBuilder) pickWeighted(conds []*domain.Condition) *domain.Condition {
	total := 0.0
	for _, c := range conds {
		total += c.Prevalence
	}
	if total <= 0 {
		return conds[b.rng.IntN(len(conds))]
	}
	target := b.rng.Float64() * total
	for _, c := range conds {
		target -= c.Prevalence
		if target < 0 {
			return c
		}
	}
	return conds[len(conds)-1]
}
