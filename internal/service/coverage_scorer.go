package service

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/clinical-interview-sim/internal/catalog"
	"github.com/clinical-interview-sim/internal/domain"
)

// Composite score weights, in points.
const (
	essentialWeight     = 40.0
	oldcartsWeight      = 30.0
	supplementalWeight  = 20.0
	familyHistoryWeight = 10.0

	helpfulTierWeight = 0.5
)

type historyCategory struct {
	name     string
	group    domain.HistoryGroup
	keywords []string
}

// historyCategories is the bucket table. OLDCARTS comes first and in mnemonic order.
var historyCategories = []historyCategory{
	{"onset", domain.GroupOLDCARTS, []string{"when did", "start", "began", "begin", "first notice", "onset", "come on", "sudden"}},
	{"location", domain.GroupOLDCARTS, []string{"where", "location", "located", "point to", "which side"}},
	{"duration", domain.GroupOLDCARTS, []string{"how long", "duration", "lasting", "last for", "how many days", "how many hours"}},
	{"character", domain.GroupOLDCARTS, []string{"describe", "feel like", "character", "sharp", "dull", "burning", "pressure", "stabbing", "tight", "what kind"}},
	{"aggravating", domain.GroupOLDCARTS, []string{"worse", "aggravat", "trigger", "bring on", "brings on", "exertion"}},
	{"alleviating", domain.GroupOLDCARTS, []string{"better", "reliev", "alleviat", "helps", "ease the", "settle", "with rest"}},
	{"radiation", domain.GroupOLDCARTS, []string{"radiat", "spread", "move anywhere", "travel", "shoot"}},
	{"timing", domain.GroupOLDCARTS, []string{"timing", "time of day", "how often", "frequency", "come and go", "constant", "intermittent", "episode"}},
	{"severity", domain.GroupOLDCARTS, []string{"scale", "severity", "severe", "how bad", "rate the", "rate it", "out of ten", "out of 10", "intensity", "worst"}},

	{"tobacco", domain.GroupSocial, []string{"smoke", "smoking", "cigarette", "tobacco", "vape", "vaping"}},
	{"alcohol", domain.GroupSocial, []string{"alcohol", "drink", "beer", "wine", "liquor"}},
	{"recreational_drugs", domain.GroupSocial, []string{"drugs", "recreational", "marijuana", "cannabis", "cocaine", "heroin", "substance"}},
	{"occupation", domain.GroupSocial, []string{"work", "occupation", "your job", "employ"}},
	{"living_situation", domain.GroupSocial, []string{"live with", "living situation", "at home", "married", "partner"}},
	{"exercise_diet", domain.GroupSocial, []string{"exercise", "diet", "physical activity", "eating", "meals", "salt"}},
	{"sexual_history", domain.GroupSocial, []string{"sexual", "sexually", "condom"}},

	{"medical_conditions", domain.GroupPastMedical, []string{"medical conditions", "medical problems", "health problems", "diagnosed with", "chronic", "past medical", "history of"}},
	{"hospitalizations", domain.GroupPastMedical, []string{"hospital", "admitted", "admission"}},
	{"surgeries", domain.GroupPastMedical, []string{"surgery", "surgeries", "operation", "procedure"}},

	{"prescriptions", domain.GroupMedication, []string{"medication", "medicine", "prescri", "pills", "tablets", "insulin", "blood thinner"}},
	{"otc_supplements", domain.GroupMedication, []string{"over the counter", "supplement", "vitamin", "herbal", "ibuprofen", "aspirin", "painkiller"}},
	{"allergies", domain.GroupMedication, []string{"allerg", "reaction to"}},

	{"family_history", domain.GroupFamilyHistory, []string{"family", "mother", "father", "parent", "sibling", "brother", "sister", "relative", "grandm", "grandf", "aunt", "uncle", "cousin", "hereditary", "genetic", "inherit"}},
}

var scoredGroups = []domain.HistoryGroup{
	domain.GroupOLDCARTS,
	domain.GroupSocial,
	domain.GroupPastMedical,
	domain.GroupMedication,
	domain.GroupFamilyHistory,
}

// stopwords are ignored when comparing a learner question with an essential question.
var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "also": {}, "anyone": {}, "anybody": {}, "anything": {},
	"been": {}, "before": {}, "does": {}, "doing": {}, "ever": {}, "every": {}, "family": {},
	"from": {}, "have": {}, "having": {}, "into": {}, "just": {}, "like": {}, "many": {},
	"more": {}, "most": {}, "much": {}, "other": {}, "over": {}, "please": {}, "same": {},
	"some": {}, "such": {}, "tell": {}, "than": {}, "that": {}, "their": {}, "them": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {}, "those": {}, "usual": {},
	"very": {}, "were": {}, "what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"will": {}, "with": {}, "would": {}, "your": {}, "yourself": {}, "could": {}, "should": {},
	"since": {}, "being": {}, "know": {}, "think": {}, "things": {}, "noticed": {}, "recently": {},
	"time": {}, "long": {}, "often": {},
}

// CoverageScorer grades a session log against the essential questions of the
// differential and the structural history categories. It is deterministic and keeps
// no state between calls.
type CoverageScorer struct {
	questions *catalog.QuestionCatalog
	config    domain.ScoringConfig
	logger    *logrus.Logger

	categories []historyCategory
}

// NewCoverageScorer creates a scorer. Category keywords shorter than the configured
// minimum length are dropped.
func NewCoverageScorer(questions *catalog.QuestionCatalog, config domain.ScoringConfig, logger *logrus.Logger) *CoverageScorer {
	if config.MinKeywordOverlap < 1 {
		config.MinKeywordOverlap = 1
	}
	s := &CoverageScorer{questions: questions, config: config, logger: logger}
	for _, cat := range historyCategories {
		kept := historyCategory{name: cat.name, group: cat.group}
		for _, kw := range cat.keywords {
			if utf8.RuneCountInString(kw) >= config.MinKeywordLength {
				kept.keywords = append(kept.keywords, kw)
			}
		}
		s.categories = append(s.categories, kept)
	}
	return s
}

// Score builds the report for log against differential.
func (s *CoverageScorer) Score(log []domain.QuestionLogEntry, differential []string) domain.Report {
	report := domain.Report{QuestionCount: len(log)}

	normalized := make([]string, len(log))
	for i, entry := range log {
		normalized[i] = padded(normalizeText(entry.QuestionText))
	}

	covered := s.coverCategories(log, normalized)
	familyAsked, specificAsked := familyHistoryAsked(log)
	for i := range covered {
		if covered[i].Group != domain.GroupFamilyHistory {
			continue
		}
		if familyAsked {
			covered[i].Covered = true
		}
		report.FamilyHistoryAsked = report.FamilyHistoryAsked || covered[i].Covered
	}
	report.Categories = covered

	resolved := s.questions.Resolve(differential)
	essentialFrac := s.essentialCoverage(&report, resolved, normalized)

	groupPct := make(map[domain.HistoryGroup]float64, len(scoredGroups))
	for _, g := range scoredGroups {
		gc := groupCoverage(covered, g)
		report.Groups = append(report.Groups, gc)
		groupPct[g] = gc.Percent / 100
	}

	report.Components = domain.ScoreComponents{
		Essential:    round1(essentialWeight * essentialFrac),
		OLDCARTS:     round1(oldcartsWeight * groupPct[domain.GroupOLDCARTS]),
		Supplemental: round1(supplementalWeight * (groupPct[domain.GroupSocial] + groupPct[domain.GroupPastMedical] + groupPct[domain.GroupMedication]) / 3),
	}
	if report.FamilyHistoryAsked {
		report.Components.FamilyHistory = familyHistoryWeight
	}
	report.Score = round1(essentialWeight*essentialFrac +
		oldcartsWeight*groupPct[domain.GroupOLDCARTS] +
		supplementalWeight*(groupPct[domain.GroupSocial]+groupPct[domain.GroupPastMedical]+groupPct[domain.GroupMedication])/3 +
		report.Components.FamilyHistory)
	report.Grade = domain.LetterGrade(report.Score)

	s.narrate(&report, essentialFrac, specificAsked)

	s.logger.WithFields(logrus.Fields{
		"questions":       report.QuestionCount,
		"essential_total": report.EssentialTotal,
		"essential_asked": len(report.EssentialAsked),
		"score":           report.Score,
		"grade":           report.Grade,
	}).Debug("Scored session")

	return report
}

func (s *CoverageScorer) coverCategories(log []domain.QuestionLogEntry, normalized []string) []domain.CategoryCoverage {
	out := make([]domain.CategoryCoverage, 0, len(s.categories))
	for _, cat := range s.categories {
		cc := domain.CategoryCoverage{Category: cat.name, Group: cat.group}
		for i, text := range normalized {
			if containsAny(text, cat.keywords) {
				cc.Covered = true
				cc.Questions = append(cc.Questions, log[i].QuestionText)
			}
		}
		out = append(out, cc)
	}
	return out
}

// familyHistoryAsked reports whether any question was classified as a family-history
// question, and whether any of them targeted a specific condition.
func familyHistoryAsked(log []domain.QuestionLogEntry) (asked, specific bool) {
	for _, entry := range log {
		switch entry.Intent.Kind {
		case domain.IntentGeneral:
			asked = true
		case domain.IntentSpecific:
			asked = true
			specific = true
		}
	}
	return asked, specific
}

// essentialCoverage fills the essential fields of report and returns the weighted
// fraction asked. An empty question set earns full credit.
func (s *CoverageScorer) essentialCoverage(report *domain.Report, resolved []domain.ResolvedQuestion, normalized []string) float64 {
	report.EssentialTotal = len(resolved)
	report.EssentialAsked = []string{}
	report.MissedEssential = []domain.MissedQuestion{}
	if len(resolved) == 0 {
		return 1.0
	}

	learner := make([]map[string]struct{}, len(normalized))
	for i, text := range normalized {
		learner[i] = s.keywords(text)
	}

	var total, asked float64
	for _, rq := range resolved {
		weight := 1.0
		if rq.Question.Tier == domain.TierHelpful {
			weight = helpfulTierWeight
		}
		total += weight

		target := s.keywords(normalizeText(rq.Question.Text))
		if s.overlaps(target, learner) {
			asked += weight
			report.EssentialAsked = append(report.EssentialAsked, rq.Question.ID)
			continue
		}
		report.MissedEssential = append(report.MissedEssential, domain.MissedQuestion{
			ID:        rq.Question.ID,
			Text:      rq.Question.Text,
			Rationale: rq.Question.Rationale,
			Tier:      rq.Question.Tier,
			Diagnoses: rq.Diagnoses,
		})
	}
	return asked / total
}

func (s *CoverageScorer) overlaps(target map[string]struct{}, learner []map[string]struct{}) bool {
	for _, kws := range learner {
		shared := 0
		for kw := range kws {
			if _, ok := target[kw]; ok {
				shared++
			}
		}
		if shared >= s.config.MinKeywordOverlap {
			return true
		}
	}
	return false
}

// keywords returns the meaningful tokens of normalized text.
func (s *CoverageScorer) keywords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(text) {
		if utf8.RuneCountInString(tok) < s.config.MinKeywordLength {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

func groupCoverage(categories []domain.CategoryCoverage, g domain.HistoryGroup) domain.GroupCoverage {
	gc := domain.GroupCoverage{Group: g}
	for _, cc := range categories {
		if cc.Group != g {
			continue
		}
		gc.Total++
		if cc.Covered {
			gc.Covered++
		}
	}
	if gc.Total > 0 {
		gc.Percent = round1(100 * float64(gc.Covered) / float64(gc.Total))
	}
	return gc
}

func (s *CoverageScorer) narrate(report *domain.Report, essentialFrac float64, specificAsked bool) {
	report.Strengths = []string{}
	report.Improvements = []string{}

	if report.EssentialTotal > 0 {
		switch {
		case essentialFrac >= 0.8:
			report.Strengths = append(report.Strengths, "Covered most of the essential questions for the differential.")
		case essentialFrac < 0.5:
			report.Improvements = append(report.Improvements,
				fmt.Sprintf("Missed %d of %d essential questions; review them below.", len(report.MissedEssential), report.EssentialTotal))
		}
	}

	oldcarts, _ := report.Group(domain.GroupOLDCARTS)
	switch {
	case oldcarts.Covered >= 7:
		report.Strengths = append(report.Strengths, "Thorough characterization of the presenting symptom (OLDCARTS).")
	case oldcarts.Covered < 5:
		report.Improvements = append(report.Improvements,
			"Characterize the chief complaint more fully; not yet asked: "+strings.Join(uncovered(report.Categories, domain.GroupOLDCARTS), ", ")+".")
	}

	groupNames := map[domain.HistoryGroup]string{
		domain.GroupSocial:      "social history",
		domain.GroupPastMedical: "past medical history",
		domain.GroupMedication:  "medication history",
	}
	for _, g := range []domain.HistoryGroup{domain.GroupSocial, domain.GroupPastMedical, domain.GroupMedication} {
		gc, _ := report.Group(g)
		switch {
		case gc.Percent >= 67:
			report.Strengths = append(report.Strengths, fmt.Sprintf("Good coverage of %s.", groupNames[g]))
		case gc.Percent < 34:
			report.Improvements = append(report.Improvements,
				fmt.Sprintf("Explore %s further: %s.", groupNames[g], strings.Join(uncovered(report.Categories, g), ", ")))
		}
	}

	switch {
	case report.FamilyHistoryAsked && specificAsked:
		report.Strengths = append(report.Strengths, "Followed up family history with targeted questions.")
	case report.FamilyHistoryAsked:
		report.Improvements = append(report.Improvements,
			"Follow open family-history questions with questions about specific conditions.")
	default:
		report.Improvements = append(report.Improvements, "Ask about the family history.")
	}
}

func uncovered(categories []domain.CategoryCoverage, g domain.HistoryGroup) []string {
	var out []string
	for _, cc := range categories {
		if cc.Group == g && !cc.Covered {
			out = append(out, strings.ReplaceAll(cc.Category, "_", " "))
		}
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
