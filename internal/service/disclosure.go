package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clinical-interview-sim/internal/catalog"
	"github.com/clinical-interview-sim/internal/domain"
)

// maxSummarized is how many relatives a multi-member reply names.
const maxSummarized = 3

// generalReplies answer open family-history questions. They must never contain a
// condition name or alias.
var generalReplies = []string{
	"Well, a few people in my family have had health problems over the years. Nothing jumps out at me right now.",
	"I think most of my relatives were fairly healthy, though a couple of them had their issues as they got older.",
	"Hmm, there's the usual stuff, I suppose. Was there something in particular you wanted to know about?",
	"My family has had its share of medical problems, but I'm not sure what would be important to mention.",
	"Nobody talks about it much in my family, honestly. You'd have to ask me about something specific.",
}

const negativeReply = "No one in my family has had %s."

// Single-member templates. Arguments: relationship, condition, diagnosis age, pronoun,
// then current age or age at death and cause.
var (
	livingTemplates = []string{
		"My %[1]s has %[2]s. %[4]s was diagnosed at %[3]d and is %[5]d now.",
		"Yes, my %[1]s was diagnosed with %[2]s at %[3]d. %[4]s is %[5]d and still living.",
		"My %[1]s was told at %[3]d that it was %[2]s. %[4]s is %[5]d now and doing alright.",
	}
	diedFromTemplates = []string{
		"My %[1]s had %[2]s, diagnosed at %[3]d. %[4]s passed away from it at %[5]d.",
		"Yes, my %[1]s was diagnosed with %[2]s at %[3]d and died of it at %[5]d.",
	}
	diedOtherTemplates = []string{
		"My %[1]s was diagnosed with %[2]s at %[3]d. %[4]s died at %[5]d from %[6]s.",
		"My %[1]s had %[2]s from the age of %[3]d. %[4]s passed away at %[5]d, from %[6]s.",
	}
	multiOpeners = []string{
		"A few people in my family have had %s: ",
		"Yes, %s runs in my family: ",
	}
)

const moreExistSuffix = " There might be others."

// DisclosureEngine answers learner questions from a session's family graph, revealing
// specific facts only to targeted questions.
type DisclosureEngine struct {
	classifier *QueryClassifier
	conditions *catalog.ConditionCatalog
	clock      domain.Clock
	logger     *logrus.Logger
}

// NewDisclosureEngine creates an engine. A nil clock uses time.Now.
func NewDisclosureEngine(classifier *QueryClassifier, conditions *catalog.ConditionCatalog, clock domain.Clock, logger *logrus.Logger) *DisclosureEngine {
	if clock == nil {
		clock = time.Now
	}
	return &DisclosureEngine{
		classifier: classifier,
		conditions: conditions,
		clock:      clock,
		logger:     logger,
	}
}

// Ask classifies question, records it on the session and returns the patient's reply.
// It never fails: unrecognized input returns a NoMatch result for the caller to route
// elsewhere.
func (e *DisclosureEngine) Ask(s *Session, question string) domain.DisclosureResult {
	intent := e.classifier.Classify(question)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Record(domain.QuestionLogEntry{
		QuestionText: question,
		Timestamp:    e.clock(),
		Intent:       intent,
	})

	var result domain.DisclosureResult
	switch intent.Kind {
	case domain.IntentGeneral:
		result = e.general(s)
	case domain.IntentSpecific:
		result = e.specific(s, intent.ConditionID)
	default:
		result = domain.DisclosureResult{NoMatch: true}
	}
	result.Intent = intent
	result.Stage = s.state.Stage()

	e.logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"intent":     intent.String(),
		"stage":      result.Stage,
		"facts":      len(result.Facts),
	}).Debug("Answered question")

	return result
}

func (e *DisclosureEngine) general(s *Session) domain.DisclosureResult {
	return domain.DisclosureResult{
		Text:           generalReplies[s.rng.IntN(len(generalReplies))],
		Vague:          true,
		PromptSpecific: true,
	}
}

func (e *DisclosureEngine) specific(s *Session, conditionID string) domain.DisclosureResult {
	name := strings.ReplaceAll(conditionID, "_", " ")
	if cond, ok := e.conditions.Get(conditionID); ok {
		name = cond.DisplayName()
	}

	result := domain.DisclosureResult{
		MatchedConditionID: conditionID,
		Relevant:           containsString(s.graph.RelevantConditions, conditionID),
	}

	members := s.graph.MembersWith(conditionID)
	for _, m := range members {
		result.Facts = append(result.Facts, factFor(m, conditionID))
	}

	switch len(members) {
	case 0:
		result.Text = fmt.Sprintf(negativeReply, name)
	case 1:
		result.Text = singleReply(s.rng, result.Facts[0], name)
	default:
		result.Text = multiReply(s.rng, result.Facts, name)
		result.MoreExist = len(members) > maxSummarized
	}
	return result
}

func factFor(m *domain.FamilyMember, conditionID string) domain.DisclosedFact {
	dc, _ := m.HasCondition(conditionID)
	f := domain.DisclosedFact{
		Relationship:   m.Relationship,
		Gender:         m.Gender,
		AgeAtDiagnosis: dc.AgeAtDiagnosis,
		Alive:          m.Alive,
	}
	if m.Alive && m.CurrentAge != nil {
		age := *m.CurrentAge
		f.CurrentAge = &age
	}
	if m.DeathInfo != nil {
		age := m.DeathInfo.AgeAtDeath
		f.AgeAtDeath = &age
		f.CauseOfDeath = m.DeathInfo.Cause
		if m.DeathInfo.CauseConditionID == conditionID {
			f.CauseOfDeath = ""
		}
	}
	return f
}

func singleReply(rng domain.Rand, f domain.DisclosedFact, name string) string {
	pronoun := capitalize(f.Gender.Pronoun())
	switch {
	case f.Alive:
		return fmt.Sprintf(pick(rng, livingTemplates), f.Relationship, name, f.AgeAtDiagnosis, pronoun, derefAge(f.CurrentAge))
	case f.CauseOfDeath == "":
		return fmt.Sprintf(pick(rng, diedFromTemplates), f.Relationship, name, f.AgeAtDiagnosis, pronoun, derefAge(f.AgeAtDeath))
	default:
		return fmt.Sprintf(pick(rng, diedOtherTemplates), f.Relationship, name, f.AgeAtDiagnosis, pronoun,
			derefAge(f.AgeAtDeath), f.CauseOfDeath)
	}
}

func multiReply(rng domain.Rand, facts []domain.DisclosedFact, name string) string {
	shown := facts
	if len(shown) > maxSummarized {
		shown = shown[:maxSummarized]
	}
	parts := make([]string, 0, len(shown))
	for _, f := range shown {
		status := fmt.Sprintf("now %d", derefAge(f.CurrentAge))
		if !f.Alive {
			status = fmt.Sprintf("died at %d", derefAge(f.AgeAtDeath))
		}
		parts = append(parts, fmt.Sprintf("my %s (diagnosed at %d, %s)", f.Relationship, f.AgeAtDiagnosis, status))
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf(pick(rng, multiOpeners), name))
	b.WriteString(joinList(parts))
	b.WriteString(".")
	if len(facts) > maxSummarized {
		b.WriteString(moreExistSuffix)
	}
	return b.String()
}

func joinList(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func pick(rng domain.Rand, pool []string) string {
	return pool[rng.IntN(len(pool))]
}

func derefAge(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
