package service

import (
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/clinical-interview-sim/internal/catalog"
	"github.com/clinical-interview-sim/internal/domain"
)

// generalTriggers mark an open family-history question. They only apply when no
// condition term matches the same text.
var generalTriggers = []string{
	"family history",
	"runs in the family",
	"run in the family",
	"runs in your family",
	"run in your family",
	"anyone in your family",
	"anybody in your family",
	"in your family",
	"your family",
	"family members",
	"relatives",
	"your parents",
	"your mother",
	"your mom",
	"your father",
	"your dad",
	"your siblings",
	"brothers or sisters",
	"family medical",
	"hereditary",
	"genetic",
}

type conditionTerms struct {
	id    string
	terms []string
}

// QueryClassifier maps free-text questions to an Intent by term containment. It is
// safe for concurrent use; its tables are built once and never modified.
type QueryClassifier struct {
	conditions []conditionTerms
	triggers   []string
	logger     *logrus.Logger
}

// NewQueryClassifier indexes the match terms of every condition in catalog order.
func NewQueryClassifier(conditions *catalog.ConditionCatalog, logger *logrus.Logger) *QueryClassifier {
	qc := &QueryClassifier{logger: logger}
	for _, cond := range conditions.All() {
		ct := conditionTerms{id: cond.ID}
		for _, term := range cond.MatchTerms() {
			if n := normalizeText(term); n != "" {
				ct.terms = append(ct.terms, padded(n))
			}
		}
		qc.conditions = append(qc.conditions, ct)
	}
	for _, trig := range generalTriggers {
		qc.triggers = append(qc.triggers, padded(normalizeText(trig)))
	}
	return qc
}

// Classify returns Specific for the first catalog condition whose name or alias occurs
// in text, General when only a general trigger occurs, and Unrecognized otherwise.
// When several conditions match, the others are reported as alternates.
func (qc *QueryClassifier) Classify(text string) domain.Intent {
	norm := normalizeText(text)
	if norm == "" {
		return domain.UnrecognizedIntent()
	}
	haystack := padded(norm)

	matches := qc.matchConditions(haystack)
	if len(matches) > 0 {
		intent := domain.SpecificIntent(matches[0], matches[1:]...)
		if intent.IsAmbiguous() {
			qc.logger.WithFields(logrus.Fields{
				"question":   text,
				"chosen":     intent.ConditionID,
				"alternates": intent.Alternates,
			}).Warn("Question matches several conditions, using the first in catalog order")
		}
		return intent
	}

	for _, trig := range qc.triggers {
		if strings.Contains(haystack, trig) {
			return domain.GeneralIntent()
		}
	}
	return domain.UnrecognizedIntent()
}

// MatchingConditions returns every condition id mentioned in text, in catalog order.
func (qc *QueryClassifier) MatchingConditions(text string) []string {
	norm := normalizeText(text)
	if norm == "" {
		return nil
	}
	return qc.matchConditions(padded(norm))
}

// Mentions reports whether text contains any condition term. Canned replies are
// checked against it.
func (qc *QueryClassifier) Mentions(text string) bool {
	return len(qc.MatchingConditions(text)) > 0
}

func (qc *QueryClassifier) matchConditions(haystack string) []string {
	var matches []string
	for _, ct := range qc.conditions {
		for _, term := range ct.terms {
			if strings.Contains(haystack, term) {
				matches = append(matches, ct.id)
				break
			}
		}
	}
	return matches
}

// normalizeText lower-cases s, drops apostrophes and turns every other run of
// non-alphanumeric characters into a single space.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func padded(s string) string {
	return " " + s + " "
}
