package domain

import (
	"errors"
	"fmt"
)

// Tier ranks an essential question.
type Tier string

const (
	TierEssential Tier = "essential"
	TierHelpful   Tier = "helpful"
)

// IsValid reports whether the tier is known.
func (t Tier) IsValid() bool {
	return t == TierEssential || t == TierHelpful
}

// EssentialQuestion is a diagnosis-linked question a competent clinician should ask.
type EssentialQuestion struct {
	ID              string   `json:"id" yaml:"id"`
	Text            string   `json:"text" yaml:"text"`
	Rationale       string   `json:"rationale" yaml:"why"`
	Tier            Tier     `json:"tier" yaml:"tier"`
	LinkedDiagnoses []string `json:"linked_diagnoses" yaml:"diagnoses"`
}

var ErrInvalidTier = errors.New("invalid question tier")

// Validate checks a catalog entry at load time.
func (q *EssentialQuestion) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("essential question validation: %w", errors.New("id is required"))
	}
	if q.Text == "" {
		return fmt.Errorf("essential question %s: %w", q.ID, errors.New("text is required"))
	}
	if !q.Tier.IsValid() {
		return fmt.Errorf("essential question %s: %w: %q", q.ID, ErrInvalidTier, q.Tier)
	}
	return nil
}

// ResolvedQuestion is an essential question together with the differential
// diagnoses that pulled it in.
type ResolvedQuestion struct {
	Question  *EssentialQuestion `json:"question"`
	Diagnoses []string           `json:"diagnoses"`
}

// HistoryGroup groups history-taking categories for scoring.
type HistoryGroup string

const (
	GroupOLDCARTS      HistoryGroup = "oldcarts"
	GroupSocial        HistoryGroup = "social_history"
	GroupPastMedical   HistoryGroup = "past_medical_history"
	GroupMedication    HistoryGroup = "medications"
	GroupFamilyHistory HistoryGroup = "family_history"
)

// CategoryCoverage reports whether one history category was touched by the learner.
type CategoryCoverage struct {
	Category  string       `json:"category"`
	Group     HistoryGroup `json:"group"`
	Covered   bool         `json:"covered"`
	Questions []string     `json:"questions,omitempty"`
}

// GroupCoverage is the fraction of a group's categories that were covered.
type GroupCoverage struct {
	Group   HistoryGroup `json:"group"`
	Covered int          `json:"covered"`
	Total   int          `json:"total"`
	Percent float64      `json:"percent"`
}

// ScoreComponents breaks the composite score into its weighted parts.
type ScoreComponents struct {
	Essential     float64 `json:"essential"`
	OLDCARTS      float64 `json:"oldcarts"`
	Supplemental  float64 `json:"supplemental"`
	FamilyHistory float64 `json:"family_history"`
}

// MissedQuestion is an essential question the learner never asked.
type MissedQuestion struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Rationale string   `json:"rationale"`
	Tier      Tier     `json:"tier"`
	Diagnoses []string `json:"diagnoses"`
}

// Report is the end-of-case coverage feedback.
type Report struct {
	Score      float64            `json:"score"`
	Grade      string             `json:"grade"`
	Components ScoreComponents    `json:"components"`
	Groups     []GroupCoverage    `json:"groups"`
	Categories []CategoryCoverage `json:"per_category"`

	EssentialTotal  int              `json:"essential_total"`
	EssentialAsked  []string         `json:"essential_asked"`
	MissedEssential []MissedQuestion `json:"missed_essential"`

	FamilyHistoryAsked bool     `json:"family_history_asked"`
	QuestionCount      int      `json:"question_count"`
	Strengths          []string `json:"strengths"`
	Improvements       []string `json:"improvements"`
}

// Group returns the coverage entry for g.
func (r *Report) Group(g HistoryGroup) (GroupCoverage, bool) {
	for _, gc := range r.Groups {
		if gc.Group == g {
			return gc, true
		}
	}
	return GroupCoverage{}, false
}

// LetterGrade maps a composite score to a letter.
func LetterGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
