package domain

import (
	"sort"
	"time"
)

// IntentKind tags the variant held by an Intent.
type IntentKind string

const (
	IntentUnrecognized IntentKind = "unrecognized"
	IntentGeneral      IntentKind = "general"
	IntentSpecific     IntentKind = "specific"
)

// Intent is what a free-text question resolves to: a general family-history query,
// a query about one specific condition, or nothing the family history can answer.
// ConditionID is set only for IntentSpecific.
type Intent struct {
	Kind        IntentKind `json:"kind"`
	ConditionID string     `json:"condition_id,omitempty"`

	// Alternates lists other conditions the text also matched, in catalog order.
	Alternates []string `json:"alternates,omitempty"`
}

// GeneralIntent builds a general-history intent.
func GeneralIntent() Intent { return Intent{Kind: IntentGeneral} }

// SpecificIntent builds a specific-condition intent.
func SpecificIntent(conditionID string, alternates ...string) Intent {
	return Intent{Kind: IntentSpecific, ConditionID: conditionID, Alternates: alternates}
}

// UnrecognizedIntent builds the no-match intent.
func UnrecognizedIntent() Intent { return Intent{Kind: IntentUnrecognized} }

// IsAmbiguous reports whether more than one condition matched.
func (i Intent) IsAmbiguous() bool { return len(i.Alternates) > 0 }

func (i Intent) String() string {
	if i.Kind == IntentSpecific {
		return string(i.Kind) + "(" + i.ConditionID + ")"
	}
	return string(i.Kind)
}

// Stage is the coarse position of a session in the disclosure state machine.
// Stages only move forward until the session is reset.
type Stage string

const (
	StageFresh         Stage = "fresh"
	StageGeneralAsked  Stage = "general_asked"
	StageSpecificAsked Stage = "specific_asked"
)

// QuestionLogEntry is one learner question as it was received and classified.
type QuestionLogEntry struct {
	QuestionText string    `json:"question_text"`
	Timestamp    time.Time `json:"timestamp"`
	Intent       Intent    `json:"intent"`
}

// DisclosureState is the mutable per-session record of what has been asked. It is
// owned by exactly one session and never shared.
type DisclosureState struct {
	AskedGeneral            bool                `json:"asked_general"`
	SpecificConditionsAsked map[string]struct{} `json:"-"`
	Log                     []QuestionLogEntry  `json:"log"`
}

// NewDisclosureState returns a fresh state.
func NewDisclosureState() *DisclosureState {
	return &DisclosureState{SpecificConditionsAsked: make(map[string]struct{})}
}

// Record appends a question to the log and accumulates the asked facts it implies.
func (s *DisclosureState) Record(entry QuestionLogEntry) {
	if s.SpecificConditionsAsked == nil {
		s.SpecificConditionsAsked = make(map[string]struct{})
	}
	s.Log = append(s.Log, entry)
	switch entry.Intent.Kind {
	case IntentGeneral:
		s.AskedGeneral = true
	case IntentSpecific:
		s.SpecificConditionsAsked[entry.Intent.ConditionID] = struct{}{}
	}
}

// AskedCondition reports whether conditionID has been asked about.
func (s *DisclosureState) AskedCondition(conditionID string) bool {
	_, ok := s.SpecificConditionsAsked[conditionID]
	return ok
}

// SpecificAsked returns the asked condition ids in sorted order.
func (s *DisclosureState) SpecificAsked() []string {
	ids := make([]string, 0, len(s.SpecificConditionsAsked))
	for id := range s.SpecificConditionsAsked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stage derives the state-machine position from the accumulated facts.
func (s *DisclosureState) Stage() Stage {
	switch {
	case len(s.SpecificConditionsAsked) > 0:
		return StageSpecificAsked
	case s.AskedGeneral:
		return StageGeneralAsked
	default:
		return StageFresh
	}
}

// Reset clears everything that has been asked.
func (s *DisclosureState) Reset() {
	s.AskedGeneral = false
	s.SpecificConditionsAsked = make(map[string]struct{})
	s.Log = nil
}

// Snapshot returns a deep copy safe to hand to readers outside the session.
func (s *DisclosureState) Snapshot() *DisclosureState {
	cp := &DisclosureState{
		AskedGeneral:            s.AskedGeneral,
		SpecificConditionsAsked: make(map[string]struct{}, len(s.SpecificConditionsAsked)),
		Log:                     append([]QuestionLogEntry(nil), s.Log...),
	}
	for id := range s.SpecificConditionsAsked {
		cp.SpecificConditionsAsked[id] = struct{}{}
	}
	return cp
}

// DisclosedFact is the structured content behind a specific-condition reply.
type DisclosedFact struct {
	Relationship   string `json:"relationship"`
	Gender         Gender `json:"gender"`
	AgeAtDiagnosis int    `json:"age_at_diagnosis"`
	Alive          bool   `json:"alive"`
	CurrentAge     *int   `json:"current_age,omitempty"`
	AgeAtDeath     *int   `json:"age_at_death,omitempty"`
	CauseOfDeath   string `json:"cause_of_death,omitempty"`
}

// DisclosureResult is what the patient says back to one question.
type DisclosureResult struct {
	Text   string `json:"text"`
	Vague  bool   `json:"vague"`
	Intent Intent `json:"intent"`

	MatchedConditionID string `json:"matched_condition_id,omitempty"`

	// PromptSpecific is set after a general question so the UI can nudge the
	// learner toward targeted follow-ups.
	PromptSpecific bool `json:"prompt_specific"`

	// NoMatch signals that the question is not a family-history question and
	// should be routed to another subsystem.
	NoMatch bool `json:"no_match"`

	// Relevant is set when the matched condition belongs to the case differential.
	Relevant bool `json:"relevant"`

	Facts     []DisclosedFact `json:"facts,omitempty"`
	MoreExist bool            `json:"more_exist"`
	Stage     Stage           `json:"stage"`
}
