package service

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-interview-sim/internal/catalog"
	"github.com/clinical-interview-sim/internal/domain"
)

func handcraftedGraph() *domain.FamilyGraph {
	return &domain.FamilyGraph{
		PatientAge:         50,
		PatientGender:      domain.GenderMale,
		Differential:       []string{"ACS"},
		RelevantConditions: []string{"coronary_artery_disease", "hypertension"},
		Mother:             livingWith("mother", domain.GenderFemale, 76, "coronary_artery_disease", 58),
		Father:             healthy("father", domain.GenderMale, 79),
	}
}

func TestDisclosure_GeneralRepliesNeverNameConditions(t *testing.T) {
	core := newTestCore(t)

	for _, reply := range generalReplies {
		lower := strings.ToLower(reply)
		for _, cond := range core.catalogs.Conditions.All() {
			for _, term := range cond.MatchTerms() {
				assert.NotContains(t, lower, term, "general reply leaks %q", term)
			}
		}
		assert.False(t, core.classifier.Mentions(reply), reply)
	}
}

func TestDisclosure_GeneralQuestionIsVague(t *testing.T) {
	core := newTestCore(t)

	for seed := uint64(1); seed <= 50; seed++ {
		graph := core.generator.Generate(NewRand(seed), GenerateParams{PatientAge: 60, Differential: []string{"ACS"}})
		sess := core.session(graph, seed)

		res := core.engine.Ask(sess, "Tell me about your family history.")
		assert.True(t, res.Vague)
		assert.True(t, res.PromptSpecific)
		assert.False(t, res.NoMatch)
		assert.Empty(t, res.Facts)
		assert.Empty(t, res.MatchedConditionID)
		assert.Equal(t, domain.StageGeneralAsked, res.Stage)
		assert.False(t, core.classifier.Mentions(res.Text), res.Text)
	}
}

func TestDisclosure_SpecificSingleMember(t *testing.T) {
	core := newTestCore(t)
	sess := core.session(handcraftedGraph(), 1)

	res := core.engine.Ask(sess, "Does your family have heart disease?")

	assert.Equal(t, "coronary_artery_disease", res.MatchedConditionID)
	assert.False(t, res.Vague)
	assert.True(t, res.Relevant)
	assert.Contains(t, res.Text, "mother")
	assert.Contains(t, res.Text, "58")
	assert.Contains(t, res.Text, "76")
	require.Len(t, res.Facts, 1)
	assert.Equal(t, "mother", res.Facts[0].Relationship)
	assert.Equal(t, 58, res.Facts[0].AgeAtDiagnosis)
	assert.True(t, res.Facts[0].Alive)
	assert.Equal(t, domain.StageSpecificAsked, res.Stage)
}

func TestDisclosure_DeceasedMember(t *testing.T) {
	core := newTestCore(t)
	graph := handcraftedGraph()
	graph.Father = &domain.FamilyMember{
		Relationship: "father",
		Gender:       domain.GenderMale,
		NominalAge:   79,
		Conditions:   []domain.DiagnosedCondition{{ConditionID: "colon_cancer", AgeAtDiagnosis: 61}},
		DeathInfo:    &domain.DeathInfo{AgeAtDeath: 64, Cause: "colon cancer", CauseConditionID: "colon_cancer", DiedFromCondition: true},
	}
	sess := core.session(graph, 2)

	res := core.engine.Ask(sess, "Any colon cancer in the family?")
	require.Len(t, res.Facts, 1)
	assert.False(t, res.Facts[0].Alive)
	assert.Equal(t, 64, *res.Facts[0].AgeAtDeath)
	assert.Contains(t, res.Text, "father")
	assert.Contains(t, res.Text, "61")
	assert.Contains(t, res.Text, "64")
	assert.False(t, res.Relevant)
}

func TestDisclosure_MultipleMembersSummarized(t *testing.T) {
	core := newTestCore(t)
	graph := handcraftedGraph()
	graph.Father = livingWith("father", domain.GenderMale, 79, "hypertension", 50)
	graph.Siblings = []*domain.FamilyMember{
		livingWith("brother", domain.GenderMale, 52, "hypertension", 45),
		livingWith("sister", domain.GenderFemale, 47, "hypertension", 44),
	}
	graph.MaternalAuntsUncles = []*domain.FamilyMember{
		livingWith("maternal uncle", domain.GenderMale, 70, "hypertension", 55),
	}
	sess := core.session(graph, 3)

	res := core.engine.Ask(sess, "Does anyone have high blood pressure?")

	require.Len(t, res.Facts, 4)
	assert.True(t, res.MoreExist)
	assert.Contains(t, res.Text, "There might be others")
	assert.Contains(t, res.Text, "my father (diagnosed at 50")
	assert.Contains(t, res.Text, "my brother")
	assert.Contains(t, res.Text, "my sister")
	assert.NotContains(t, res.Text, "uncle", "only the three closest are named")
}

func TestDisclosure_NegativeControlIsDeterministic(t *testing.T) {
	core := newTestCore(t)
	sess := core.session(handcraftedGraph(), 4)

	var texts []string
	for i := 0; i < 5; i++ {
		res := core.engine.Ask(sess, "Has anyone had epilepsy?")
		assert.Empty(t, res.Facts)
		assert.False(t, res.MoreExist)
		texts = append(texts, res.Text)
	}
	for _, text := range texts {
		assert.Equal(t, "No one in my family has had epilepsy.", text)
	}
}

func TestDisclosure_IdempotentFacts(t *testing.T) {
	core := newTestCore(t)

	for seed := uint64(1); seed <= 100; seed++ {
		graph := core.generator.Generate(NewRand(seed), GenerateParams{PatientAge: 55, Differential: []string{"ACS", "stroke"}})
		sess := core.session(graph, seed)

		for _, q := range []string{"Any heart disease in your family?", "Has anyone had a stroke?", "What about high cholesterol?"} {
			first := core.engine.Ask(sess, q)
			second := core.engine.Ask(sess, q)
			assert.Equal(t, first.Facts, second.Facts, "seed %d %q", seed, q)
			assert.Equal(t, first.MatchedConditionID, second.MatchedConditionID)
			assert.Equal(t, first.MoreExist, second.MoreExist)
		}
	}
}

func TestDisclosure_UnrecognizedIsNoMatch(t *testing.T) {
	core := newTestCore(t)
	sess := core.session(handcraftedGraph(), 5)

	for _, q := range []string{"Where does it hurt?", ""} {
		res := core.engine.Ask(sess, q)
		assert.True(t, res.NoMatch)
		assert.Empty(t, res.Text)
		assert.Equal(t, domain.IntentUnrecognized, res.Intent.Kind)
		assert.Equal(t, domain.StageFresh, res.Stage)
	}
	assert.Len(t, sess.Log(), 2, "unrecognized questions are still logged")
}

func TestDisclosure_StageIsMonotonicUntilReset(t *testing.T) {
	core := newTestCore(t)
	sess := core.session(handcraftedGraph(), 6)

	assert.Equal(t, domain.StageFresh, sess.State().Stage())

	assert.Equal(t, domain.StageGeneralAsked, core.engine.Ask(sess, "Any family history?").Stage)
	assert.Equal(t, domain.StageSpecificAsked, core.engine.Ask(sess, "Any asthma?").Stage)
	assert.Equal(t, domain.StageSpecificAsked, core.engine.Ask(sess, "Any family history?").Stage)
	assert.Equal(t, domain.StageSpecificAsked, core.engine.Ask(sess, "How long has it lasted?").Stage)

	state := sess.State()
	assert.True(t, state.AskedGeneral)
	assert.Equal(t, []string{"asthma"}, state.SpecificAsked())
	assert.Len(t, state.Log, 4)

	graphBefore := sess.Graph()
	sess.Reset()
	state = sess.State()
	assert.Equal(t, domain.StageFresh, state.Stage())
	assert.Empty(t, state.Log)
	assert.Same(t, graphBefore, sess.Graph(), "reset keeps the family")
}

func TestDisclosure_SessionsAreIndependent(t *testing.T) {
	core := newTestCore(t)
	a := core.session(handcraftedGraph(), 7)
	b := core.session(handcraftedGraph(), 8)

	core.engine.Ask(a, "Any heart disease?")
	assert.Len(t, a.Log(), 1)
	assert.Empty(t, b.Log())
	assert.Equal(t, domain.StageFresh, b.State().Stage())
}

func TestDisclosure_EndToEndACS(t *testing.T) {
	core := newTestCore(t)
	require.Contains(t, core.catalogs.Relevance.Resolve("ACS"), "coronary_artery_disease")

	found := false
	for seed := uint64(1); seed <= 2000 && !found; seed++ {
		graph := core.generator.Generate(NewRand(seed), GenerateParams{
			PatientAge:    50,
			PatientGender: domain.GenderMale,
			Differential:  []string{"ACS"},
		})
		var parent *domain.FamilyMember
		for _, m := range []*domain.FamilyMember{graph.Mother, graph.Father} {
			if _, ok := m.HasCondition("coronary_artery_disease"); ok {
				parent = m
				break
			}
		}
		if parent == nil {
			continue
		}
		found = true

		dc, _ := parent.HasCondition("coronary_artery_disease")
		res := core.engine.Ask(core.session(graph, seed), "does your family have heart disease")

		assert.Equal(t, "coronary_artery_disease", res.MatchedConditionID)
		assert.True(t, res.Relevant)
		assert.Contains(t, res.Text, parent.Relationship, "seed %d", seed)
		assert.Contains(t, res.Text, strconv.Itoa(dc.AgeAtDiagnosis), "seed %d", seed)
		assert.True(t, parent.Relationship == "mother" || parent.Relationship == "father")
	}
	assert.True(t, found, "no seed produced a parent with coronary artery disease")
}

func TestJoinList(t *testing.T) {
	assert.Equal(t, "", joinList(nil))
	assert.Equal(t, "a", joinList([]string{"a"}))
	assert.Equal(t, "a and b", joinList([]string{"a", "b"}))
	assert.Equal(t, "a, b, and c", joinList([]string{"a", "b", "c"}))
}

func ExampleDisclosureEngine_Ask() {
	cats, logger := catalog.MustDefault(), quietLogger()
	classifier := NewQueryClassifier(cats.Conditions, logger)
	engine := NewDisclosureEngine(classifier, cats.Conditions, nil, logger)
	sess := NewSession("example", 1, handcraftedGraph(), NewRand(1), fixedNow)

	res := engine.Ask(sess, "Has anyone had epilepsy?")
	fmt.Println(res.Text)
	// Output: No one in my family has had epilepsy.
}
