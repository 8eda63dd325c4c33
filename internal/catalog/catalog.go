// Package catalog loads the static content the interview core reads: the condition
// catalog, the diagnosis relevance map and the essential-question catalog.
//
// Defaults are embedded from data/*.yaml. Any of the three may be replaced by an
// external file through domain.CatalogConfig.
package catalog

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clinical-interview-sim/internal/domain"
)

//go:embed data/*.yaml
var embedded embed.FS

const (
	conditionsFileName = "conditions.yaml"
	relevanceFileName  = "relevance.yaml"
	questionsFileName  = "questions.yaml"
)

// Catalogs bundles the three read-only catalogs.
type Catalogs struct {
	Conditions *ConditionCatalog
	Relevance  *RelevanceMap
	Questions  *QuestionCatalog
}

// Load reads every catalog, falling back to the embedded copy for each empty path,
// and cross-validates them.
func Load(cfg domain.CatalogConfig) (*Catalogs, error) {
	condData, err := readSource(cfg.ConditionsPath, conditionsFileName)
	if err != nil {
		return nil, err
	}
	conditions, err := ParseConditions(condData)
	if err != nil {
		return nil, err
	}

	relData, err := readSource(cfg.RelevancePath, relevanceFileName)
	if err != nil {
		return nil, err
	}
	relevance, err := ParseRelevance(relData, conditions)
	if err != nil {
		return nil, err
	}

	qData, err := readSource(cfg.QuestionsPath, questionsFileName)
	if err != nil {
		return nil, err
	}
	questions, err := ParseQuestions(qData, relevance.Aliases())
	if err != nil {
		return nil, err
	}

	return &Catalogs{Conditions: conditions, Relevance: relevance, Questions: questions}, nil
}

// LoadDir loads catalogs from dir, using the embedded copy for any file missing there.
func LoadDir(dir string) (*Catalogs, error) {
	if dir == "" {
		return Default()
	}
	cfg := domain.CatalogConfig{}
	if p := filepath.Join(dir, conditionsFileName); fileExists(p) {
		cfg.ConditionsPath = p
	}
	if p := filepath.Join(dir, relevanceFileName); fileExists(p) {
		cfg.RelevancePath = p
	}
	if p := filepath.Join(dir, questionsFileName); fileExists(p) {
		cfg.QuestionsPath = p
	}
	return Load(cfg)
}

// Default loads the embedded catalogs.
func Default() (*Catalogs, error) {
	return Load(domain.CatalogConfig{})
}

// MustDefault is Default for tests and binaries that cannot run without catalogs.
func MustDefault() *Catalogs {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("embedded catalogs: %v", err))
	}
	return c
}

func readSource(path, name string) ([]byte, error) {
	if path == "" {
		data, err := embedded.ReadFile("data/" + name)
		if err != nil {
			return nil, fmt.Errorf("read embedded %s: %w", name, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return data, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
