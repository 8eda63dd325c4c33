// Command calibrate generates many families for one patient and compares observed
// condition frequencies among first-degree relatives with the frequencies the
// generator is configured to produce.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/clinical-interview-sim/internal/calibration"
	"github.com/clinical-interview-sim/internal/catalog"
	"github.com/clinical-interview-sim/internal/config"
	"github.com/clinical-interview-sim/internal/domain"
	"github.com/clinical-interview-sim/internal/service"
)

func main() {
	age := flag.Int("age", 55, "patient age")
	gender := flag.String("gender", "M", "patient gender (M or F)")
	differential := flag.String("differential", "ACS", "comma-separated differential diagnoses")
	n := flag.Int("n", 1000, "number of families to generate")
	seed := flag.Uint64("seed", 1, "seed of the first family")
	flag.Parse()

	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	cats, err := catalog.Load(cfg.Catalogs)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load catalogs")
	}
	interview, err := service.NewInterviewService(cats, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create interview service")
	}

	params := service.GenerateParams{
		PatientAge:    *age,
		PatientGender: domain.ParseGender(*gender),
		Differential:  splitList(*differential),
	}
	report, err := calibration.Run(interview.Generator(), params, *n, *seed)
	if err != nil {
		logger.WithError(err).Fatal("Calibration failed")
	}

	inconsistent := 0
	for _, c := range report.Conditions {
		if !c.Consistent {
			inconsistent++
		}
	}
	logger.WithField("graphs", report.Graphs).WithField("inconsistent", inconsistent).Info("Calibration finished")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.WithError(err).Fatal("Failed to write report")
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
