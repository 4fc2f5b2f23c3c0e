package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/medrecords/pkg/common/config"
	"github.com/synaptica-ai/medrecords/pkg/common/database"
	"github.com/synaptica-ai/medrecords/pkg/common/logger"
	"github.com/synaptica-ai/medrecords/pkg/dlp"
	"github.com/synaptica-ai/medrecords/pkg/ingestion"
	"github.com/synaptica-ai/medrecords/pkg/normalizer"
	"github.com/synaptica-ai/medrecords/pkg/records"
	"github.com/synaptica-ai/medrecords/pkg/storage"
	"github.com/urfave/cli/v3"
)

var cmdParse = &cli.Command{
	Name:  "parse",
	Usage: "Parse extracted record text into a normalized JSON document",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "in",
			Usage:    "Record text file, or - for stdin",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "Output JSON file (default stdout)",
		},
		&cli.StringFlag{
			Name:    "profile",
			Sources: cli.EnvVars("PATIENT_PROFILE_PATH"),
			Usage:   "Patient profile YAML",
		},
		&cli.StringFlag{
			Name:    "terminology",
			Sources: cli.EnvVars("TERMINOLOGY_PATH"),
			Usage:   "Lab terminology catalog YAML",
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "Source file name recorded in the metadata (default: input base name)",
		},
		&cli.StringFlag{
			Name:    "parser-version",
			Sources: cli.EnvVars("PARSER_VERSION"),
			Value:   records.DefaultParserVersion,
			Usage:   "Parser version stamped on the document",
		},
		&cli.BoolFlag{
			Name:    "redact",
			Sources: cli.EnvVars("REDACT_NOTES"),
			Usage:   "Mask identifiers in clinical note narrative",
		},
		&cli.StringFlag{
			Name:    "dlp-rules",
			Sources: cli.EnvVars("DLP_RULES_PATH"),
			Usage:   "DLP rules YAML used with --redact",
		},
	},
	Action: parse,
}

var cmdMigrate = &cli.Command{
	Name:   "migrate",
	Usage:  "Create or update the service tables in PostgreSQL",
	Action: migrate,
}

func main() {
	logger.Init()

	app := &cli.Command{
		Name:  "records-cli",
		Usage: "Medical record text normalization",
		Commands: []*cli.Command{
			cmdParse,
			cmdMigrate,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Log.WithError(err).Fatal("records-cli failed")
	}
}

func parse(ctx context.Context, cmd *cli.Command) error {
	in := cmd.String("in")
	text, err := readInput(in)
	if err != nil {
		return err
	}

	pipeline, err := normalizer.LoadPipeline(cmd.String("parser-version"), cmd.String("profile"), cmd.String("terminology"))
	if err != nil {
		return err
	}
	source := cmd.String("source")
	if source == "" && in != "-" {
		source = filepath.Base(in)
	}

	doc := pipeline.WithSource(source).Parse(text)

	if cmd.Bool("redact") {
		rules, err := dlp.LoadRules(cmd.String("dlp-rules"))
		if err != nil {
			return err
		}
		detector, err := dlp.NewDetector(rules)
		if err != nil {
			return err
		}
		for i := range doc.ClinicalNotes {
			doc.ClinicalNotes[i].Content = detector.MaskText(doc.ClinicalNotes[i].Content)
			detector.MaskAll(doc.ClinicalNotes[i].Items)
		}
	}

	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	encoded = append(encoded, '\n')

	out := cmd.String("out")
	if out == "" {
		if _, err := os.Stdout.Write(encoded); err != nil {
			return err
		}
	} else if err := os.WriteFile(out, encoded, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"source":          source,
		"output":          out,
		"pages":           doc.Metadata.TotalPages,
		"labs":            doc.LaboratoryResults.TotalCount,
		"lab_categories":  len(doc.LaboratoryResults.ByCategory),
		"allergens":       doc.Allergies.TotalTested,
		"positive":        doc.Allergies.PositiveCount,
		"imaging":         len(doc.ImagingReports),
		"pathology":       len(doc.PathologyReports),
		"synovial":        len(doc.SynovialFluidAnalyses),
		"medications":     len(doc.Medications),
		"visits":          len(doc.VisitSummaries),
		"clinical_notes":  len(doc.ClinicalNotes),
		"physicians":      len(doc.Physicians),
		"earliest_result": doc.Metadata.DataDateRange.Earliest,
		"latest_result":   doc.Metadata.DataDateRange.Latest,
	}).Info("Record parsed")
	return nil
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(filepath.Clean(path))
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Load()
	db, err := database.GetPostgres(cfg)
	if err != nil {
		return err
	}
	defer database.ClosePostgres()

	steps := []struct {
		name string
		run  func() error
	}{
		{"ingestion_requests", ingestion.NewRepository(db).AutoMigrate},
		{"parsed_documents", normalizer.NewRepository(db).AutoMigrate},
		{"lab_observations", storage.NewObservationWriter(db).AutoMigrate},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("migrate %s: %w", step.name, err)
		}
		logger.WithField("table", step.name).Info("Table migrated")
	}
	return nil
}
