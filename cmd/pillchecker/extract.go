package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pillchecker/pillchecker/extraction/entities"
	"github.com/pillchecker/pillchecker/logging"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract structured medication data from label text",
	Long: `Extract runs the extraction pipeline on OCR text. Entities can be read
from a JSON or YAML file with --entities, or fetched from the configured
entity-linking service with --link. Without either the pipeline runs on
the text alone.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("text", "", "label text (default: read from stdin)")
	extractCmd.Flags().String("entities", "", "JSON or YAML file holding a list of linked entities")
	extractCmd.Flags().Bool("link", false, "fetch entities from the entity-linking service")
	extractCmd.Flags().String("format", "json", "output format: json or yaml")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := setup(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	text, _ := cmd.Flags().GetString("text")
	entitiesPath, _ := cmd.Flags().GetString("entities")
	link, _ := cmd.Flags().GetBool("link")
	format, _ := cmd.Flags().GetString("format")

	if entitiesPath != "" && link {
		return errors.New("--entities and --link are mutually exclusive")
	}

	if text == "" {
		raw, err := readInput("", cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading text from stdin: %w", err)
		}
		text = string(raw)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("no text to extract from")
	}

	ents := []entities.LinkedEntity{}
	switch {
	case entitiesPath != "":
		raw, err := readInput(entitiesPath, cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading entities: %w", err)
		}
		if ents, err = parseEntities(raw); err != nil {
			return fmt.Errorf("parsing %s: %w", entitiesPath, err)
		}
	case link:
		linker, err := newLinker(cfg)
		if err != nil {
			return err
		}
		if linker == nil {
			return errors.New("--link requires BIOMED_HOST")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.NERTimeout*time.Duration(max(cfg.NERMaxAttempts, 1)))
		defer cancel()
		if ents, err = linker.ExtractEntities(ctx, text); err != nil {
			return err
		}
	}

	result := newPipeline(cfg).Process(text, ents)
	return writeOutput(cmd.OutOrStdout(), format, result)
}

// parseEntities accepts a bare list of entities or an object with an
// "entities" key. JSON input parses as YAML.
func parseEntities(raw []byte) ([]entities.LinkedEntity, error) {
	var list []entities.LinkedEntity
	if err := yaml.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Entities []entities.LinkedEntity `yaml:"entities"`
	}
	if err := yaml.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Entities, nil
}
