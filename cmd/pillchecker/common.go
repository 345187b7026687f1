package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pillchecker/pillchecker/config"
	"github.com/pillchecker/pillchecker/extraction"
	"github.com/pillchecker/pillchecker/interfaces"
	"github.com/pillchecker/pillchecker/logging"
	"github.com/pillchecker/pillchecker/nerclient"
)

// setup loads configuration and installs the logger. Offline commands log
// to stderr so their stdout stays machine-readable.
func setup(console io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
		Console:        console,
	})
	return cfg, nil
}

// newLinker returns nil when no entity-linking service is configured.
func newLinker(cfg *config.Config) (interfaces.EntityLinker, error) {
	baseURL := cfg.NERBaseURL()
	if baseURL == "" {
		logging.Warn("BIOMED_HOST not set, entity linking disabled")
		return nil, nil
	}
	client, err := nerclient.New(nerclient.Config{
		BaseURL:     baseURL,
		Timeout:     cfg.NERTimeout,
		MaxAttempts: cfg.NERMaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newPipeline(cfg *config.Config) *extraction.Pipeline {
	return extraction.NewPipeline(extraction.WithMaxTitleLength(cfg.TitleMaxLength))
}

// writeOutput renders v as indented JSON or YAML.
func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q (want json or yaml)", format)
	}
}

// readInput returns the named file, or stdin for "" and "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
