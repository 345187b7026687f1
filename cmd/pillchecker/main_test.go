package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/pillchecker/pillchecker/extraction/entities"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_DIR", "")
	t.Setenv("BIOMED_HOST", "")
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		for _, c := range []string{"text", "entities", "format"} {
			if f := extractCmd.Flags().Lookup(c); f != nil {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			}
		}
		_ = extractCmd.Flags().Set("link", "false")
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "pillchecker dev\n" {
		t.Errorf("Unexpected version output %q", out)
	}
}

func TestExtractFromFlag(t *testing.T) {
	out, err := runCLI(t, "", "extract", "--text", "Amoxicillin 500mg take three times a day")
	if err != nil {
		t.Fatal(err)
	}

	var result entities.ExtractionResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, out)
	}
	if result.Dosage != "500mg" {
		t.Errorf("Expected dosage 500mg, got %q", result.Dosage)
	}
	if result.PrescriptionDetails.Frequency != "three times a day" {
		t.Errorf("Expected frequency, got %q", result.PrescriptionDetails.Frequency)
	}
}

func TestExtractFromStdinWithEntitiesYAML(t *testing.T) {
	dir := t.TempDir()
	entitiesFile := filepath.Join(dir, "entities.json")
	body := `{"entities":[{"text":"ibuprofen","label":"CHEMICAL","linked_concepts":[{"canonical_name":"Ibuprofen","concept_id":"C0020740"}]}]}`
	if err := os.WriteFile(entitiesFile, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "Nurofen 200mg tablets", "extract", "--entities", entitiesFile, "--format", "yaml")
	if err != nil {
		t.Fatal(err)
	}

	var result entities.ExtractionResult
	if err := yaml.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("Output is not YAML: %v\n%s", err, out)
	}
	if result.ActiveIngredients != "Ibuprofen" {
		t.Errorf("Expected Ibuprofen, got %q", result.ActiveIngredients)
	}
	if len(result.PrescriptionDetails.ConceptIdentifiers) != 1 || result.PrescriptionDetails.ConceptIdentifiers[0] != "C0020740" {
		t.Errorf("Unexpected concept ids %v", result.PrescriptionDetails.ConceptIdentifiers)
	}
}

func TestExtractErrors(t *testing.T) {
	if _, err := runCLI(t, "   ", "extract"); err == nil {
		t.Error("Expected error for empty text")
	}
	if _, err := runCLI(t, "", "extract", "--text", "Aspirin", "--link"); err == nil {
		t.Error("Expected error for --link without BIOMED_HOST")
	}
	if _, err := runCLI(t, "", "extract", "--text", "Aspirin", "--format", "xml"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestParseEntities(t *testing.T) {
	list, err := parseEntities([]byte("- text: paracetamol\n  label: chemical\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Text != "paracetamol" {
		t.Errorf("Unexpected entities %+v", list)
	}

	if _, err := parseEntities([]byte("entities: [unclosed")); err == nil {
		t.Error("Expected error for malformed input")
	}
}

func TestWriteOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := writeOutput(&buf, "YAML", map[string]string{"title": "Aspirin"}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "title: Aspirin\n" {
		t.Errorf("Unexpected YAML %q", buf.String())
	}
}
