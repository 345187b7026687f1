package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pillchecker/pillchecker/logging"
	"github.com/pillchecker/pillchecker/ocr"
	"github.com/pillchecker/pillchecker/upload"
	"github.com/pillchecker/pillchecker/validation"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Read a label image and print the extracted medication data",
	Long: `Scan runs OCR on a label image, links entities when BIOMED_HOST is set
and prints the recognized text, entities and extraction result. Nothing
is stored.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("image", "", "path to the label image (required)")
	scanCmd.Flags().String("format", "json", "output format: json or yaml")
	_ = scanCmd.MarkFlagRequired("image")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := setup(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	imagePath, _ := cmd.Flags().GetString("image")
	format, _ := cmd.Flags().GetString("format")

	content, err := os.ReadFile(imagePath)
	if err != nil {
		return err
	}
	if _, err := validation.NewDataValidator(0).DetectImageType(content); err != nil {
		return fmt.Errorf("%s: %w", imagePath, err)
	}

	linker, err := newLinker(cfg)
	if err != nil {
		return err
	}

	// Analyze reads no files and writes nothing to the store.
	svc := upload.NewService(nil, ocr.NewRecognizer(cfg.OCRLanguages...), linker, newPipeline(cfg), nil)
	analysis, err := svc.Analyze(cmd.Context(), content)
	if errors.Is(err, upload.ErrRecognitionFailed) {
		return fmt.Errorf("%s: %w", imagePath, err)
	}
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), format, analysis)
}
