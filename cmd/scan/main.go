package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/ai"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/config"
	infraBQ "github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/infra/bigquery"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/imaging"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/logger"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/ocr"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/receipt"
)

var (
	imagePath = flag.String("image", "", "Path to the receipt image (required)")
	budgetID  = flag.String("budget", "", "Budget ID to attach expenses to (required)")
	userID    = flag.String("user", "", "Owner user ID (required)")
	dryRun    = flag.Bool("dry-run", false, "Extract line items but skip persistence")
)

func main() {
	flag.Parse()

	log := logger.New()

	if *imagePath == "" || *budgetID == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "Usage: scan -image receipt.jpg -budget <budget-id> -user <user-id>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	raw, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *imagePath).Msg("Failed to read image")
	}

	ctx := context.Background()

	generator, err := ai.NewGeminiGenerator(ctx, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	adapter := ocr.NewAdapter(ocr.NewTesseractFactory(), imaging.Normalize, cfg.OCRLanguage, log)
	onProgress := func(p ocr.Progress) {
		fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", p.Percent, p.Phase)
	}

	extractor := receipt.NewExtractor(generator, log)

	if *dryRun {
		text, err := adapter.Recognize(ctx, raw, onProgress)
		if err != nil {
			log.Fatal().Err(err).Msg("Recognition failed")
		}
		items, err := extractor.Extract(ctx, text)
		if err != nil {
			log.Fatal().Err(err).Msg("Extraction failed")
		}
		printJSON(items)
		return
	}

	repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	persister := receipt.NewPersister(repo, repo, log)
	service := receipt.NewService(extractor, persister, log)

	// Local file, so the pipeline starts at recognition instead of the
	// archive fetch.
	pipeline := receipt.NewPipeline(
		&receipt.RecognizeStep{Adapter: adapter, OnProgress: onProgress},
		&receipt.ProcessStep{Service: service},
	)

	state := &receipt.ScanState{
		OwnerID:  *userID,
		BudgetID: *budgetID,
		RawImage: raw,
	}
	if err := pipeline.Execute(ctx, state); err != nil {
		log.Fatal().Err(err).Msg("Scan failed")
	}

	if !state.Result.Success {
		log.Error().Str("message", state.Result.Message).Msg("Receipt not persisted")
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Persisted %d expenses to budget %s\n", len(state.Result.Expenses), *budgetID)
	printJSON(state.Result.Expenses)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
	}
}
