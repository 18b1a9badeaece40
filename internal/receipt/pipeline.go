package receipt

import (
	"context"
	"fmt"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/gcsstore"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/ocr"
)

// ScanState holds the shared state across all scan pipeline steps. One
// state belongs to exactly one pipeline run; nothing here is shared across
// requests.
type ScanState struct {
	OwnerID  string
	BudgetID string
	GCSURI   string

	RawImage []byte
	OCRText  string

	Result Result
}

// Step is a single stage in the scan pipeline.
type Step interface {
	Execute(ctx context.Context, state *ScanState) error
}

// FetchImageStep pulls the archived receipt bytes back from object storage.
type FetchImageStep struct {
	Archive gcsstore.ImageArchive
}

func (s *FetchImageStep) Execute(ctx context.Context, state *ScanState) error {
	data, err := s.Archive.Fetch(ctx, state.GCSURI)
	if err != nil {
		return err
	}
	state.RawImage = data
	return nil
}

// RecognizeStep runs preprocessing and OCR over the raw image. Progress is
// forwarded to OnProgress when set.
type RecognizeStep struct {
	Adapter    *ocr.Adapter
	OnProgress ocr.ProgressFunc
}

func (s *RecognizeStep) Execute(ctx context.Context, state *ScanState) error {
	text, err := s.Adapter.Recognize(ctx, state.RawImage, s.OnProgress)
	if err != nil {
		return err
	}
	state.OCRText = text
	// The raw image is no longer needed once text exists.
	state.RawImage = nil
	return nil
}

// ProcessStep runs extraction, validation and persistence. A non-success
// Result is not a step error: the pipeline completed, the receipt didn't.
type ProcessStep struct {
	Service *Service
}

func (s *ProcessStep) Execute(ctx context.Context, state *ScanState) error {
	state.Result = s.Service.ProcessReceipt(ctx, state.OwnerID, state.BudgetID, state.OCRText)
	return nil
}

// Pipeline executes steps strictly in order; no step starts before the
// previous one completes.
type Pipeline struct {
	steps []Step
}

func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

func (p *Pipeline) Execute(ctx context.Context, state *ScanState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("scan step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewScanPipeline builds the standard image-to-expenses pipeline.
func NewScanPipeline(archive gcsstore.ImageArchive, adapter *ocr.Adapter, service *Service, onProgress ocr.ProgressFunc) *Pipeline {
	return NewPipeline(
		&FetchImageStep{Archive: archive},
		&RecognizeStep{Adapter: adapter, OnProgress: onProgress},
		&ProcessStep{Service: service},
	)
}
