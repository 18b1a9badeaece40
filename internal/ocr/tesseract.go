package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// tesseractEngine wraps one gosseract client for one recognition run.
type tesseractEngine struct {
	client *gosseract.Client
}

// NewTesseractFactory returns an EngineFactory backed by the system
// Tesseract installation.
func NewTesseractFactory() EngineFactory {
	return func() (Engine, error) {
		return &tesseractEngine{client: gosseract.NewClient()}, nil
	}
}

func (e *tesseractEngine) LoadLanguage(lang string) error {
	if err := e.client.SetLanguage(lang); err != nil {
		return fmt.Errorf("tesseract: set language: %w", err)
	}
	return nil
}

func (e *tesseractEngine) Configure() error {
	// Receipts are a single column of uneven lines; automatic segmentation
	// handles them better than the default block mode.
	if err := e.client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return fmt.Errorf("tesseract: set page seg mode: %w", err)
	}
	return nil
}

func (e *tesseractEngine) Recognize(image []byte) (string, error) {
	if err := e.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("tesseract: set image: %w", err)
	}
	return e.client.Text()
}

func (e *tesseractEngine) Close() error {
	return e.client.Close()
}
