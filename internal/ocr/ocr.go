package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// ErrInit means the recognition engine could not be constructed or
	// loaded.
	ErrInit = errors.New("ocr: engine initialization failed")
	// ErrEmptyResult means recognition finished but produced no
	// non-whitespace text.
	ErrEmptyResult = errors.New("ocr: recognition produced no text")
)

// Phase names one stage of a recognition run. Phases are strictly
// sequential; none is skipped and none repeats except PhaseRecognizing,
// which may emit several incremental updates.
type Phase string

const (
	PhaseInitializing       Phase = "initializing"
	PhaseLoadingLanguage    Phase = "loading-language-model"
	PhaseInitializingEngine Phase = "initializing-engine"
	PhasePreprocessing      Phase = "preprocessing"
	PhaseRecognizing        Phase = "recognizing-text"
	PhaseComplete           Phase = "complete"
)

// Progress is one observable step of a recognition run.
type Progress struct {
	Phase   Phase
	Percent int
}

// ProgressFunc receives phase transitions for UI feedback. It is called
// synchronously from the recognition goroutine and must not block.
type ProgressFunc func(Progress)

// Engine is one disposable recognition session. The adapter constructs an
// engine per run and releases it unconditionally when the run ends.
type Engine interface {
	LoadLanguage(lang string) error
	Configure() error
	Recognize(image []byte) (string, error)
	Close() error
}

// EngineFactory builds a fresh Engine for one recognition run.
type EngineFactory func() (Engine, error)

// Normalizer turns a raw upload into an engine-ready bitmap. In production
// this is imaging.Normalize.
type Normalizer func(io.Reader) ([]byte, error)

// Adapter drives an OCR engine through its phases and reports progress.
type Adapter struct {
	newEngine EngineFactory
	normalize Normalizer
	language  string
	log       zerolog.Logger
}

func NewAdapter(factory EngineFactory, normalize Normalizer, language string, log zerolog.Logger) *Adapter {
	return &Adapter{
		newEngine: factory,
		normalize: normalize,
		language:  language,
		log:       log,
	}
}

// Recognize runs the full phase sequence over a raw image and returns the
// extracted text. onProgress may be nil. The engine is torn down on every
// path, including errors raised after construction.
func (a *Adapter) Recognize(ctx context.Context, raw []byte, onProgress ProgressFunc) (text string, err error) {
	emit := func(p Phase, pct int) {
		if onProgress != nil {
			onProgress(Progress{Phase: p, Percent: pct})
		}
	}

	emit(PhaseInitializing, 0)
	engine, err := a.newEngine()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInit, err)
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			a.log.Warn().Err(cerr).Msg("OCR engine teardown failed")
		}
	}()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	emit(PhaseLoadingLanguage, 20)
	if err := engine.LoadLanguage(a.language); err != nil {
		return "", fmt.Errorf("%w: loading language %q: %v", ErrInit, a.language, err)
	}

	emit(PhaseInitializingEngine, 40)
	if err := engine.Configure(); err != nil {
		return "", fmt.Errorf("%w: configuring engine: %v", ErrInit, err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	emit(PhasePreprocessing, 60)
	bitmap, err := a.normalize(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}

	emit(PhaseRecognizing, 70)
	text, err = engine.Recognize(bitmap)
	if err != nil {
		return "", fmt.Errorf("ocr: recognizing text: %w", err)
	}
	emit(PhaseRecognizing, 95)

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResult
	}

	emit(PhaseComplete, 100)
	return text, nil
}
