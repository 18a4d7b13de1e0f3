// Package pipeline implements the two-stage persona derivation over a
// text-generation backend: stage 1 condenses the accumulated raw history into
// organized notes, stage 2 expands those notes into a structured profile.
package pipeline

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"personad/internal/persona/extract"
)

//go:embed prompts/step1_system.txt
var step1System string

//go:embed prompts/step1_user.txt
var step1User string

//go:embed prompts/step2_system.txt
var step2System string

//go:embed prompts/step2_user.txt
var step2User string

const (
	// StageNormalize is the notes-condensing stage.
	StageNormalize = "normalize"
	// StageGenerate is the structured-profile stage.
	StageGenerate = "generate"
)

// Completer is the text-generation backend contract: one bounded synchronous
// completion call. Implementations must honor ctx cancellation.
type Completer interface {
	Complete(ctx context.Context, systemInstruction, userContent string) (string, error)
}

// GenerationError reports a backend failure or timeout at a named stage.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation stage %q failed: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Result is a successful pipeline run.
type Result struct {
	// Profile is the extracted structured object, including a "_meta" section
	// describing the run.
	Profile map[string]any
	// Notes is the stage-1 output the profile was generated from.
	Notes string
	// ExtractionTier names the extract ladder tier that decoded the output.
	ExtractionTier string
	// StageDurations holds wall-clock time per stage, keyed by stage name.
	StageDurations map[string]time.Duration
}

// Pipeline runs the two generation stages plus extraction. It performs no
// retries: retry policy belongs to the caller, and retrying here would
// duplicate backend billing with ambiguous lineage.
type Pipeline struct {
	backend      Completer
	model        string
	stageTimeout time.Duration
	logger       *slog.Logger
}

// New constructs a pipeline. stageTimeout bounds each backend call
// individually.
func New(backend Completer, model string, stageTimeout time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		backend:      backend,
		model:        model,
		stageTimeout: stageTimeout,
		logger:       logger,
	}
}

// Normalize condenses the concatenated history document into organized notes.
func (p *Pipeline) Normalize(ctx context.Context, document string) (string, error) {
	notes, err := p.complete(ctx, StageNormalize, step1System,
		strings.ReplaceAll(step1User, "{raw_text}", document))
	if err != nil {
		return "", err
	}
	return notes, nil
}

// Generate expands normalized notes into raw profile text. The output is
// intended to be a JSON object but is not guaranteed to be syntactically
// valid; callers decode it through extract.Parse.
func (p *Pipeline) Generate(ctx context.Context, notes string) (string, error) {
	return p.complete(ctx, StageGenerate, step2System,
		strings.ReplaceAll(step2User, "{cleaned_text}", notes))
}

// Run executes normalize, generate and extraction over the full document.
func (p *Pipeline) Run(ctx context.Context, document string) (*Result, error) {
	durations := make(map[string]time.Duration, 2)

	start := time.Now()
	notes, err := p.Normalize(ctx, document)
	if err != nil {
		return nil, err
	}
	durations[StageNormalize] = time.Since(start)

	start = time.Now()
	raw, err := p.Generate(ctx, notes)
	if err != nil {
		return nil, err
	}
	durations[StageGenerate] = time.Since(start)

	profile, tier, err := extract.ParseDetailed(raw)
	if err != nil {
		return nil, err
	}

	profile["_meta"] = map[string]any{
		"raw_text_length":     len(document),
		"cleaned_text_length": len(notes),
		"model_used":          p.model,
	}
	return &Result{
		Profile:        profile,
		Notes:          notes,
		ExtractionTier: tier,
		StageDurations: durations,
	}, nil
}

func (p *Pipeline) complete(ctx context.Context, stage, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	start := time.Now()
	out, err := p.backend.Complete(ctx, system, user)
	if err != nil {
		return "", &GenerationError{Stage: stage, Err: err}
	}
	if strings.TrimSpace(out) == "" {
		return "", &GenerationError{Stage: stage, Err: fmt.Errorf("backend returned empty output")}
	}
	p.logger.DebugContext(ctx, "generation stage completed",
		"stage", stage,
		"input_chars", len(user),
		"output_chars", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
