package enhance

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nemanja-m/enhancify/internal/shared/logging"
	"github.com/nemanja-m/enhancify/pkg/types"
)

const ReportFile = "report.yaml"

// GAEnhancer improves the contrast of grayscale images with a genetic
// algorithm over transfer curves.
type GAEnhancer struct {
	logger logging.Logger
}

func NewGAEnhancer(logger logging.Logger) *GAEnhancer {
	return &GAEnhancer{logger: logger}
}

// OutputName is the file the enhanced version of inputPath is written to.
func OutputName(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_enhanced.png"
}

func (e *GAEnhancer) Enhance(ctx context.Context, inputPath, outputDir string, cfg types.AlgorithmConfig) error {
	img, err := LoadGray(inputPath)
	if err != nil {
		return err
	}

	hist := Histogram(img)
	seed := types.Seed(inputPath, cfg)
	evolution, err := Evolve(ctx, &hist, cfg, seed)
	if err != nil {
		return fmt.Errorf("evolution failed: %w", err)
	}

	outputPath := filepath.Join(outputDir, OutputName(inputPath))
	if err := SavePNG(outputPath, Remap(img, evolution.Best.Curve.LUT())); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	report := &Report{
		Input:          inputPath,
		Output:         outputPath,
		Settings:       cfg,
		Seed:           seed,
		InitialFitness: evolution.Initial,
		BestFitness:    evolution.Best.Fitness,
		Curve:          evolution.Best.Curve[:],
		History:        evolution.History,
	}
	if err := WriteReport(filepath.Join(outputDir, ReportFile), report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	e.logger.Debug("Enhanced image",
		"input", inputPath,
		"initial_fitness", evolution.Initial,
		"best_fitness", evolution.Best.Fitness,
	)
	return nil
}
