package enhance

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nemanja-m/enhancify/pkg/types"
)

// Report is written next to every enhanced image.
type Report struct {
	Input          string                `yaml:"input"`
	Output         string                `yaml:"output"`
	Settings       types.AlgorithmConfig `yaml:"settings"`
	Seed           uint64                `yaml:"seed"`
	InitialFitness float64               `yaml:"initial_fitness"`
	BestFitness    float64               `yaml:"best_fitness"`
	Curve          []float64             `yaml:"curve,flow"`
	History        []float64             `yaml:"history,flow"`
}

func WriteReport(path string, report *Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
