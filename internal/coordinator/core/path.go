package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/nemanja-m/enhancify/pkg/types"
)

// SupportedExtensions lists the accepted image extensions, lower case with
// leading dot.
var SupportedExtensions = []string{".tiff", ".tif", ".png", ".jpeg", ".jpg"}

// Skipped describes a directory entry that was not turned into a job.
type Skipped struct {
	Path string
	Err  error
}

func (s Skipped) String() string {
	return fmt.Sprintf("%s will be not processed: %v", s.Path, s.Err)
}

// Discovery is the outcome of scanning an input folder.
type Discovery struct {
	Accepted []string
	Skipped  []Skipped
}

func IsSupported(path string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(path)))
}

// ResolveImage checks a single input image. Any failure is fatal for the run.
func ResolveImage(path string) (string, error) {
	if !IsSupported(path) {
		return "", fmt.Errorf("%s: %w, provide %s images", path, ErrUnsupported, strings.Join(SupportedExtensions, ", "))
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s %w", path, ErrNotFound)
		}
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s: %w, not a regular file", path, ErrUnsupported)
	}
	return path, nil
}

// DiscoverImages enumerates the entries of dir (not recursively) and
// classifies each one. Rejected entries are reported, not returned as errors.
// Hidden entries are ignored. A missing dir yields no images, with dir itself
// reported as skipped. The accepted paths are sorted.
func DiscoverImages(dir string) (*Discovery, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Discovery{Skipped: []Skipped{{Path: dir, Err: ErrNotFound}}}, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	names, err := doublestar.Glob(os.DirFS(dir), "*")
	if err != nil {
		return nil, err
	}
	slices.Sort(names)

	discovery := &Discovery{}
	for _, name := range names {
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		if !IsSupported(name) {
			discovery.Skipped = append(discovery.Skipped, Skipped{Path: path, Err: ErrUnsupported})
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			discovery.Skipped = append(discovery.Skipped, Skipped{Path: path, Err: ErrNotFound})
			continue
		}
		if !info.Mode().IsRegular() {
			discovery.Skipped = append(discovery.Skipped, Skipped{Path: path, Err: ErrUnsupported})
			continue
		}
		discovery.Accepted = append(discovery.Accepted, path)
	}
	return discovery, nil
}

// OutputDirFor returns the per-image output directory: the image's base name
// without extension, inside root.
func OutputDirFor(root, inputPath string) string {
	base := filepath.Base(inputPath)
	return filepath.Join(root, strings.TrimSuffix(base, filepath.Ext(base)))
}

// EnsureDir creates path if absent. Concurrent calls are safe.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// BuildJobs turns accepted images into jobs and creates their output
// directories.
func BuildJobs(paths []string, outputRoot string, cfg types.AlgorithmConfig) ([]types.JobSpec, error) {
	if len(paths) == 0 {
		return nil, ErrEmptyBatch
	}
	if err := EnsureDir(outputRoot); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}

	jobs := make([]types.JobSpec, 0, len(paths))
	for i, path := range paths {
		outputDir := OutputDirFor(outputRoot, path)
		if err := EnsureDir(outputDir); err != nil {
			return nil, fmt.Errorf("failed to create output folder for %s: %w", path, err)
		}
		jobs = append(jobs, types.JobSpec{
			ID:        uuid.New(),
			Index:     i,
			InputPath: path,
			OutputDir: outputDir,
			Config:    cfg,
		})
	}
	return jobs, nil
}
