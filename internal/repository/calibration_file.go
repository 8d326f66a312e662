package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"CreditRisk/internal/domain/models"
	domrepo "CreditRisk/internal/domain/repository"
)

// FileCalibrationSource reads the calibration artifact from a JSON file on
// every Load, so edits to the file apply to the next prediction.
type FileCalibrationSource struct {
	path string
}

func NewFileCalibrationSource(path string) *FileCalibrationSource {
	return &FileCalibrationSource{path: path}
}

func (s *FileCalibrationSource) Path() string { return s.path }

func (s *FileCalibrationSource) Load(_ context.Context) (*models.Calibration, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domrepo.ErrCalibrationNotFound, s.path)
		}
		return nil, fmt.Errorf("read calibration: %w", err)
	}
	var c models.Calibration
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode calibration %s: %w", s.path, err)
	}
	return &c, nil
}

// Save replaces the artifact atomically: readers see the old or the new
// file, never a partial one.
func (s *FileCalibrationSource) Save(_ context.Context, c *models.Calibration) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode calibration: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create calibration dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".calibration-*.json")
	if err != nil {
		return fmt.Errorf("create temp calibration: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp calibration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp calibration: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace calibration: %w", err)
	}
	return nil
}

var (
	_ domrepo.CalibrationSource = (*FileCalibrationSource)(nil)
	_ domrepo.CalibrationWriter = (*FileCalibrationSource)(nil)
)
