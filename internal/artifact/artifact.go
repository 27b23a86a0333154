// Package artifact persists a trained model and the feature list it was
// trained with as a matched pair of JSON files. Writes are atomic and loads
// refuse pairs that did not come from the same run.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/boost"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/features"
)

var (
	// ErrNotFound indicates no complete artifact pair exists at the path.
	ErrNotFound = errors.New("artifact not found")

	// ErrPairMismatch indicates the model and feature list files do not
	// belong to the same training run.
	ErrPairMismatch = errors.New("model and feature list do not match")
)

// File names inside the artifact directory.
const (
	ModelFile    = "model.json"
	FeaturesFile = "features.json"
)

// Bundle is everything one training run persists.
type Bundle struct {
	RunID     string
	TrainedAt time.Time
	Model     *boost.Model
	Features  []string
}

type featuresDoc struct {
	RunID    string   `json:"run_id"`
	Features []string `json:"features"`
}

type modelDoc struct {
	RunID            string       `json:"run_id"`
	TrainedAt        time.Time    `json:"trained_at"`
	FeaturesChecksum string       `json:"features_checksum"`
	Model            *boost.Model `json:"model"`
}

// checksum returns the hex SHA-256 of the canonical JSON encoding of the
// feature list.
func checksum(features []string) (string, error) {
	raw, err := json.Marshal(features)
	if err != nil {
		return "", fmt.Errorf("failed to encode feature list: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// writeAtomic writes data to path via a temp file in the same directory and
// a rename, so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", tmp.Name(), err)
	}
	return nil
}

// Save writes the bundle into dir, creating it if needed. The feature list
// checksum is embedded in the model file so Load can verify the pair.
func Save(dir string, b *Bundle) error {
	if b.RunID == "" {
		return errors.New("bundle has no run id")
	}
	if b.Model == nil {
		return errors.New("bundle has no model")
	}
	if err := b.Model.Validate(); err != nil {
		return fmt.Errorf("invalid model: %w", err)
	}
	if len(b.Features) != b.Model.NumFeatures {
		return fmt.Errorf("%w: %d features for a model expecting %d",
			ErrPairMismatch, len(b.Features), b.Model.NumFeatures)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}

	sum, err := checksum(b.Features)
	if err != nil {
		return err
	}

	featuresRaw, err := json.MarshalIndent(featuresDoc{
		RunID:    b.RunID,
		Features: b.Features,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode features file: %w", err)
	}
	modelRaw, err := json.MarshalIndent(modelDoc{
		RunID:            b.RunID,
		TrainedAt:        b.TrainedAt,
		FeaturesChecksum: sum,
		Model:            b.Model,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model file: %w", err)
	}

	if err := writeAtomic(filepath.Join(dir, FeaturesFile), featuresRaw); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, ModelFile), modelRaw)
}

func readDoc(dir, name string, out any) error {
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, filepath.Join(dir, name))
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// Load reads the artifact pair from dir and verifies the two files belong
// together before returning the bundle.
func Load(dir string) (*Bundle, error) {
	var model modelDoc
	if err := readDoc(dir, ModelFile, &model); err != nil {
		return nil, err
	}
	var flist featuresDoc
	if err := readDoc(dir, FeaturesFile, &flist); err != nil {
		return nil, err
	}

	if model.RunID != flist.RunID {
		return nil, fmt.Errorf("%w: model run %q, features run %q",
			ErrPairMismatch, model.RunID, flist.RunID)
	}
	sum, err := checksum(flist.Features)
	if err != nil {
		return nil, err
	}
	if sum != model.FeaturesChecksum {
		return nil, fmt.Errorf("%w: feature list checksum changed since training", ErrPairMismatch)
	}
	if model.Model == nil {
		return nil, fmt.Errorf("model file %s has no model", ModelFile)
	}
	if len(flist.Features) != model.Model.NumFeatures {
		return nil, fmt.Errorf("%w: %d features for a model expecting %d",
			ErrPairMismatch, len(flist.Features), model.Model.NumFeatures)
	}
	// The list must still parse as the encoder's layout, so a duplicated or
	// reshuffled name is caught here instead of on the first scoring request.
	if _, err := features.FromNames(flist.Features); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPairMismatch, err)
	}
	if err := model.Model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}

	return &Bundle{
		RunID:     model.RunID,
		TrainedAt: model.TrainedAt,
		Model:     model.Model,
		Features:  flist.Features,
	}, nil
}
