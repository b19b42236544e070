package preprocess

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"heart-risk-workers/internal/common/errors"
)

// Write encodes the transform as indented JSON.
func (t *Transform) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// SaveFile writes the transform artifact to path.
func (t *Transform) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create transform artifact: %w", err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write transform artifact: %w", err)
	}
	return f.Close()
}

// Read decodes and checks a transform artifact.
func Read(r io.Reader) (*Transform, error) {
	var t Transform
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, errors.NewInvalidArtifactError("transform", err.Error())
	}
	if err := t.Check(); err != nil {
		return nil, errors.NewInvalidArtifactError("transform", err.Error())
	}
	return &t, nil
}

// LoadFile reads the transform artifact at path. An absent or unreadable
// file is MISSING_ARTIFACT, a malformed one INVALID_ARTIFACT.
func LoadFile(path string) (*Transform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewMissingArtifactError("transform", path, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		if std := errors.AsStandardError(err); std != nil {
			std.WithMetadata("path", path)
		}
		return nil, err
	}
	return t, nil
}
