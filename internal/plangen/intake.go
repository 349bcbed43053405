// Package plangen generates a plan from an intake file and renders it for
// the terminal. It backs the plan-gen command.
package plangen

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/fairway/internal/domain/model"
)

// ErrIntakeFile marks an intake file that cannot be read or decoded.
var ErrIntakeFile = errors.New("intake file")

// LoadIntake decodes a YAML intake. Unknown keys are rejected.
func LoadIntake(r io.Reader) (*model.PlayerIntake, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var in model.PlayerIntake
	if err := dec.Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrIntakeFile)
		}
		return nil, fmt.Errorf("%w: %v", ErrIntakeFile, err)
	}
	return &in, nil
}

// LoadIntakeFile reads the intake at path. "-" reads stdin.
func LoadIntakeFile(path string) (*model.PlayerIntake, error) {
	if path == "-" {
		return LoadIntake(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntakeFile, err)
	}
	defer f.Close()
	return LoadIntake(f)
}
