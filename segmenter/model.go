package segmenter

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidModel is wrapped by every model validation failure.
var ErrInvalidModel = errors.New("invalid classifier model")

// Model holds multinomial logistic regression parameters over the
// OutputFeatures vector. Features are standardised with Mean and Scale
// before the per-class weights apply.
type Model struct {
	Name    string      `json:"name,omitempty" yaml:"name,omitempty"`
	Classes []string    `json:"classes" yaml:"classes"`
	Mean    []float64   `json:"mean" yaml:"mean"`
	Scale   []float64   `json:"scale" yaml:"scale"`
	Weights [][]float64 `json:"weights" yaml:"weights"`
	Bias    []float64   `json:"bias" yaml:"bias"`
}

// LoadModel reads and validates a YAML (or JSON) model file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	return ParseModel(data)
}

// ParseModel decodes and validates a model document.
func ParseModel(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks shapes and values
func (m *Model) Validate() error {
	k := len(m.Classes)
	if k < 2 {
		return fmt.Errorf("%w: need at least 2 classes, got %d", ErrInvalidModel, k)
	}
	if len(m.Mean) != FeatureCount {
		return fmt.Errorf("%w: mean has %d values, want %d", ErrInvalidModel, len(m.Mean), FeatureCount)
	}
	if len(m.Scale) != FeatureCount {
		return fmt.Errorf("%w: scale has %d values, want %d", ErrInvalidModel, len(m.Scale), FeatureCount)
	}
	if len(m.Weights) != k {
		return fmt.Errorf("%w: %d weight rows for %d classes", ErrInvalidModel, len(m.Weights), k)
	}
	if len(m.Bias) != k {
		return fmt.Errorf("%w: %d biases for %d classes", ErrInvalidModel, len(m.Bias), k)
	}

	for i, s := range m.Scale {
		if !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: scale of %s must be positive and finite, got %g", ErrInvalidModel, FeatureNames[i], s)
		}
	}
	if err := checkFinite("mean", m.Mean); err != nil {
		return err
	}
	if err := checkFinite("bias", m.Bias); err != nil {
		return err
	}
	for c, row := range m.Weights {
		if len(row) != FeatureCount {
			return fmt.Errorf("%w: weights for class %q have %d values, want %d",
				ErrInvalidModel, m.Classes[c], len(row), FeatureCount)
		}
		if err := checkFinite("weights of "+m.Classes[c], row); err != nil {
			return err
		}
	}

	return nil
}

func checkFinite(what string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s[%d] is not finite", ErrInvalidModel, what, i)
		}
	}
	return nil
}

// DefaultModel returns coarse hand-set parameters ordering the classes from
// speech (0) through singing to instrumental music (1). Speech shows high
// energy flux and fast-moving spectral envelopes; sustained instrumental
// music shows neither. Values follow FeatureNames order.
func DefaultModel() *Model {
	return &Model{
		Name:    "default",
		Classes: []string{"speech", "singing", "instrumental"},
		Mean:    []float64{0.60, 4.0, 3.0, 2.0, 0.002, 0.30, 0.20, 0.15, 0.50},
		Scale:   []float64{0.15, 4.0, 3.0, 2.0, 0.002, 0.30, 0.20, 0.15, 0.50},
		Weights: [][]float64{
			{0.8, 0.5, 0.3, 0.2, 0.8, 0.6, 0.4, 0.3, 1.2},
			{-0.4, 0.2, 0.1, 0.1, 0.0, 0.0, 0.0, 0.0, 0.2},
			{-0.8, -0.5, -0.3, -0.2, -0.8, -0.6, -0.4, -0.3, -1.2},
		},
		Bias: []float64{0.0, 0.2, 0.0},
	}
}
