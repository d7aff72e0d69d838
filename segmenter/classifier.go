package segmenter

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Classifier maps OutputFeatures to a probability distribution over the
// model's classes.
type Classifier struct {
	model *Model

	z      []float64
	logits []float64
	probs  []float64
}

// NewClassifier validates the model and prepares scratch buffers. The model
// must not be modified afterwards.
func NewClassifier(model *Model) (*Classifier, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}

	k := len(model.Classes)
	return &Classifier{
		model:  model,
		z:      make([]float64, FeatureCount),
		logits: make([]float64, k),
		probs:  make([]float64, k),
	}, nil
}

// Process classifies one window. The returned distribution is overwritten by
// the next call.
func (c *Classifier) Process(features OutputFeatures) []float64 {
	x := features.Vector()
	for i := range c.z {
		c.z[i] = (x[i] - c.model.Mean[i]) / c.model.Scale[i]
	}

	for k, w := range c.model.Weights {
		c.logits[k] = floats.Dot(w, c.z) + c.model.Bias[k]
	}

	softmax(c.probs, c.logits)
	return c.probs
}

// Probabilities returns the distribution computed by the last Process call
func (c *Classifier) Probabilities() []float64 {
	return c.probs
}

// Classes returns the class labels in index order
func (c *Classifier) Classes() []string {
	return c.model.Classes
}

// Reduce collapses a distribution over K ordered classes into the expected
// class index scaled to [0,1]: sum(p_i * i) / (K-1).
func Reduce(probs []float64) float64 {
	if len(probs) < 2 {
		return 0
	}

	sum := 0.0
	for i, p := range probs {
		sum += p * float64(i)
	}
	return sum / float64(len(probs)-1)
}

// softmax writes a numerically stable softmax of logits into dst
func softmax(dst, logits []float64) {
	peak := floats.Max(logits)
	for i, l := range logits {
		dst[i] = math.Exp(l - peak)
	}
	floats.Scale(1/floats.Sum(dst), dst)
}
