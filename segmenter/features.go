package segmenter

// FrameFeatureVector holds the per-frame measures consumed by Statistics.
// MFCC2..MFCC4 are the second to fourth cepstral coefficients; the DC
// coefficient is not used.
type FrameFeatureVector struct {
	Energy           float64 `json:"energy"`
	Entropy          float64 `json:"entropy"`
	MFCC2            float64 `json:"mfcc2"`
	MFCC3            float64 `json:"mfcc3"`
	MFCC4            float64 `json:"mfcc4"`
	PitchDensity     float64 `json:"pitch_density"`
	Tonality         float64 `json:"tonality"`
	Tonality1        float64 `json:"tonality1"`
	FourHzModulation float64 `json:"four_hz_modulation"`
}

// DeltaFeature is the regression slope of the delta-tracked measures around
// one frame.
type DeltaFeature struct {
	Entropy float64 `json:"entropy"`
	MFCC2   float64 `json:"mfcc2"`
	MFCC3   float64 `json:"mfcc3"`
	MFCC4   float64 `json:"mfcc4"`
}

// FeatureCount is the length of an OutputFeatures vector
const FeatureCount = 9

// OutputFeatures summarises one statistics window
type OutputFeatures struct {
	EntropyMean     float64 `json:"entropy_mean" yaml:"entropy_mean"`
	MFCC2Var        float64 `json:"mfcc2_var" yaml:"mfcc2_var"`
	MFCC3Var        float64 `json:"mfcc3_var" yaml:"mfcc3_var"`
	MFCC4Var        float64 `json:"mfcc4_var" yaml:"mfcc4_var"`
	DeltaEntropyVar float64 `json:"delta_entropy_var" yaml:"delta_entropy_var"`
	DeltaMFCC2Var   float64 `json:"delta_mfcc2_var" yaml:"delta_mfcc2_var"`
	DeltaMFCC3Var   float64 `json:"delta_mfcc3_var" yaml:"delta_mfcc3_var"`
	DeltaMFCC4Var   float64 `json:"delta_mfcc4_var" yaml:"delta_mfcc4_var"`
	EnergyFlux      float64 `json:"energy_flux" yaml:"energy_flux"`
}

// FeatureNames lists the OutputFeatures fields in Vector order
var FeatureNames = [FeatureCount]string{
	"entropy_mean",
	"mfcc2_var",
	"mfcc3_var",
	"mfcc4_var",
	"delta_entropy_var",
	"delta_mfcc2_var",
	"delta_mfcc3_var",
	"delta_mfcc4_var",
	"energy_flux",
}

// Vector returns the features in classifier input order
func (o OutputFeatures) Vector() [FeatureCount]float64 {
	return [FeatureCount]float64{
		o.EntropyMean,
		o.MFCC2Var,
		o.MFCC3Var,
		o.MFCC4Var,
		o.DeltaEntropyVar,
		o.DeltaMFCC2Var,
		o.DeltaMFCC3Var,
		o.DeltaMFCC4Var,
		o.EnergyFlux,
	}
}

// ClassificationPoint is one sample of the decision curve. Value lies in
// [0,1] and interpolates between the model's class indices.
type ClassificationPoint struct {
	Timestamp     float64   `json:"timestamp" yaml:"timestamp"`
	Value         float64   `json:"value" yaml:"value"`
	Probabilities []float64 `json:"probabilities,omitempty" yaml:"probabilities,omitempty"`
}
