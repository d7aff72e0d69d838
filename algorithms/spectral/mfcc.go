package spectral

import (
	"fmt"
	"math"
)

// DefaultMFCCCoefficients is the number of cepstral coefficients computed per frame
const DefaultMFCCCoefficients = 13

// logFloor keeps log(mel) finite for silent bands
const logFloor = 1e-10

// MFCC computes Mel-Frequency Cepstral Coefficients from mel band energies
// with an orthonormal DCT-II. No liftering is applied.
type MFCC struct {
	numCoefficients int
	numMelFilters   int
	dctMatrix       [][]float64

	logMel []float64
	output []float64
}

// NewMFCC creates a new MFCC stage for numMelFilters input bands.
func NewMFCC(numMelFilters, numCoefficients int) *MFCC {
	if numMelFilters <= 0 || numCoefficients <= 0 {
		panic(fmt.Sprintf("spectral: invalid MFCC shape %d bands, %d coefficients", numMelFilters, numCoefficients))
	}

	mfcc := &MFCC{
		numCoefficients: numCoefficients,
		numMelFilters:   numMelFilters,
		logMel:          make([]float64, numMelFilters),
		output:          make([]float64, numCoefficients),
	}
	mfcc.createDCTMatrix()

	return mfcc
}

// Process computes coefficients from mel band energies. The returned slice
// is overwritten by the next call.
func (mfcc *MFCC) Process(melSpectrum []float64) []float64 {
	for i, mel := range melSpectrum {
		mfcc.logMel[i] = math.Log(math.Max(mel, logFloor))
	}

	for k := range mfcc.numCoefficients {
		sum := 0.0
		for n, v := range mfcc.logMel {
			sum += v * mfcc.dctMatrix[k][n]
		}
		mfcc.output[k] = sum
	}

	return mfcc.output
}

// Output returns the coefficients computed by the last Process call
func (mfcc *MFCC) Output() []float64 {
	return mfcc.output
}

// createDCTMatrix creates the Discrete Cosine Transform matrix
func (mfcc *MFCC) createDCTMatrix() {
	mfcc.dctMatrix = make([][]float64, mfcc.numCoefficients)

	for k := 0; k < mfcc.numCoefficients; k++ {
		mfcc.dctMatrix[k] = make([]float64, mfcc.numMelFilters)

		for n := 0; n < mfcc.numMelFilters; n++ {
			// DCT-II formula
			mfcc.dctMatrix[k][n] = math.Cos(math.Pi * float64(k) * (float64(n) + 0.5) / float64(mfcc.numMelFilters))

			// Normalization
			if k == 0 {
				mfcc.dctMatrix[k][n] *= math.Sqrt(1.0 / float64(mfcc.numMelFilters))
			} else {
				mfcc.dctMatrix[k][n] *= math.Sqrt(2.0 / float64(mfcc.numMelFilters))
			}
		}
	}
}
