package nlp

import "fmt"

// Family identifies one penalty kind of the objective.
type Family int

const (
	FamilyWirelength Family = iota
	FamilyOverlap
	FamilyBoundary
	FamilyAsymmetry
	FamilyCosine

	numFamilies
)

// Families lists every family in evaluation order.
var Families = [numFamilies]Family{
	FamilyWirelength, FamilyOverlap, FamilyBoundary, FamilyAsymmetry, FamilyCosine,
}

var familyNames = [numFamilies]string{"hpwl", "ovl", "oob", "asym", "cos"}

func (f Family) String() string {
	if f < 0 || f >= numFamilies {
		return fmt.Sprintf("Family(%d)", int(f))
	}
	return familyNames[f]
}

// ParseFamily returns the family with the given short name.
func ParseFamily(s string) (Family, bool) {
	for f, name := range familyNames {
		if name == s {
			return Family(f), true
		}
	}
	return 0, false
}

// Weights is the shared hyperparameter context read by every operator:
// the log-sum-exp/ramp smoothing coefficient and one multiplier per family.
//
// The kernel changes weights only between evaluation passes, so operators
// read them without synchronization.
type Weights struct {
	alpha  float64
	lambda [numFamilies]float64
}

// NewWeights returns weights with the given alpha and every lambda at 1.
func NewWeights(alpha float64) *Weights {
	w := &Weights{alpha: alpha}
	for i := range w.lambda {
		w.lambda[i] = 1
	}
	return w
}

func (w *Weights) Alpha() float64                { return w.alpha }
func (w *Weights) SetAlpha(a float64)            { w.alpha = a }
func (w *Weights) Lambda(f Family) float64       { return w.lambda[f] }
func (w *Weights) SetLambda(f Family, v float64) { w.lambda[f] = v }
