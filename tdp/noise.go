// random variate generators used by every page: Laplace noise for the privacy
// mechanism, normal and exponential draws for the synthetic density samples.

package tdp

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/differential-privacy/go/v3/noise"
	dprand "github.com/google/differential-privacy/go/v3/rand"
)

var (
	ErrInvalidEpsilon     = errors.New("epsilon must be a positive finite number")
	ErrInvalidSensitivity = errors.New("sensitivity must be a positive finite number")
	ErrInvalidParameter   = errors.New("invalid distribution parameter")
)

// Source produces uniform draws on [0,1). *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// secureSource draws from the crypto-backed uniform of the DP library
type secureSource struct{}

// rand.Uniform is on (0,1], flip it onto [0,1)
func (secureSource) Float64() float64 {
	return 1 - dprand.Uniform()
}

// SecureSource returns the cryptographically secure uniform source.
func SecureSource() Source {
	return secureSource{}
}

// Mechanism selects how Laplace noise is drawn.
type Mechanism string

const (
	// InverseCDF draws Laplace noise by inverse transform of one uniform draw.
	InverseCDF Mechanism = "inverse-cdf"
	// Secure delegates to the snapping-safe Laplace mechanism of the DP library.
	Secure Mechanism = "secure"
)

// ParseMechanism maps a config string onto a Mechanism.
func ParseMechanism(s string) (Mechanism, error) {
	switch Mechanism(s) {
	case "", InverseCDF:
		return InverseCDF, nil
	case Secure:
		return Secure, nil
	}
	return "", fmt.Errorf("unknown noise mechanism %q", s)
}

// Generator draws random variates from a Source. A Generator is not safe for
// concurrent use unless its Source is.
type Generator struct {
	src  Source
	mech Mechanism
}

// NewGenerator builds a generator on top of src. A nil src uses SecureSource.
func NewGenerator(src Source, mech Mechanism) *Generator {
	if src == nil {
		src = SecureSource()
	}
	if mech == "" {
		mech = InverseCDF
	}
	return &Generator{src: src, mech: mech}
}

// DefaultGenerator is the secure source with inverse-CDF Laplace noise.
func DefaultGenerator() *Generator {
	return NewGenerator(SecureSource(), InverseCDF)
}

// Mechanism reports the Laplace mechanism in use.
func (g *Generator) Mechanism() Mechanism {
	return g.mech
}

// checks shared by every noise draw, before any randomness is consumed
func validateNoiseParams(sensitivity, epsilon float64) error {
	if math.IsNaN(epsilon) || math.IsInf(epsilon, 0) || epsilon <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidEpsilon, epsilon)
	}
	if math.IsNaN(sensitivity) || math.IsInf(sensitivity, 0) || sensitivity <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidSensitivity, sensitivity)
	}
	return nil
}

// Laplace returns one sample from a zero-centred Laplace distribution with
// scale sensitivity/epsilon.
func (g *Generator) Laplace(sensitivity, epsilon float64) (float64, error) {
	if err := validateNoiseParams(sensitivity, epsilon); err != nil {
		return 0, err
	}
	if g.mech == Secure {
		// L0 of one: each page query touches a single partition
		v, err := noise.Laplace().AddNoiseFloat64(0, 1, sensitivity, epsilon, 0)
		if err != nil {
			// sensitivity passed the checks above, so the library objects to epsilon
			return 0, fmt.Errorf("%w: %v", ErrInvalidEpsilon, err)
		}
		return v, nil
	}

	b := sensitivity / epsilon
	u := 0.5 - g.src.Float64()
	// a zero draw puts u on the open boundary
	for u == 0.5 {
		u = 0.5 - g.src.Float64()
	}
	if u < 0 {
		return b * math.Log(1+2*u), nil
	}
	return -b * math.Log(1-2*u), nil
}

// Normal samples N(mean, variance) with the polar Box-Muller method.
func (g *Generator) Normal(mean, variance float64) (float64, error) {
	if math.IsNaN(variance) || variance < 0 {
		return 0, fmt.Errorf("%w: variance %v", ErrInvalidParameter, variance)
	}
	var u1, s float64
	for {
		u1 = 2*g.src.Float64() - 1
		u2 := 2*g.src.Float64() - 1
		s = u1*u1 + u2*u2
		if s > 0 && s < 1 {
			break
		}
	}
	c := math.Sqrt(-2*math.Log(s)/s) * u1
	return mean + math.Sqrt(variance)*c, nil
}

// StdNormal samples N(0, 1).
func (g *Generator) StdNormal() float64 {
	v, _ := g.Normal(0, 1)
	return v
}

// Exponential samples an exponential variate with rate lambda.
func (g *Generator) Exponential(lambda float64) (float64, error) {
	if math.IsNaN(lambda) || math.IsInf(lambda, 0) || lambda <= 0 {
		return 0, fmt.Errorf("%w: rate %v", ErrInvalidParameter, lambda)
	}
	r := g.src.Float64()
	for r == 0 {
		r = g.src.Float64()
	}
	return -math.Log(r) / lambda, nil
}

// Uniform samples U[0,1).
func (g *Generator) Uniform() float64 {
	return g.src.Float64()
}
