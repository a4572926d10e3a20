// Functions for the validation of inputs from an end user

package tdp

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// MinEpsilon and MaxEpsilon are the ends of the privacy budget slider. Below
// MinEpsilon the noise scale, and with it the density page's pseudo-sample,
// grows without bound.
const (
	MinEpsilon = 0.01
	MaxEpsilon = 10
)

// largest grid the map pages will build
const maxSideLength = 200

// ValidationError is returned for query parameters that cannot be used. It is
// raised before any noise is drawn.
type ValidationError struct {
	Param string
	Value string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Param, e.Value, e.Msg)
}

type PageVars struct {
	Epsilon    float64
	Alpha      float64
	PropWithin float64
	SideLength int
	Dist       string
	// Resample redraws a synthetic density sample instead of reusing it.
	Resample bool
}

// DefaultPageVars are used for every parameter a request leaves out.
func DefaultPageVars() PageVars {
	return PageVars{
		Epsilon:    1,
		Alpha:      0.5,
		PropWithin: 0.25,
		SideLength: 40,
		Dist:       "n01",
	}
}

// validation of epsilon value
func ValidateEpsilon(epsilon float64) bool {
	// make sure that epsilon is a number, isn't inf, and is on the slider
	return !math.IsInf(epsilon, 0) && !math.IsNaN(epsilon) && epsilon >= MinEpsilon && epsilon <= MaxEpsilon
}

// validation of alpha value
func validateAlpha(alpha float64) bool {
	return alpha > 0 && alpha < 1
}

// validation of prop within value
func validatePropWithin(propWithin float64) bool {
	return propWithin > 0 && propWithin < 1
}

// validation of grid side length
func validateSideLength(side int) bool {
	return side > 0 && side <= maxSideLength
}

// validation of the sample name: letters, digits, dash and underscore only
func validateDist(dist string) bool {
	if dist == "" || len(dist) > 64 {
		return false
	}
	for _, r := range dist {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

func parseFloat(request map[string][]string, param string, valid func(float64) bool, msg string) (float64, bool, error) {
	vals, ok := request[param]
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(vals[0], 64)
	if err != nil {
		return 0, false, &ValidationError{Param: param, Value: vals[0], Msg: "not a number"}
	}
	if !valid(f) {
		return 0, false, &ValidationError{Param: param, Value: vals[0], Msg: msg}
	}
	return f, true, nil
}

// compose all previous validation functions to validate all inputs
func ValidateApiArgs(r *http.Request) (PageVars, error) {
	request := r.URL.Query()
	pvs := DefaultPageVars()

	f, ok, err := parseFloat(request, "eps", ValidateEpsilon, fmt.Sprintf("must be in [%g, %d]", MinEpsilon, MaxEpsilon))
	if err != nil {
		return pvs, err
	}
	if ok {
		pvs.Epsilon = f
	}

	f, ok, err = parseFloat(request, "alpha", validateAlpha, "must be in (0, 1)")
	if err != nil {
		return pvs, err
	}
	if ok {
		pvs.Alpha = f
	}

	f, ok, err = parseFloat(request, "propWithin", validatePropWithin, "must be in (0, 1)")
	if err != nil {
		return pvs, err
	}
	if ok {
		pvs.PropWithin = f
	}

	if vals, ok := request["side"]; ok {
		i, err := strconv.Atoi(vals[0])
		if err != nil {
			return pvs, &ValidationError{Param: "side", Value: vals[0], Msg: "not an integer"}
		}
		if !validateSideLength(i) {
			return pvs, &ValidationError{Param: "side", Value: vals[0], Msg: fmt.Sprintf("must be in [1, %d]", maxSideLength)}
		}
		pvs.SideLength = i
	}

	if vals, ok := request["dist"]; ok {
		d := strings.ToLower(vals[0])
		if !validateDist(d) {
			return pvs, &ValidationError{Param: "dist", Value: vals[0], Msg: "not a sample name"}
		}
		pvs.Dist = d
	}

	if vals, ok := request["resample"]; ok {
		b, err := strconv.ParseBool(vals[0])
		if err != nil {
			return pvs, &ValidationError{Param: "resample", Value: vals[0], Msg: "not a boolean"}
		}
		pvs.Resample = b
	}

	return pvs, nil
}
