package pages

import (
	"errors"
	"fmt"

	"github.com/htried/taxi-diff-privacy/tdp"
)

var ErrUnknownPage = errors.New("unknown page")

// Names of the pages, in menu order.
var Names = []string{"density", "hours", "income", "pickups", "chord", "white", "celebrity", "strip"}

// Pages holds every controller of the demo.
type Pages struct {
	Density   *Density
	Hours     *Hours
	Income    *Income
	Pickups   *Pickups
	Chord     *Chord
	White     *White
	Celebrity *Celebrity
	Strip     *Strip
}

// New builds every page over ds. The hours, income, chord and white pages use
// the built-in data.
func New(ds *tdp.Datasets) (*Pages, error) {
	chord, err := NewChord(tdp.Neighborhoods, tdp.NeighborhoodTrips)
	if err != nil {
		return nil, err
	}
	return &Pages{
		Density:   NewDensity(ds.Samples),
		Hours:     NewHours(),
		Income:    NewIncome(),
		Pickups:   NewPickups(ds.PickupsAll, ds.PickupsDriver),
		Chord:     chord,
		White:     NewWhite(),
		Celebrity: NewCelebrity(ds.Celebrity),
		Strip:     NewStrip(tdp.Dropoffs(ds.Strip)),
	}, nil
}

// Refresh runs the named page against st.
func (p *Pages) Refresh(name string, st *State) (interface{}, error) {
	switch name {
	case "density":
		return p.Density.Refresh(st)
	case "hours":
		return p.Hours.Refresh(st)
	case "income":
		return p.Income.Refresh(st)
	case "pickups":
		return p.Pickups.Refresh(st)
	case "chord":
		return p.Chord.Refresh(st)
	case "white":
		return p.White.Refresh(st)
	case "celebrity":
		return p.Celebrity.Refresh(st)
	case "strip":
		return p.Strip.Refresh(st)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPage, name)
}

// Raw returns the non-private view of the pages that have one.
func (p *Pages) Raw(name string) (interface{}, error) {
	switch name {
	case "celebrity":
		return p.Celebrity.Raw(), nil
	case "strip":
		return p.Strip.Raw(), nil
	}
	return nil, fmt.Errorf("%w: %q has no raw view", ErrUnknownPage, name)
}
