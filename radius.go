package roadplan

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Radius is signed radius of an arc.
//
// Infinite radius means straight segment. For finite radius the sign encodes turn side:
// positive radius places the center on the left of source->target chord (counter-clockwise sweep),
// negative radius places it on the right (clockwise sweep).
type Radius struct {
	value  float64
	finite bool
}

// Infinite returns radius of straight segment
func Infinite() Radius {
	return Radius{}
}

// Finite returns radius of circular arc. Zero, NaN and infinite values are rejected
func Finite(r float64) (Radius, error) {
	if r == 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return Radius{}, errors.Wrapf(ErrInvalidRadius, "value %v", r)
	}
	return Radius{value: r, finite: true}, nil
}

// MustFinite is like Finite but panics on invalid value. Handy for literals
func MustFinite(r float64) Radius {
	radius, err := Finite(r)
	if err != nil {
		panic(err)
	}
	return radius
}

// ParseRadius converts value from external storage into Radius.
//
// "inf", "+inf", "infinity" (any case), empty string and zero mean straight segment
func ParseRadius(s string) (Radius, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "inf", "+inf", "infinity", "+infinity":
		return Infinite(), nil
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Radius{}, errors.Wrapf(ErrInvalidRadius, "Can't parse '%s'", s)
	}
	if math.IsInf(value, 0) || value == 0 {
		return Infinite(), nil
	}
	return Finite(value)
}

// IsInfinite returns true for straight segments
func (r Radius) IsInfinite() bool {
	return !r.finite
}

// Value returns signed radius. Returns +Inf for straight segments
func (r Radius) Value() float64 {
	if !r.finite {
		return math.Inf(1)
	}
	return r.value
}

// Abs returns magnitude of radius
func (r Radius) Abs() float64 {
	return math.Abs(r.Value())
}

// Reversed returns radius describing the same geometry traversed in opposite direction
func (r Radius) Reversed() Radius {
	if !r.finite {
		return r
	}
	return Radius{value: -r.value, finite: true}
}

// String returns "inf" for straight segments and the signed value otherwise
func (r Radius) String() string {
	if !r.finite {
		return "inf"
	}
	return strconv.FormatFloat(r.value, 'f', -1, 64)
}

// GoString is used by %#v
func (r Radius) GoString() string {
	if !r.finite {
		return "roadplan.Infinite()"
	}
	return fmt.Sprintf("roadplan.MustFinite(%v)", r.value)
}
