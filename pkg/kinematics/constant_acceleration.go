package kinematics

import "math"

// ConstantAcceleration accelerates and brakes with the same fixed rate.
type ConstantAcceleration struct {
	Rate float64 `json:"rate"` // units/s², used for traction and braking
}

func NewConstantAcceleration(rate float64) ConstantAcceleration {
	return ConstantAcceleration{Rate: rate}
}

// StoppingDistance is v²/(2a). A non-positive rate can never stop the
// train, so the distance is infinite.
func (c ConstantAcceleration) StoppingDistance(v float64) float64 {
	if c.Rate <= 0 {
		return math.Inf(1)
	}
	return (v * v) / (2 * c.Rate)
}

// BrakingDistanceTo is |v²-targetV²|/(2a).
func (c ConstantAcceleration) BrakingDistanceTo(v, targetV float64) float64 {
	if c.Rate <= 0 {
		return math.Inf(1)
	}
	return math.Abs(v*v-targetV*targetV) / (2 * c.Rate)
}

func (c ConstantAcceleration) Accelerate(v, ceiling, dt float64) float64 {
	if c.Rate <= 0 || v >= ceiling {
		return v
	}
	return math.Min(v+c.Rate*dt, ceiling)
}

func (c ConstantAcceleration) Decelerate(v, floor, dt float64) float64 {
	if c.Rate <= 0 || v <= floor {
		return v
	}
	return math.Max(floor, v-c.Rate*dt)
}
