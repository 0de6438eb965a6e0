package sim

import "math"

// Motion implements longitudinal dynamics with fixed acceleration and
// deceleration rates.
type Motion struct {
	AAcc   float64 // traction acceleration, m/s²
	ADcc   float64 // deceleration towards a lower cruising speed, m/s²
	ABrake float64 // deceleration at full brake intensity, m/s²
	VMax   float64 // m/s
}

func DefaultMotion() Motion {
	return Motion{AAcc: 3, ADcc: 4, ABrake: 9, VMax: 100 / 3.6}
}

// Step advances speed v towards targetV over dt. A positive brake intensity
// overrides the cruising target and decelerates towards standstill. It returns
// the distance covered and the new speed.
func (m Motion) Step(v, targetV, brake, dt float64) (float64, float64) {
	targetV = math.Min(math.Max(targetV, 0), m.VMax)
	if brake > 0 {
		return decelerateStep(v, 0, m.ABrake*math.Min(brake, 1), dt)
	}
	if v < targetV {
		return accelerateStep(v, targetV, m.AAcc, dt)
	}
	return decelerateStep(v, targetV, m.ADcc, dt)
}

func accelerateStep(v, targetV, a, dt float64) (float64, float64) {
	if a <= 0 || v >= targetV {
		return targetV * dt, targetV
	}
	tToTarget := (targetV - v) / a
	if tToTarget <= dt {
		// Reaches targetV mid-step: accelerate, then cruise for the remainder.
		s1 := v*tToTarget + 0.5*a*tToTarget*tToTarget
		s2 := targetV * (dt - tToTarget)
		return s1 + s2, targetV
	}
	return v*dt + 0.5*a*dt*dt, v + a*dt
}

func decelerateStep(v, targetV, a, dt float64) (float64, float64) {
	if a <= 0 || v <= targetV {
		return targetV * dt, targetV
	}
	tToTarget := (v - targetV) / a
	if tToTarget <= dt {
		s1 := v*tToTarget - 0.5*a*tToTarget*tToTarget
		s2 := targetV * (dt - tToTarget)
		return math.Max(0, s1) + s2, targetV
	}
	return math.Max(0, v*dt-0.5*a*dt*dt), v - a*dt
}
