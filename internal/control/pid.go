package control

import "github.com/samber/lo"

// Steering PID gains and integral bound for the line follower.
const (
	DefaultKp            = 0.25
	DefaultKi            = 0.006
	DefaultKd            = 2.0
	DefaultIntegralLimit = 30.0
)

// PIDConfig holds the gains of a PID controller.
type PIDConfig struct {
	Kp            float64
	Ki            float64
	Kd            float64
	IntegralLimit float64
}

// DefaultPIDConfig returns the steering gains.
func DefaultPIDConfig() PIDConfig {
	return PIDConfig{
		Kp:            DefaultKp,
		Ki:            DefaultKi,
		Kd:            DefaultKd,
		IntegralLimit: DefaultIntegralLimit,
	}
}

// PID is a discrete controller over a per-tick error signal. The derivative
// term is the raw difference between consecutive samples.
//
// After Reset, the next Update seeds the previous error with its input and
// zeroes the integral, so the derivative contribution of that call is zero.
type PID struct {
	cfg       PIDConfig
	prevError float64
	integral  float64
	needReset bool
}

// NewPID creates a controller that is reset on first use.
func NewPID(cfg PIDConfig) *PID {
	return &PID{cfg: cfg, needReset: true}
}

// Update feeds one error sample and returns the control output.
func (p *PID) Update(value float64) float64 {
	if p.needReset {
		p.prevError = value
		p.integral = 0
		p.needReset = false
	}
	diff := value - p.prevError
	p.integral = lo.Clamp(p.integral+value, -p.cfg.IntegralLimit, p.cfg.IntegralLimit)
	p.prevError = value
	return p.cfg.Kp*value + p.cfg.Ki*p.integral + p.cfg.Kd*diff
}

// Reset arms the controller to re-seed on the next Update.
func (p *PID) Reset() {
	p.needReset = true
}

// Integral returns the accumulated integral term.
func (p *PID) Integral() float64 {
	return p.integral
}
