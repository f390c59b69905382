// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package aging turns a core's stress into lifetimes and reliability decay.
//
// The simulator only depends on the Model, Thermal and Source interfaces.
// WeibullModel, CoupledThermal and SplitMix are the defaults wired by the
// CLI; none of them claim to be a validated physical model.
//
// # Weibull Model
//
// A core's reliability R is stored as exp(-D) where D is the accumulated
// Weibull damage. Under a constant stress the scale parameter alpha follows
// Black's equation with an Arrhenius temperature term:
//
//	alpha = Alpha0 * max(load*voltage, MinCurrent)^(-N) * exp(Ea/k * (1/T - 1/Tref))
//
// The core's equivalent age under the current stress is t0 = alpha*D^(1/beta).
// A remaining lifetime is drawn from the Weibull distribution conditioned on
// survival to t0, and aging by dt moves the core to age t0+dt.
package aging

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// BoltzmannEV is the Boltzmann constant in eV/K.
const BoltzmannEV = 8.617333262e-5

// ErrInvalidParameters indicates a model parameter out of its domain.
var ErrInvalidParameters = errors.New("invalid aging model parameters")

var modelValidate = validator.New()

// Stress is the operating point of one core during one step.
type Stress struct {
	// Temperature in kelvin.
	Temperature float64

	// Load is the core's share of the workload.
	Load float64

	// Voltage is the supply voltage.
	Voltage float64
}

// Model maps stress and accumulated damage to lifetimes.
//
// Thread Safety: Implementations must be safe for concurrent use. The
// dynamic variant calls them from several goroutines at once.
type Model interface {
	// Lifetime returns the remaining time to failure of a core with the
	// given reliability, using u in [0,1) as the random draw.
	Lifetime(s Stress, reliability, u float64) float64

	// Age returns the reliability after running dt more time units under s.
	Age(s Stress, reliability, dt float64) float64
}

// WeibullModel is the default Model: Black's equation for the scale and a
// conditional Weibull draw for the lifetime.
type WeibullModel struct {
	// Alpha0 is the scale at unit current and reference temperature.
	Alpha0 float64 `yaml:"alpha0" validate:"gt=0"`

	// Beta is the Weibull shape.
	Beta float64 `yaml:"beta" validate:"gt=0"`

	// ActivationEnergy in eV.
	ActivationEnergy float64 `yaml:"activation_energy" validate:"gte=0"`

	// CurrentExponent is Black's exponent N.
	CurrentExponent float64 `yaml:"current_exponent" validate:"gte=0"`

	// MinCurrent floors load*voltage so an idle core keeps a finite scale.
	MinCurrent float64 `yaml:"min_current" validate:"gt=0"`

	// ReferenceTemperature in kelvin.
	ReferenceTemperature float64 `yaml:"reference_temperature" validate:"gt=0"`
}

// DefaultWeibullModel returns the parameters used when the config omits them.
func DefaultWeibullModel() WeibullModel {
	return WeibullModel{
		Alpha0:               10000,
		Beta:                 2,
		ActivationEnergy:     0.7,
		CurrentExponent:      2,
		MinCurrent:           0.01,
		ReferenceTemperature: 318.15,
	}
}

// Validate checks every parameter against its domain.
//
// Outputs:
//   - error: Wraps ErrInvalidParameters naming the first bad field.
func (m WeibullModel) Validate() error {
	if err := modelValidate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}

// Scale returns the Weibull scale alpha for a stress.
func (m WeibullModel) Scale(s Stress) float64 {
	current := math.Max(s.Load*s.Voltage, m.MinCurrent)
	arrhenius := math.Exp(m.ActivationEnergy / BoltzmannEV * (1/s.Temperature - 1/m.ReferenceTemperature))
	return m.Alpha0 * math.Pow(current, -m.CurrentExponent) * arrhenius
}

// Lifetime draws the remaining time to failure.
//
// Description:
//
//	With D = -ln(R) and t0 = alpha*D^(1/beta), the conditional Weibull
//	inverse CDF gives alpha*(D - ln(1-u))^(1/beta) - t0. Aging the core by
//	the returned lifetime leaves it at reliability R*(1-u).
//
// Inputs:
//   - s: Current stress.
//   - reliability: Current reliability in (0,1].
//   - u: Uniform draw in [0,1).
//
// Outputs:
//   - float64: Remaining lifetime, >= 0. Zero for a core with no
//     reliability left.
func (m WeibullModel) Lifetime(s Stress, reliability, u float64) float64 {
	if reliability <= 0 {
		return 0
	}
	alpha := m.Scale(s)
	damage := -math.Log(reliability)
	t0 := alpha * math.Pow(damage, 1/m.Beta)
	life := alpha*math.Pow(damage-math.Log1p(-u), 1/m.Beta) - t0
	if life < 0 {
		return 0
	}
	return life
}

// Age advances a core by dt under s and returns its new reliability.
func (m WeibullModel) Age(s Stress, reliability, dt float64) float64 {
	if reliability <= 0 {
		return 0
	}
	alpha := m.Scale(s)
	t0 := alpha * math.Pow(-math.Log(reliability), 1/m.Beta)
	return math.Exp(-math.Pow((t0+dt)/alpha, m.Beta))
}

var _ Model = WeibullModel{}
