// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aging

import "fmt"

// Thermal computes a core's temperature from its own power and the number
// of live neighbors heating it.
type Thermal interface {
	Temperature(load, voltage float64, aliveNeighbors int) float64
}

// CoupledThermal is the default Thermal model.
//
// Description:
//
//	The core dissipates P = PowerScale*load*voltage^2 and sits at
//
//	    T = Ambient + P*(SelfResistance + NeighborCoupling*aliveNeighbors)
//
//	Each live neighbor runs at the same load, so coupling is proportional
//	to the core's own power. A death lowers its neighbors' coupling term
//	while the workload shift raises everyone's power.
type CoupledThermal struct {
	Ambient          float64 `yaml:"ambient_temperature" validate:"gt=0"`
	SelfResistance   float64 `yaml:"self_resistance" validate:"gte=0"`
	NeighborCoupling float64 `yaml:"neighbor_coupling" validate:"gte=0"`
	PowerScale       float64 `yaml:"power_scale" validate:"gte=0"`
}

// DefaultCoupledThermal returns the thermal parameters used when the config
// omits them.
func DefaultCoupledThermal() CoupledThermal {
	return CoupledThermal{
		Ambient:          318.15,
		SelfResistance:   10,
		NeighborCoupling: 2,
		PowerScale:       1,
	}
}

// Validate checks every parameter against its domain.
func (c CoupledThermal) Validate() error {
	if err := modelValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}

// Temperature implements Thermal.
func (c CoupledThermal) Temperature(load, voltage float64, aliveNeighbors int) float64 {
	power := c.PowerScale * load * voltage * voltage
	return c.Ambient + power*(c.SelfResistance+c.NeighborCoupling*float64(aliveNeighbors))
}

var _ Thermal = CoupledThermal{}
