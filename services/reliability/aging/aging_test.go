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

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nominal = Stress{Temperature: 330, Load: 1, Voltage: 1}

// -----------------------------------------------------------------------------
// WeibullModel Tests
// -----------------------------------------------------------------------------

func TestWeibullModel_Validate(t *testing.T) {
	require.NoError(t, DefaultWeibullModel().Validate())

	tests := []struct {
		name   string
		mutate func(*WeibullModel)
	}{
		{"zero alpha0", func(m *WeibullModel) { m.Alpha0 = 0 }},
		{"negative beta", func(m *WeibullModel) { m.Beta = -1 }},
		{"negative activation energy", func(m *WeibullModel) { m.ActivationEnergy = -0.1 }},
		{"zero min current", func(m *WeibullModel) { m.MinCurrent = 0 }},
		{"zero reference temperature", func(m *WeibullModel) { m.ReferenceTemperature = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultWeibullModel()
			tt.mutate(&m)
			err := m.Validate()
			assert.True(t, errors.Is(err, ErrInvalidParameters), "got %v", err)
		})
	}
}

func TestWeibullModel_ScaleAtReference(t *testing.T) {
	m := DefaultWeibullModel()
	s := Stress{Temperature: m.ReferenceTemperature, Load: 1, Voltage: 1}
	assert.InDelta(t, m.Alpha0, m.Scale(s), 1e-9)
}

func TestWeibullModel_StressShortensLife(t *testing.T) {
	m := DefaultWeibullModel()

	hot := nominal
	hot.Temperature += 20
	assert.Less(t, m.Lifetime(hot, 1, 0.5), m.Lifetime(nominal, 1, 0.5), "hotter core fails sooner")

	loaded := nominal
	loaded.Load = 2
	assert.Less(t, m.Lifetime(loaded, 1, 0.5), m.Lifetime(nominal, 1, 0.5), "busier core fails sooner")
}

func TestWeibullModel_MinCurrentFloor(t *testing.T) {
	m := DefaultWeibullModel()
	idle := Stress{Temperature: 330, Load: 0, Voltage: 1}
	life := m.Lifetime(idle, 1, 0.5)
	assert.False(t, math.IsInf(life, 0))
	assert.False(t, math.IsNaN(life))
}

func TestWeibullModel_LifetimeIsMonotoneInU(t *testing.T) {
	m := DefaultWeibullModel()
	prev := m.Lifetime(nominal, 0.8, 0)
	for _, u := range []float64{0.1, 0.3, 0.5, 0.9, 0.999} {
		life := m.Lifetime(nominal, 0.8, u)
		assert.Greater(t, life, prev, "u=%g", u)
		prev = life
	}
}

func TestWeibullModel_FreshCoreZeroDraw(t *testing.T) {
	m := DefaultWeibullModel()
	assert.Equal(t, 0.0, m.Lifetime(nominal, 1, 0))
}

// TestWeibullModel_AgingByLifetime checks that aging a core by its drawn
// lifetime leaves it at reliability R*(1-u).
func TestWeibullModel_AgingByLifetime(t *testing.T) {
	m := DefaultWeibullModel()
	for _, r := range []float64{1, 0.9, 0.42} {
		for _, u := range []float64{0.05, 0.5, 0.95} {
			life := m.Lifetime(nominal, r, u)
			after := m.Age(nominal, r, life)
			assert.InDelta(t, r*(1-u), after, 1e-9, "r=%g u=%g", r, u)
		}
	}
}

func TestWeibullModel_Age(t *testing.T) {
	m := DefaultWeibullModel()

	assert.InDelta(t, 0.7, m.Age(nominal, 0.7, 0), 1e-12, "zero dt is a no-op")

	r := 1.0
	for i := 0; i < 10; i++ {
		next := m.Age(nominal, r, 100)
		assert.Less(t, next, r)
		r = next
	}

	assert.Equal(t, 0.0, m.Age(nominal, 0, 10))
	assert.Equal(t, 0.0, m.Lifetime(nominal, 0, 0.5))
}

// -----------------------------------------------------------------------------
// CoupledThermal Tests
// -----------------------------------------------------------------------------

func TestCoupledThermal(t *testing.T) {
	c := CoupledThermal{Ambient: 300, SelfResistance: 10, NeighborCoupling: 2, PowerScale: 1}
	require.NoError(t, c.Validate())

	assert.InDelta(t, 318.0, c.Temperature(1, 1, 4), 1e-12)
	assert.InDelta(t, 310.0, c.Temperature(1, 1, 0), 1e-12)
	assert.InDelta(t, 300+4*14.0, c.Temperature(1, 2, 2), 1e-12, "power grows with voltage squared")

	c.Ambient = -1
	assert.True(t, errors.Is(c.Validate(), ErrInvalidParameters))
}

func TestCoupledThermal_FewerNeighborsRunCooler(t *testing.T) {
	c := DefaultCoupledThermal()
	for n := 1; n <= 4; n++ {
		assert.Less(t, c.Temperature(1.5, 1, n-1), c.Temperature(1.5, 1, n))
	}
}

// -----------------------------------------------------------------------------
// SplitMix Tests
// -----------------------------------------------------------------------------

func TestSplitMix_Range(t *testing.T) {
	r := NewSplitMix(12345)
	sum := 0.0
	const n = 100000
	for i := 0; i < n; i++ {
		v := r.Float64()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
		sum += v
	}
	assert.InDelta(t, 0.5, sum/n, 0.01)
}

func TestSplitMix_Deterministic(t *testing.T) {
	a := NewSplitMix(7)
	b := NewSplitMix(7)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Uint64(), b.Uint64())
	}

	b.Seed(7)
	c := NewSplitMix(7)
	assert.Equal(t, c.Float64(), b.Float64())
}

func TestTrialSeed_Distinct(t *testing.T) {
	seen := make(map[uint64]int)
	for seed := uint64(0); seed < 4; seed++ {
		for trial := 0; trial < 1000; trial++ {
			s := TrialSeed(seed, trial)
			_, dup := seen[s]
			require.False(t, dup, "seed %d trial %d collides", seed, trial)
			seen[s] = trial
		}
	}
}

func BenchmarkWeibullModel_Lifetime(b *testing.B) {
	m := DefaultWeibullModel()
	r := NewSplitMix(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Lifetime(nominal, 0.9, r.Float64())
	}
}
