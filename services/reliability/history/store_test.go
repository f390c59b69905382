// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/corelife/services/reliability/montecarlo"
	"github.com/AleutianAI/corelife/services/reliability/storage/badger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := badger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db, nil)
}

func testSummary(id string, started time.Time) *RunSummary {
	hw := 1.5
	return &RunSummary{
		ID:         id,
		StartedAt:  started.UTC(),
		FinishedAt: started.Add(time.Second).UTC(),
		Config:     montecarlo.DefaultConfig(),
		Variant:    "redux",
		Trials:     100,
		Batches:    1,
		SumTTF:     1234.5,
		SumTTFx2:   20000,
		Mean:       12.345,
		StdDev:     3.2,
		StopReason: montecarlo.StopCompleted,
		Duration:   time.Second,
		HalfWidth:  &hw,
	}
}

func TestNewSummary(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := &montecarlo.Result{
		Variant:    "struct",
		Trials:     1,
		Batches:    1,
		SumTTF:     7,
		SumTTFx2:   49,
		Mean:       7,
		HalfWidth:  math.Inf(1),
		StopReason: montecarlo.StopFailed,
		Duration:   2 * time.Second,
	}

	s := NewSummary(montecarlo.DefaultConfig(), res, started, errors.New("boom"))
	assert.Len(t, s.ID, 36)
	assert.Len(t, s.ShortID(), 8)
	assert.Nil(t, s.HalfWidth, "an infinite half-width is not stored")
	assert.Equal(t, "boom", s.Error)
	assert.Equal(t, started.Add(2*time.Second), s.FinishedAt)
	assert.Equal(t, montecarlo.StopFailed, s.StopReason)

	_, err := json.Marshal(s)
	assert.NoError(t, err)

	res.HalfWidth = 0.25
	s = NewSummary(montecarlo.DefaultConfig(), res, started, nil)
	require.NotNil(t, s.HalfWidth)
	assert.Equal(t, 0.25, *s.HalfWidth)
	assert.Empty(t, s.Error)
}

func TestStore_SaveGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	want := testSummary("2f1c9a7e-0000-4000-8000-000000000001", time.Now())

	require.NoError(t, st.Save(ctx, want))

	got, err := st.Get(ctx, want.ID)
	require.NoError(t, err)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, want.Config, got.Config)
	assert.Equal(t, want.SumTTF, got.SumTTF)
	assert.Equal(t, want.SumTTFx2, got.SumTTFx2)
	assert.Equal(t, want.StopReason, got.StopReason)
	assert.Equal(t, want.Duration, got.Duration)
	require.NotNil(t, got.HalfWidth)
	assert.Equal(t, *want.HalfWidth, *got.HalfWidth)
}

func TestStore_GetByPrefix(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, st.Save(ctx, testSummary("abc-111", now)))
	require.NoError(t, st.Save(ctx, testSummary("abc-222", now.Add(time.Second))))
	require.NoError(t, st.Save(ctx, testSummary("def-333", now.Add(2*time.Second))))

	got, err := st.Get(ctx, "def")
	require.NoError(t, err)
	assert.Equal(t, "def-333", got.ID)

	got, err = st.Get(ctx, "abc-2")
	require.NoError(t, err)
	assert.Equal(t, "abc-222", got.ID)

	_, err = st.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrAmbiguousID)

	_, err = st.Get(ctx, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Get(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Saved out of order on purpose.
	for _, i := range []int{2, 0, 4, 1, 3} {
		s := testSummary(string(rune('a'+i))+"-run", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, st.Save(ctx, s))
	}

	all, err := st.List(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, s := range all {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"e-run", "d-run", "c-run", "b-run", "a-run"}, ids)

	limited, err := st.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "e-run", limited[0].ID)
	assert.Equal(t, "d-run", limited[1].ID)
}

func TestStore_ListEmpty(t *testing.T) {
	runs, err := newTestStore(t).List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStore_SaveReplaces(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	s := testSummary("same-id", time.Now())
	require.NoError(t, st.Save(ctx, s))

	s.StartedAt = s.StartedAt.Add(time.Hour)
	s.Trials = 999
	require.NoError(t, st.Save(ctx, s))

	runs, err := st.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1, "the old index entry is removed")
	assert.Equal(t, 999, runs[0].Trials)
}

func TestStore_SaveRequiresID(t *testing.T) {
	err := newTestStore(t).Save(context.Background(), &RunSummary{})
	assert.Error(t, err)
}

// TestStore_DriverRoundTrip stores the summary of a real run.
func TestStore_DriverRoundTrip(t *testing.T) {
	cfg := montecarlo.DefaultConfig()
	cfg.Rows, cfg.Cols, cfg.MinCores = 4, 4, 8
	cfg.NumOfTests = 100
	cfg.BatchSize = 50

	d, err := montecarlo.NewDriver(cfg)
	require.NoError(t, err)
	started := time.Now()
	res, err := d.Run(context.Background())
	require.NoError(t, err)

	st := newTestStore(t)
	s := NewSummary(d.Config(), res, started, nil)
	require.NoError(t, st.Save(context.Background(), s))

	got, err := st.Get(context.Background(), s.ShortID())
	require.NoError(t, err)
	assert.Equal(t, res.SumTTF, got.SumTTF)
	assert.Equal(t, res.SumTTFx2, got.SumTTFx2)
	assert.Equal(t, 100, got.Trials)
	assert.Equal(t, cfg, got.Config)
}
