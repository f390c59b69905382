// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package montecarlo runs independent lifetime trials over a core grid and
// reduces their times to failure.
//
// # Trial Loop
//
// Each trial starts with every core alive and repeats:
//
//  1. For every live slot, compute its temperature from its load and live
//     neighbor count, then draw a remaining lifetime from the aging model.
//     Uniforms are drawn in slot order before any evaluation.
//  2. The core with the shortest lifetime dies, together with every core
//     whose lifetime ties it exactly.
//  3. Survivors age by that lifetime and the trial clock advances.
//  4. Each dead core notifies its neighbors and is compacted out.
//  5. The workload is spread over the survivors.
//
// The trial ends when fewer than MinCores cores remain, or once MaxCores
// cores have died when MaxCores is set. Its elapsed time is the TTF.
//
// # Batches
//
// Trials run in batches on an errgroup worker pool. Workers write each
// trial's TTF into its batch slot, and the driver folds the batch into the
// accumulator in trial order. With the per-trial seed derived from the run
// seed and the trial index, a run's sums are bit-identical for every
// variant and worker count.
//
// In fixed mode the driver runs exactly NumOfTests trials. In confidence
// mode it runs batches until the evaluator's half-width (relative to the
// mean when RelativeThreshold is set) drops to Threshold, or MaxTrials is
// reached. Cancellation is checked between batches only.
package montecarlo
