// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package save defines the save data model shared by the capture pipeline,
// the restore orchestrator and the storage layer: slot identities, the global
// and per-player blocks, per-scene unit records, the Unit contract every
// savable scene object implements, and the selective load policy.
package save
