// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorindex

import "github.com/ap-aditya/srchive/pkg/types"

// MemoryPath selects the in-process index instead of a veclite file.
const MemoryPath = ":memory:"

// Open returns the index described by cfg.
func Open(cfg types.VectorConfig, dims int) (Index, error) {
	if cfg.Path == MemoryPath {
		return NewMemory(dims), nil
	}
	return OpenVecLite(cfg, dims)
}
