// Package resident tracks which chunk coordinates are currently cached, per
// owner. The cache keeps the set in lockstep with its entry table so radius
// prefetch can probe residency without building string keys or touching the
// table map for every candidate coordinate.
package resident

import "github.com/RoaringBitmap/roaring/v2"

// Set is a per-owner bitmap of resident chunk coordinates.
//
// Coordinates are zigzag-encoded into 16 bits each and packed into one
// uint32, which bounds the supported coordinate range to [-32768, 32767].
// That is far beyond any realistic chunk grid (the default chunk size of 16
// maps it to a ±524k world span).
//
// Not safe for concurrent use; the owning cache guards it with its own mutex.
type Set struct {
	owners map[string]*roaring.Bitmap
}

// NewSet creates an empty residency set.
func NewSet() *Set {
	return &Set{owners: make(map[string]*roaring.Bitmap)}
}

func pack(x, y int) uint32 {
	return uint32(zigzag(x))<<16 | uint32(zigzag(y))
}

func zigzag(v int) uint16 {
	return uint16((int32(v) << 1) ^ (int32(v) >> 31))
}

// Add marks (x, y) resident for the owner.
func (s *Set) Add(ownerID string, x, y int) {
	bm, ok := s.owners[ownerID]
	if !ok {
		bm = roaring.New()
		s.owners[ownerID] = bm
	}
	bm.Add(pack(x, y))
}

// Remove clears (x, y) for the owner.
func (s *Set) Remove(ownerID string, x, y int) {
	bm, ok := s.owners[ownerID]
	if !ok {
		return
	}
	bm.Remove(pack(x, y))
	if bm.IsEmpty() {
		delete(s.owners, ownerID)
	}
}

// Contains reports whether (x, y) is resident for the owner.
func (s *Set) Contains(ownerID string, x, y int) bool {
	bm, ok := s.owners[ownerID]
	if !ok {
		return false
	}
	return bm.Contains(pack(x, y))
}

// Count returns the number of resident coordinates for the owner.
func (s *Set) Count(ownerID string) int {
	bm, ok := s.owners[ownerID]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// CountInRadius returns how many coordinates within Chebyshev distance r of
// (cx, cy) are resident for the owner.
func (s *Set) CountInRadius(ownerID string, cx, cy, r int) int {
	bm, ok := s.owners[ownerID]
	if !ok {
		return 0
	}

	n := 0
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if bm.Contains(pack(cx+dx, cy+dy)) {
				n++
			}
		}
	}
	return n
}

// Clear drops the owner's bitmap entirely.
func (s *Set) Clear(ownerID string) {
	delete(s.owners, ownerID)
}

// Reset drops all owners.
func (s *Set) Reset() {
	s.owners = make(map[string]*roaring.Bitmap)
}
