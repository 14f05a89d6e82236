package tessera

import (
	"sort"
	"unsafe"

	"github.com/TheBitDrifter/mask"
)

// Signature is the ascending-sorted, duplicate-free sequence of component
// type hashes that identifies an archetype (section 3). A Signature used
// only for lookup may be built from a borrowed slice; one stored as a
// ArchetypeStore map key must own its backing array (section 4.2).
type Signature struct {
	hashes []TypeHash
	bits   mask.Mask
}

// NewSignature sorts and dedupes the given hashes into a Signature, deriving
// the mask.Mask fast-match bitset the teacher's query.go and storage.go
// build per-lookup (here precomputed once and cached on the signature).
func NewSignature(hashes ...TypeHash) Signature {
	cp := append([]TypeHash(nil), hashes...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	out := cp[:0]
	for i, h := range cp {
		if i == 0 || h != out[len(out)-1] {
			out = append(out, h)
		}
	}
	var m mask.Mask
	for _, h := range out {
		m.Mark(signatureBit(h))
	}
	return Signature{hashes: out, bits: m}
}

// signatureBit folds a 64-bit type hash down to the bit range mask.Mask
// addresses. Collisions only degrade the fast-path prefilter (the
// authoritative check is always the sorted-hash comparison below), so a
// simple modulo is sufficient.
func signatureBit(h TypeHash) uint32 {
	return uint32(h % 256)
}

// Hashes returns the sorted, owned hash slice. Callers must not mutate it.
func (s Signature) Hashes() []TypeHash { return s.hashes }

// Len returns the number of distinct component types in the signature.
func (s Signature) Len() int { return len(s.hashes) }

// Contains reports whether h is one of the signature's component hashes.
func (s Signature) Contains(h TypeHash) bool {
	i := sort.Search(len(s.hashes), func(i int) bool { return s.hashes[i] >= h })
	return i < len(s.hashes) && s.hashes[i] == h
}

// Superset reports whether s contains every hash in other (other ⊆ s).
func (s Signature) Superset(other Signature) bool {
	if !s.bits.ContainsAll(other.bits) {
		return false
	}
	for _, h := range other.hashes {
		if !s.Contains(h) {
			return false
		}
	}
	return true
}

// DisjointFrom reports whether s and other share no component hash.
func (s Signature) DisjointFrom(other Signature) bool {
	if len(other.hashes) == 0 {
		return true
	}
	if !s.bits.ContainsNone(other.bits) {
		// the fast mask said "maybe shared"; fall through to the exact check
		for _, h := range other.hashes {
			if s.Contains(h) {
				return false
			}
		}
		return true
	}
	return true
}

// Equal reports whether two signatures contain exactly the same hashes.
func (s Signature) Equal(other Signature) bool {
	if len(s.hashes) != len(other.hashes) {
		return false
	}
	for i := range s.hashes {
		if s.hashes[i] != other.hashes[i] {
			return false
		}
	}
	return true
}

// With returns a new signature containing s's hashes plus extra, sorted and
// deduped, with extras' hashes winning on overlap (callers needing "new
// payload wins" semantics supply extra last; hashes carry no payload here,
// so the win only matters for callers tracking which column supplies data).
func (s Signature) With(extra ...TypeHash) Signature {
	return NewSignature(append(append([]TypeHash(nil), s.hashes...), extra...)...)
}

// Without returns a new signature with h removed, if present.
func (s Signature) Without(h TypeHash) Signature {
	out := make([]TypeHash, 0, len(s.hashes))
	for _, x := range s.hashes {
		if x != h {
			out = append(out, x)
		}
	}
	return NewSignature(out...)
}

// key returns a comparable, owned representation suitable for use as a Go
// map key (section 4.2's "hash-map key must use an owned copy of the
// signature bytes"). Go maps cannot key on slices directly; reinterpreting
// the owned []TypeHash as a string is the standard idiom for this and costs
// no allocation beyond the header.
func (s Signature) key() string {
	if len(s.hashes) == 0 {
		return ""
	}
	return unsafe.String((*byte)(unsafe.Pointer(&s.hashes[0])), len(s.hashes)*8)
}
