package tessera

import (
	"hash/fnv"
	"reflect"
	"sync"
)

// TypeHash is the stable 64-bit identity of a component, resource, or event
// type, derived from its canonical reflect.Type name. Two values of the same
// Go type always hash to the same TypeHash within a process; the hash is not
// guaranteed stable across builds or binaries (section 4, design note 2).
type TypeHash uint64

// typeInfo records the size/alignment metadata the store needs to lay out a
// column without re-deriving it from reflection on every access.
type typeInfo struct {
	hash      TypeHash
	name      string
	size      uintptr
	align     uintptr
	reflected reflect.Type
}

var (
	typeRegistryMu sync.RWMutex
	typeByHash     = map[TypeHash]typeInfo{}
	hashByType     = map[reflect.Type]TypeHash{}
)

// hashTypeName runs FNV-1a over a type's fully qualified name. FNV is used
// rather than a cryptographic hash because identity, not collision
// resistance against an adversary, is all the contract requires.
func hashTypeName(name string) TypeHash {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return TypeHash(h.Sum64())
}

// typeIdentity returns the registered (and, on first sight, newly recorded)
// identity for T. It is the tessera analogue of the teacher's
// table.FactoryNewElementType[T]() (factory.go) and of
// totodo713-vamplite's component type-id table (internal/core/ecs/types.go).
func typeIdentity[T any]() typeInfo {
	var zero T
	rt := reflect.TypeOf(zero)
	if rt == nil {
		rt = reflect.TypeOf(&zero).Elem()
	}
	return typeIdentityOf(rt)
}

func typeIdentityOf(rt reflect.Type) typeInfo {
	typeRegistryMu.RLock()
	if h, ok := hashByType[rt]; ok {
		info := typeByHash[h]
		typeRegistryMu.RUnlock()
		return info
	}
	typeRegistryMu.RUnlock()

	typeRegistryMu.Lock()
	defer typeRegistryMu.Unlock()
	if h, ok := hashByType[rt]; ok {
		return typeByHash[h]
	}
	name := canonicalTypeName(rt)
	info := typeInfo{
		hash:      hashTypeName(name),
		name:      name,
		size:      rt.Size(),
		align:     uintptr(rt.Align()),
		reflected: rt,
	}
	hashByType[rt] = info.hash
	typeByHash[info.hash] = info
	return info
}

// canonicalTypeName builds a name stable under package renames within a
// single build but distinct across distinct packages with the same local
// type name (PkgPath disambiguates).
func canonicalTypeName(rt reflect.Type) string {
	if rt.PkgPath() == "" {
		return rt.String()
	}
	return rt.PkgPath() + "." + rt.Name()
}

// lookupTypeInfo resolves a previously seen hash back to its metadata. Used
// by the byte-format reader (serialize.go) where only the hash travels on
// the wire.
func lookupTypeInfo(h TypeHash) (typeInfo, bool) {
	typeRegistryMu.RLock()
	defer typeRegistryMu.RUnlock()
	info, ok := typeByHash[h]
	return info, ok
}
