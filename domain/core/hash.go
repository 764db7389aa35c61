package core

import (
	"hash/fnv"
)

// LockKey is the two-part key of a per-(tenant, series) advisory lock
type LockKey struct {
	Series int32
	Tenant int32
}

// NewLockKey hashes a series name and folds the tenant id into 32 bits.
// Distinct tenants below 2^31 never share a key for the same series.
func NewLockKey(tenant TenantID, series SeriesName) LockKey {
	h := fnv.New32a()
	_, _ = h.Write([]byte(series))
	t := uint64(tenant)
	return LockKey{
		Series: int32(h.Sum32()),
		Tenant: int32(uint32(t) ^ uint32(t>>32)),
	}
}
