package occ

import "ccsim/pkg/primitives"

// Resource is the committed state of one data item.
type Resource struct {
	ID primitives.ResourceID
	// LastCommittedWriter is the most recent transaction whose buffered write
	// to this item was applied. InvalidTransactionID means never written.
	LastCommittedWriter primitives.TransactionID
	// Version counts applied writes.
	Version int
}

// ResourceTable holds the committed state of every data item touched in a run.
type ResourceTable struct {
	resources map[primitives.ResourceID]*Resource
}

func NewResourceTable() *ResourceTable {
	return &ResourceTable{
		resources: make(map[primitives.ResourceID]*Resource),
	}
}

// Touch registers rid if it is new and returns its entry.
func (rt *ResourceTable) Touch(rid primitives.ResourceID) *Resource {
	if r, exists := rt.resources[rid]; exists {
		return r
	}
	r := &Resource{ID: rid}
	rt.resources[rid] = r
	return r
}

// Get returns a copy of rid's committed state.
func (rt *ResourceTable) Get(rid primitives.ResourceID) (Resource, bool) {
	r, exists := rt.resources[rid]
	if !exists {
		return Resource{ID: rid}, false
	}
	return *r, true
}

// Apply installs tid's writes.
func (rt *ResourceTable) Apply(tid primitives.TransactionID, writes []primitives.ResourceID) {
	for _, rid := range writes {
		r := rt.Touch(rid)
		r.LastCommittedWriter = tid
		r.Version++
	}
}
