package block

// InFlightSet tracks block names currently submitted to the worker pool and
// not yet reconciled. Membership is always a subset of the Cache; no name
// present here is ever re-submitted in the same cycle. Orchestrator-private,
// like Cache.
type InFlightSet struct {
	names map[string]struct{}
}

// NewInFlightSet creates an empty InFlightSet.
func NewInFlightSet() *InFlightSet {
	return &InFlightSet{names: make(map[string]struct{})}
}

// Add marks name as in-flight.
func (s *InFlightSet) Add(name string) {
	s.names[name] = struct{}{}
}

// Remove clears name from the in-flight set, called once exactly one result
// for it has been processed.
func (s *InFlightSet) Remove(name string) {
	delete(s.names, name)
}

// Contains reports whether name is currently in-flight.
func (s *InFlightSet) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of names currently in-flight.
func (s *InFlightSet) Len() int {
	return len(s.names)
}

// Bind is a pending file -> block association accumulated during packing
// and drained atomically at reconcile time via setBlockFiles.
type Bind struct {
	LFN       string
	BlockName string
}

// PendingBinds is the ordered buffer of Bind accumulated during one cycle's
// packing pass.
type PendingBinds struct {
	binds []Bind
}

// NewPendingBinds creates an empty PendingBinds buffer.
func NewPendingBinds() *PendingBinds {
	return &PendingBinds{}
}

// Append adds a new bind to the buffer.
func (p *PendingBinds) Append(lfn, blockName string) {
	p.binds = append(p.binds, Bind{LFN: lfn, BlockName: blockName})
}

// Drain returns the buffered binds and resets the buffer. CommitBinds calls
// it before running setBlockFiles and re-appends the binds if that fails.
func (p *PendingBinds) Drain() []Bind {
	out := p.binds
	p.binds = nil
	return out
}

// Len returns the number of binds currently buffered.
func (p *PendingBinds) Len() int {
	return len(p.binds)
}
