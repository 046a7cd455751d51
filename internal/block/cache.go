package block

// Cache is the orchestrator-private, two-level in-memory index: a mapping
// from block name to Block, plus a nested das -> location -> [block name]
// index used to locate the currently open block for a new file. Cache is
// not safe for concurrent use; it is owned exclusively by the single
// orchestrator goroutine (the poller), per the single-threaded-orchestrator
// model.
type Cache struct {
	blocks map[string]*Block      // name -> Block
	index  map[string]map[string][]string // das -> location -> [block name], insertion order
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		blocks: make(map[string]*Block),
		index:  make(map[string]map[string][]string),
	}
}

// Insert adds block to the cache and indexes it under (das, location).
// Inserting a name that already exists overwrites the prior entry in the
// block map but does not duplicate it in the index.
func (c *Cache) Insert(b *Block) {
	if _, exists := c.blocks[b.Name]; !exists {
		locs, ok := c.index[b.Das]
		if !ok {
			locs = make(map[string][]string)
			c.index[b.Das] = locs
		}
		locs[b.Location] = append(locs[b.Location], b.Name)
	}
	c.blocks[b.Name] = b
}

// Get returns the block with the given name, or nil if absent.
func (c *Cache) Get(name string) *Block {
	return c.blocks[name]
}

// Remove deletes name from both the block map and the DAS index. Called
// only once a block has reached InDBS and been reconciled.
func (c *Cache) Remove(name string) {
	b, ok := c.blocks[name]
	if !ok {
		return
	}
	delete(c.blocks, name)

	locs := c.index[b.Das]
	if locs == nil {
		return
	}
	names := locs[b.Location]
	for i, n := range names {
		if n == name {
			locs[b.Location] = append(names[:i], names[i+1:]...)
			break
		}
	}
	if len(locs[b.Location]) == 0 {
		delete(locs, b.Location)
	}
	if len(locs) == 0 {
		delete(c.index, b.Das)
	}
}

// FindOpenFor scans the (das, location) bucket and returns the first block
// whose CanAccept would hold for an arbitrary future file, i.e. the first
// block still in Open status. Blocks in the bucket that are no longer Open
// are passed to CloseForUpload, which leaves their Pending or InDBS status
// unchanged, and scanning continues past them.
func (c *Cache) FindOpenFor(das, location string) *Block {
	locs := c.index[das]
	if locs == nil {
		return nil
	}
	for _, name := range locs[location] {
		b := c.blocks[name]
		if b == nil {
			continue
		}
		if b.Status == Open {
			return b
		}
		b.CloseForUpload()
	}
	return nil
}

// All returns every block currently in the cache. The returned slice is a
// snapshot; mutating it does not affect the cache.
func (c *Cache) All() []*Block {
	out := make([]*Block, 0, len(c.blocks))
	for _, b := range c.blocks {
		out = append(out, b)
	}
	return out
}

// Len returns the number of blocks currently cached.
func (c *Cache) Len() int {
	return len(c.blocks)
}

// IndexConsistent reports whether every name in the DAS index resolves in
// the block map. Exposed for tests of the cache/index consistency
// invariant; production code never needs to call it since Insert/Remove
// keep the two in lockstep by construction.
func (c *Cache) IndexConsistent() bool {
	for _, locs := range c.index {
		for _, names := range locs {
			for _, name := range names {
				if _, ok := c.blocks[name]; !ok {
					return false
				}
			}
		}
	}
	return true
}
