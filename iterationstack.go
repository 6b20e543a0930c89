package arena

import "unsafe"

// IterationStack divides one fixed block into N equal-size regions, each a
// FixedStack. Allocate always targets the active region;
// NextIteration advances to the next region (mod N) and resets its bump
// pointer, bulk-reclaiming whatever was allocated from it N iterations ago.
// Iteration stacks never grow: Allocate reports OutOfFixedMemory instead of
// asking the arena for another block.
type IterationStack struct {
	regions  []FixedStack
	curIndex int
	provider BlockProvider
	block    Block
	debug    DebugConfig
	info     AllocatorInfo
}

// NewIterationStack allocates one block from provider, partitions it into n
// equal regions (ignoring any leftover remainder), and initialises each
// region's bump pointer to its region start.
func NewIterationStack(provider BlockProvider, n int, opts ...ArenaOption) (*IterationStack, error) {
	if n <= 0 {
		panic("arena: IterationStack requires n > 0")
	}
	cfg := arenaConfig{name: "arena.IterationStack"}
	for _, o := range opts {
		o(&cfg)
	}

	block, err := provider.AllocateBlock()
	if err != nil {
		return nil, err
	}

	it := &IterationStack{
		regions:  make([]FixedStack, n),
		provider: provider,
		block:    block,
		debug:    cfg.debug,
	}
	it.info = AllocatorInfo{Name: cfg.name, Instance: unsafe.Pointer(it)}

	regionSize := block.Size / uintptr(n)
	for i := 0; i < n; i++ {
		start := unsafe.Add(block.Memory, uintptr(i)*regionSize)
		it.regions[i] = FixedStack{start: start, cur: start, end: unsafe.Add(start, regionSize), debug: cfg.debug, info: it.info}
	}
	return it, nil
}

// Allocate bumps the currently active region. It reports
// *OutOfFixedMemoryError if the region cannot fit the request; iteration
// stacks never grow.
func (it *IterationStack) Allocate(size, align uintptr) (unsafe.Pointer, error) {
	region := &it.regions[it.curIndex]
	if p := region.Allocate(size, align); p != nil {
		return p, nil
	}
	return nil, reportOutOfFixedMemory(it.info, size)
}

// NextIteration advances to the next region (mod MaxIterations) and resets
// its bump pointer to its region start, logically freeing everything
// allocated from it.
func (it *IterationStack) NextIteration() {
	it.curIndex = (it.curIndex + 1) % len(it.regions)
	region := &it.regions[it.curIndex]
	region.Unwind(it.regionStart(it.curIndex))
}

func (it *IterationStack) regionStart(i int) unsafe.Pointer {
	regionSize := it.block.Size / uintptr(len(it.regions))
	return unsafe.Add(it.block.Memory, uintptr(i)*regionSize)
}

// MaxIterations returns N, the number of regions (and the number of
// iterations for which an allocation remains live).
func (it *IterationStack) MaxIterations() int { return len(it.regions) }

// CurIteration returns the index of the currently active region.
func (it *IterationStack) CurIteration() int { return it.curIndex }

// CapacityLeft returns the number of bytes available for allocation in
// region i.
func (it *IterationStack) CapacityLeft(i int) uintptr { return it.regions[i].Remaining() }

// Release returns the single backing block to the provider.
func (it *IterationStack) Release() { it.provider.DeallocateBlock(it.block) }
