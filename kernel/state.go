// Package kernel holds the boot-time shared state of the kernel: one
// registry per object kind, the page-frame allocator they grow from, and
// the root objects created at boot.
//
// The State is created once by Boot and passed explicitly to whatever needs
// it. Nothing in this package is a global.
package kernel

import (
	"errors"
	"fmt"
	"iter"

	"github.com/joshuapare/slabkit/arena/pfa"
	"github.com/joshuapare/slabkit/arena/registry"
	"github.com/joshuapare/slabkit/arena/segment"
	"github.com/joshuapare/slabkit/arena/spinlock"
	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/kernel/id"
)

// DirectMapBase is where the hosted translator places physical memory.
const DirectMapBase = 0xFFFF_8000_0000_0000

// State is the kernel's shared object state.
type State struct {
	cfg     Config
	layout  *segment.Layout
	frames  *spinlock.Lock[pfa.Allocator]
	tracker *pfa.Tracker

	rings         *registry.Registry[Ring]
	ringLists     *registry.ListRegistry[Ring]
	modules       *registry.Registry[Module]
	moduleLists   *registry.ListRegistry[Module]
	instances     *registry.Registry[Instance]
	instanceLists *registry.ListRegistry[Instance]
	threads       *registry.Registry[Thread]
	threadLists   *registry.ListRegistry[Thread]
	ports         *registry.Registry[Port]
	portLists     *registry.ListRegistry[Port]

	rootRing   registry.Handle[Ring]
	ringList   registry.Handle[registry.List[Ring]]
	moduleList registry.Handle[registry.List[Module]]
}

// segmentNames returns the layout order: each kind's item registry, then
// its list heads and list nodes.
func segmentNames() []string {
	var names []string
	for _, kind := range Kinds {
		names = append(names, kind, kind+".lists", kind+".items")
	}
	return names
}

// Boot reserves the registry segments, creates every registry, and creates
// the root ring (id 0) plus the global ring and module lists. Modules named
// in cfg are created afterward.
func Boot(cfg Config) (*State, error) {
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fl, err := pfa.NewFreeList(cfg.FrameBase, cfg.Frames)
	if err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	tracker := pfa.NewTracker(fl)

	layout, err := segment.NewLayout(cfg.SegmentSpan, pfa.OffsetTranslator{Offset: DirectMapBase}, segmentNames()...)
	if err != nil {
		return nil, fmt.Errorf("kernel: layout: %w", err)
	}

	s := &State{
		cfg:     cfg,
		layout:  layout,
		frames:  spinlock.New[pfa.Allocator](tracker),
		tracker: tracker,
	}
	if err := s.init(); err != nil {
		_ = layout.Release()
		return nil, err
	}

	logger.Info("kernel: booted", "frames", cfg.Frames, "segment_span", cfg.SegmentSpan,
		"modules", len(cfg.Modules), "frames_used", len(tracker.Outstanding()))
	return s, nil
}

func (s *State) init() error {
	var err error
	if s.rings, s.ringLists, err = newRegistries[Ring](s, KindRing); err != nil {
		return err
	}
	if s.modules, s.moduleLists, err = newRegistries[Module](s, KindModule); err != nil {
		return err
	}
	if s.instances, s.instanceLists, err = newRegistries[Instance](s, KindInstance); err != nil {
		return err
	}
	if s.threads, s.threadLists, err = newRegistries[Thread](s, KindThread); err != nil {
		return err
	}
	if s.ports, s.portLists, err = newRegistries[Port](s, KindPort); err != nil {
		return err
	}

	instances, err := s.instanceLists.CreateList()
	if err != nil {
		return fmt.Errorf("kernel: root ring instances: %w", err)
	}
	root, err := s.rings.Insert(Ring{ID: 0, Instances: instances})
	if err != nil {
		instances.Drop()
		return fmt.Errorf("kernel: root ring: %w", err)
	}
	if root.ID() != 0 {
		panic(fmt.Sprintf("kernel: root ring got id %d, want 0", root.ID()))
	}
	s.rootRing = root

	if s.moduleList, err = s.moduleLists.CreateList(); err != nil {
		return fmt.Errorf("kernel: module list: %w", err)
	}
	if s.ringList, err = s.ringLists.CreateList(); err != nil {
		return fmt.Errorf("kernel: ring list: %w", err)
	}
	node, err := s.ringLists.Append(s.ringList, root.Clone())
	if err != nil {
		return fmt.Errorf("kernel: list root ring: %w", err)
	}
	node.Drop()

	for _, mid := range s.cfg.Modules {
		m, err := s.CreateModule(mid)
		if err != nil {
			return err
		}
		m.Drop()
	}
	return nil
}

func newRegistries[T any](s *State, kind string) (*registry.Registry[T], *registry.ListRegistry[T], error) {
	seg := func(name string) segment.Segment {
		r, _ := s.layout.Segment(name)
		return r
	}

	var opts []registry.Option
	if size := s.cfg.SlotSizes[kind]; size > 0 {
		opts = append(opts, registry.WithSlotSize(size))
	}

	reg, err := registry.New[T](seg(kind), s.frames, append(opts, registry.WithName(kind))...)
	if err != nil {
		return nil, nil, fmt.Errorf("kernel: %s registry: %w", kind, err)
	}
	lists, err := registry.NewListRegistry[T](seg(kind+".lists"), seg(kind+".items"), s.frames, registry.WithName(kind))
	if err != nil {
		return nil, nil, fmt.Errorf("kernel: %s list registry: %w", kind, err)
	}
	return reg, lists, nil
}

// RootRing returns a new handle to the root ring.
func (s *State) RootRing() registry.Handle[Ring] { return s.rootRing.Clone() }

// Rings yields every ring, root first. Yielded handles are borrowed.
func (s *State) Rings() iter.Seq[registry.Handle[Ring]] { return s.ringLists.Items(s.ringList) }

// Modules yields every module in creation order. Yielded handles are
// borrowed.
func (s *State) Modules() iter.Seq[registry.Handle[Module]] {
	return s.moduleLists.Items(s.moduleList)
}

// CreateRing creates a child ring of parent and adds it to the ring list.
// The ring's ID is its slot id.
func (s *State) CreateRing(parent registry.Handle[Ring]) (registry.Handle[Ring], error) {
	if !parent.Valid() {
		return registry.Handle[Ring]{}, errors.New("kernel: ring needs a parent")
	}

	instances, err := s.instanceLists.CreateList()
	if err != nil {
		return registry.Handle[Ring]{}, fmt.Errorf("kernel: create ring: %w", err)
	}
	value := Ring{ID: NoRingID, Parent: parent.Clone(), Instances: instances}
	ring, err := s.rings.Insert(value)
	if err != nil {
		value.Drop()
		return registry.Handle[Ring]{}, fmt.Errorf("kernel: create ring: %w", err)
	}
	ring.With(func(r *Ring) { r.ID = ring.ID() })

	node, err := s.ringLists.Append(s.ringList, ring.Clone())
	if err != nil {
		ring.Drop()
		return registry.Handle[Ring]{}, fmt.Errorf("kernel: list ring: %w", err)
	}
	node.Drop()

	logger.Debug("kernel: created ring", "ring", ring.ID(), "parent", parent.ID())
	return ring, nil
}

// CreateModule records a module and adds it to the module list.
func (s *State) CreateModule(mid id.ModuleID) (registry.Handle[Module], error) {
	if mid.IsZero() {
		return registry.Handle[Module]{}, fmt.Errorf("kernel: create module: %w", id.ErrInvalidType)
	}

	instances, err := s.instanceLists.CreateList()
	if err != nil {
		return registry.Handle[Module]{}, fmt.Errorf("kernel: create module: %w", err)
	}
	m, err := s.modules.Insert(Module{ID: mid, Instances: instances})
	if err != nil {
		instances.Drop()
		return registry.Handle[Module]{}, fmt.Errorf("kernel: create module: %w", err)
	}

	node, err := s.moduleLists.Append(s.moduleList, m.Clone())
	if err != nil {
		m.Drop()
		return registry.Handle[Module]{}, fmt.Errorf("kernel: list module: %w", err)
	}
	node.Drop()

	logger.Debug("kernel: created module", "module", mid.String(), "slot", m.ID())
	return m, nil
}

// CreateInstance instantiates module in ring. The instance is added to both
// the ring's and the module's instance lists.
func (s *State) CreateInstance(module registry.Handle[Module], ring registry.Handle[Ring]) (registry.Handle[Instance], error) {
	var fail registry.Handle[Instance]

	threads, err := s.threadLists.CreateList()
	if err != nil {
		return fail, fmt.Errorf("kernel: create instance: %w", err)
	}
	ports, err := s.portLists.CreateList()
	if err != nil {
		threads.Drop()
		return fail, fmt.Errorf("kernel: create instance: %w", err)
	}
	value := Instance{
		Module:  module.Clone(),
		Ring:    ring.Clone(),
		Threads: threads,
		Ports:   ports,
	}
	inst, err := s.instances.Insert(value)
	if err != nil {
		value.Drop()
		return fail, fmt.Errorf("kernel: create instance: %w", err)
	}

	var ringInstances, moduleInstances registry.Handle[registry.List[Instance]]
	ring.With(func(r *Ring) { ringInstances = r.Instances.Clone() })
	module.With(func(m *Module) { moduleInstances = m.Instances.Clone() })
	defer ringInstances.Release()
	defer moduleInstances.Release()

	inRing, err := s.instanceLists.Append(ringInstances, inst.Clone())
	if err != nil {
		inst.Drop()
		return fail, fmt.Errorf("kernel: list instance in ring: %w", err)
	}
	inModule, err := s.instanceLists.Append(moduleInstances, inst.Clone())
	if err != nil {
		s.instanceLists.Delete(inRing)
		inRing.Drop()
		inst.Drop()
		return fail, fmt.Errorf("kernel: list instance in module: %w", err)
	}
	inRing.Drop()
	inModule.Drop()

	return inst, nil
}

// CreateThread creates a ready thread of inst and adds it to the instance's
// thread list.
func (s *State) CreateThread(inst registry.Handle[Instance]) (registry.Handle[Thread], error) {
	value := Thread{Instance: inst.Clone(), State: ThreadReady}
	th, err := s.threads.Insert(value)
	if err != nil {
		value.Drop()
		return registry.Handle[Thread]{}, fmt.Errorf("kernel: create thread: %w", err)
	}

	var threads registry.Handle[registry.List[Thread]]
	inst.With(func(i *Instance) { threads = i.Threads.Clone() })
	defer threads.Release()

	node, err := s.threadLists.Append(threads, th.Clone())
	if err != nil {
		th.Drop()
		return registry.Handle[Thread]{}, fmt.Errorf("kernel: list thread: %w", err)
	}
	node.Drop()
	return th, nil
}

// CreatePort creates a port of type ty owned by inst and adds it to the
// instance's port list.
func (s *State) CreatePort(ty id.PortTypeID, owner registry.Handle[Instance]) (registry.Handle[Port], error) {
	if ty.IsZero() {
		return registry.Handle[Port]{}, fmt.Errorf("kernel: create port: %w", id.ErrInvalidType)
	}

	value := Port{Type: ty, Owner: owner.Clone()}
	p, err := s.ports.Insert(value)
	if err != nil {
		value.Drop()
		return registry.Handle[Port]{}, fmt.Errorf("kernel: create port: %w", err)
	}

	var ports registry.Handle[registry.List[Port]]
	owner.With(func(i *Instance) { ports = i.Ports.Clone() })
	defer ports.Release()

	node, err := s.portLists.Append(ports, p.Clone())
	if err != nil {
		p.Drop()
		return registry.Handle[Port]{}, fmt.Errorf("kernel: list port: %w", err)
	}
	node.Drop()
	return p, nil
}

// DetachInstance unlinks inst from its ring's and module's instance lists
// and clears its thread and port lists. Threads and ports still held
// elsewhere stay alive until those handles are dropped. It returns how many
// list entries were removed.
func (s *State) DetachInstance(inst registry.Handle[Instance]) int {
	var (
		module  registry.Handle[Module]
		ring    registry.Handle[Ring]
		threads registry.Handle[registry.List[Thread]]
		ports   registry.Handle[registry.List[Port]]
	)
	inst.With(func(i *Instance) {
		module = i.Module.Clone()
		ring = i.Ring.Clone()
		threads = i.Threads.Clone()
		ports = i.Ports.Clone()
	})
	defer module.Release()
	defer ring.Release()
	defer threads.Release()
	defer ports.Release()

	var ringInstances, moduleInstances registry.Handle[registry.List[Instance]]
	if ring.Valid() {
		ring.With(func(r *Ring) { ringInstances = r.Instances.Clone() })
	}
	if module.Valid() {
		module.With(func(m *Module) { moduleInstances = m.Instances.Clone() })
	}
	defer ringInstances.Release()
	defer moduleInstances.Release()

	n := 0
	if threads.Valid() {
		n += s.threadLists.Clear(threads)
	}
	if ports.Valid() {
		n += s.portLists.Clear(ports)
	}
	n += unlink(s.instanceLists, ringInstances, inst)
	n += unlink(s.instanceLists, moduleInstances, inst)

	logger.Debug("kernel: detached instance", "instance", inst.ID(), "entries", n)
	return n
}

// unlink deletes every node of list that wraps h.
func unlink[T any](lr *registry.ListRegistry[T], list registry.Handle[registry.List[T]], h registry.Handle[T]) int {
	if !list.Valid() {
		return 0
	}
	n := 0
	for node := range lr.Nodes(list) {
		v := lr.Value(node)
		if v == h && lr.Delete(node) {
			n++
		}
		v.Release()
	}
	return n
}

// Threads yields the threads of inst. Yielded handles are borrowed.
func (s *State) Threads(inst registry.Handle[Instance]) iter.Seq[registry.Handle[Thread]] {
	return func(yield func(registry.Handle[Thread]) bool) {
		var threads registry.Handle[registry.List[Thread]]
		inst.With(func(i *Instance) { threads = i.Threads.Clone() })
		defer threads.Release()
		for th := range s.threadLists.Items(threads) {
			if !yield(th) {
				return
			}
		}
	}
}

// Instances yields the instances running in ring. Yielded handles are
// borrowed.
func (s *State) Instances(ring registry.Handle[Ring]) iter.Seq[registry.Handle[Instance]] {
	return func(yield func(registry.Handle[Instance]) bool) {
		var list registry.Handle[registry.List[Instance]]
		ring.With(func(r *Ring) { list = r.Instances.Clone() })
		defer list.Release()
		for inst := range s.instanceLists.Items(list) {
			if !yield(inst) {
				return
			}
		}
	}
}

// Stats returns a snapshot of every registry, in layout order.
func (s *State) Stats() []registry.Stats {
	return []registry.Stats{
		s.rings.Stats(), s.ringLists.Lists().Stats(), s.ringLists.NodeRegistry().Stats(),
		s.modules.Stats(), s.moduleLists.Lists().Stats(), s.moduleLists.NodeRegistry().Stats(),
		s.instances.Stats(), s.instanceLists.Lists().Stats(), s.instanceLists.NodeRegistry().Stats(),
		s.threads.Stats(), s.threadLists.Lists().Stats(), s.threadLists.NodeRegistry().Stats(),
		s.ports.Stats(), s.portLists.Lists().Stats(), s.portLists.NodeRegistry().Stats(),
	}
}

// Segments returns the mapping usage of every registry segment.
func (s *State) Segments() []segment.Usage {
	segs := s.layout.Segments()
	out := make([]segment.Usage, 0, len(segs))
	for _, seg := range segs {
		out = append(out, seg.Usage())
	}
	return out
}

// FramesInUse returns how many frames are currently allocated.
func (s *State) FramesInUse() int {
	g := s.frames.Lock(spinlock.NoInterrupts{})
	defer g.Unlock()
	return len(s.tracker.Outstanding())
}

// FrameIssues returns allocator misuse recorded since boot.
func (s *State) FrameIssues() []pfa.Issue {
	g := s.frames.Lock(spinlock.NoInterrupts{})
	defer g.Unlock()
	return s.tracker.Issues()
}

// Config returns the configuration the state was booted with.
func (s *State) Config() Config { return s.cfg }

// Close releases the segments' backing memory. Every handle from s becomes
// unusable.
func (s *State) Close() error {
	return s.layout.Release()
}
