package kernel

import (
	"fmt"

	"github.com/joshuapare/slabkit/arena/registry"
	"github.com/joshuapare/slabkit/kernel/id"
)

// Object kinds, in segment layout order.
const (
	KindRing     = "ring"
	KindModule   = "module"
	KindInstance = "instance"
	KindThread   = "thread"
	KindPort     = "port"
)

// Kinds lists every object kind the kernel keeps a registry for.
var Kinds = []string{KindRing, KindModule, KindInstance, KindThread, KindPort}

// NoRingID marks a ring whose id has not been assigned yet.
const NoRingID = ^uint64(0)

// Ring is an isolation domain. Every ring except the root has a parent.
type Ring struct {
	ID        uint64
	Parent    registry.Handle[Ring]
	Instances registry.Handle[registry.List[Instance]]
}

func (r *Ring) Drop() {
	r.Parent.Release()
	r.Instances.Release()
}

// Module is a loadable unit of code, identified by its module id.
type Module struct {
	ID        id.ModuleID
	Instances registry.Handle[registry.List[Instance]]
}

func (m *Module) Drop() { m.Instances.Release() }

// Instance is a module instantiated in a ring.
type Instance struct {
	Module  registry.Handle[Module]
	Ring    registry.Handle[Ring]
	Threads registry.Handle[registry.List[Thread]]
	Ports   registry.Handle[registry.List[Port]]
}

func (i *Instance) Drop() {
	i.Module.Release()
	i.Ring.Release()
	i.Threads.Release()
	i.Ports.Release()
}

// ThreadState is the scheduling state of a thread.
type ThreadState uint8

const (
	ThreadReady ThreadState = iota
	ThreadRunning
	ThreadBlocked
	ThreadExited
)

func (s ThreadState) String() string {
	switch s {
	case ThreadReady:
		return "ready"
	case ThreadRunning:
		return "running"
	case ThreadBlocked:
		return "blocked"
	case ThreadExited:
		return "exited"
	default:
		return fmt.Sprintf("ThreadState(%d)", uint8(s))
	}
}

// Thread is a schedulable context belonging to an instance.
type Thread struct {
	Instance registry.Handle[Instance]
	State    ThreadState
}

func (t *Thread) Drop() { t.Instance.Release() }

// Port is a typed communication endpoint owned by an instance.
type Port struct {
	Type  id.PortTypeID
	Owner registry.Handle[Instance]
}

func (p *Port) Drop() { p.Owner.Release() }

var (
	_ registry.Dropper = (*Ring)(nil)
	_ registry.Dropper = (*Module)(nil)
	_ registry.Dropper = (*Instance)(nil)
	_ registry.Dropper = (*Thread)(nil)
	_ registry.Dropper = (*Port)(nil)
)
