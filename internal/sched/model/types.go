package model

// Vec3i is an integer cell position inside a domain.
type Vec3i struct{ X, Y, Z int }

func (v Vec3i) DistSqTo(o Vec3i) int {
	dx := v.X - o.X
	dy := v.Y - o.Y
	dz := v.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// Category names one kind of assignable work (hauling, construction, ...).
type Category string

// Agent is the scheduler's per-tick view of a simulation entity. The
// scheduler never owns agent lifetime; it only reads this state.
type Agent struct {
	ID       string
	DomainID string
	Pos      Vec3i
}

// Target is a non-owning reference to an entity or cell a task can be
// performed on. Identity is scoped to the domain it was discovered in.
type Target struct {
	ID  string
	Pos Vec3i
}

// Task is the handle produced by a provider's factory. What the task does
// once started belongs to the surrounding simulation.
type Task struct {
	TaskID      string
	ProviderID  string
	Category    Category
	AgentID     string
	TargetID    string
	TargetPos   Vec3i
	StartedTick uint64
}
