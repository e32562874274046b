package detour_crowd

import (
	"errors"
	"fmt"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/common/logger"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/native"
)

var ErrNavmeshBusy = errors.New("detour_crowd: every query handle is borrowed")

type AgentParams = native.AgentParams

type Agent = native.CrowdAgent

// Obstacle avoidance presets understood by the engine.
const (
	AvoidanceLow uint8 = iota
	AvoidanceMedium
	AvoidanceGood
	AvoidanceHigh
)

func DefaultAgentParams() AgentParams {
	return AgentParams{
		Radius:                0.5,
		Height:                2.0,
		MaxAcceleration:       20,
		MaxSpeed:              5,
		CollisionQueryRange:   0.5 * 12,
		PathOptimizationRange: 0.5 * 30,
		SeparationWeight:      1,
		AnticipateTurns:       true,
		OptimizeVis:           true,
		OptimizeTopo:          true,
		ObstacleAvoidance:     true,
		CrowdSeparation:       true,
		ObstacleAvoidanceType: AvoidanceMedium,
		QueryFilterType:       0,
	}
}

// Crowd steers agents over a navmesh. The engine crowd reads the navmesh
// while adding, moving and updating agents, so each of those calls holds one
// handle of the navmesh query pool; tiles cannot change underneath it. The
// calls report ErrNavmeshBusy or false when no handle is free.
//
// A Crowd is not safe for concurrent use.
type Crowd struct {
	nav       *detour.Navmesh
	handle    native.Crowd
	maxAgents int32
	scratch   []Agent
}

func NewCrowd(nav *detour.Navmesh, maxAgents int32, maxAgentRadius float32) (*Crowd, error) {
	h, err := nav.Handle().CreateCrowd(maxAgents, maxAgentRadius)
	if err != nil {
		return nil, fmt.Errorf("create crowd: %w", err)
	}
	logger.Debug("crowd created, max agents: %v, max radius: %v", maxAgents, maxAgentRadius)
	return &Crowd{
		nav:       nav,
		handle:    h,
		maxAgents: maxAgents,
		scratch:   make([]Agent, maxAgents),
	}, nil
}

func (c *Crowd) MaxAgents() int32 { return c.maxAgents }

func (c *Crowd) hold() (func(), bool) {
	q, ok := c.nav.QueryPool.Pop()
	if !ok {
		return nil, false
	}
	return func() { c.nav.QueryPool.Push(q) }, true
}

// AddAgent places an agent at pos and returns its index.
func (c *Crowd) AddAgent(pos common.Vec3, params AgentParams) (int32, error) {
	release, ok := c.hold()
	if !ok {
		return -1, ErrNavmeshBusy
	}
	defer release()
	idx := c.handle.AddAgent(pos, &params)
	if idx < 0 {
		return -1, fmt.Errorf("crowd full: %d agents", c.maxAgents)
	}
	return idx, nil
}

func (c *Crowd) RemoveAgent(idx int32) {
	c.handle.RemoveAgent(idx)
}

func (c *Crowd) AgentCount() int32 {
	return c.handle.AgentCount()
}

// MoveAgent requests a new target. It reports false when the agent is
// unknown, no path exists or the navmesh is busy.
func (c *Crowd) MoveAgent(idx int32, target common.Vec3) bool {
	release, ok := c.hold()
	if !ok {
		return false
	}
	defer release()
	return c.handle.RequestMoveAgent(idx, target)
}

// Update advances the simulation by dt seconds.
func (c *Crowd) Update(dt float32) bool {
	release, ok := c.hold()
	if !ok {
		return false
	}
	defer release()
	c.handle.Update(dt)
	return true
}

func (c *Crowd) Agent(idx int32) (Agent, bool) {
	var a Agent
	if !c.handle.GetAgent(idx, &a) {
		return Agent{}, false
	}
	return a, true
}

// Agents returns a copy of every active agent.
func (c *Crowd) Agents() []Agent {
	n := c.handle.GetAgents(c.scratch)
	out := make([]Agent, n)
	copy(out, c.scratch[:n])
	return out
}

func (c *Crowd) SetAgentParams(idx int32, params AgentParams) {
	c.handle.SetAgentParams(idx, &params)
}

func (c *Crowd) AgentParams(idx int32) AgentParams {
	var p AgentParams
	c.handle.GetAgentParams(idx, &p)
	return p
}

// Close destroys the engine crowd. It must be called before the navmesh is
// closed.
func (c *Crowd) Close() {
	if c.handle != nil {
		c.handle.Destroy()
		c.handle = nil
	}
}
