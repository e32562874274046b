package softnav

import (
	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/native"
)

const crowdMaxCorners = 256

type crowdAgent struct {
	active       bool
	state        uint8
	partial      bool
	params       native.AgentParams
	pos          common.Vec3
	vel          common.Vec3
	desiredSpeed float32
	corners      []common.Vec3
}

// crowd moves agents along straight paths at their max speed. It has no
// local avoidance.
type crowd struct {
	q       *query
	agents  []crowdAgent
	extents common.Vec3
}

func newCrowd(nav *navMesh, maxAgents int32, maxAgentRadius float32) *crowd {
	return &crowd{
		q:       newQuery(nav, 4096),
		agents:  make([]crowdAgent, maxAgents),
		extents: common.Vec3{maxAgentRadius * 2, maxAgentRadius * 1.5, maxAgentRadius * 2},
	}
}

func (c *crowd) agent(idx int32) *crowdAgent {
	if idx < 0 || int(idx) >= len(c.agents) {
		return nil
	}
	return &c.agents[idx]
}

func (c *crowd) AddAgent(pos common.Vec3, params *native.AgentParams) int32 {
	for i := range c.agents {
		ag := &c.agents[i]
		if ag.active {
			continue
		}
		*ag = crowdAgent{active: true, params: *params, pos: pos}
		var snapped common.Vec3
		if c.q.GetLocation(pos, c.extents, &snapped) {
			ag.pos = snapped
			ag.state = native.AgentStateWalking
		} else {
			ag.state = native.AgentStateInvalid
		}
		return int32(i)
	}
	return -1
}

func (c *crowd) RemoveAgent(idx int32) {
	if ag := c.agent(idx); ag != nil {
		ag.active = false
	}
}

func (c *crowd) AgentCount() int32 {
	n := int32(0)
	for i := range c.agents {
		if c.agents[i].active {
			n++
		}
	}
	return n
}

func (c *crowd) SetAgentParams(idx int32, params *native.AgentParams) {
	if ag := c.agent(idx); ag != nil && ag.active {
		ag.params = *params
	}
}

func (c *crowd) GetAgentParams(idx int32, params *native.AgentParams) {
	if ag := c.agent(idx); ag != nil {
		*params = ag.params
	}
}

func (c *crowd) RequestMoveAgent(idx int32, pos common.Vec3) bool {
	ag := c.agent(idx)
	if ag == nil || !ag.active || ag.state != native.AgentStateWalking {
		return false
	}
	pq := native.PathFindQuery{
		Source:                ag.pos,
		Target:                pos,
		FindNearestPolyExtent: c.extents,
		MaxPathPoints:         crowdMaxCorners,
	}
	res := native.PathFindResult{PathPoints: make([]common.Vec3, crowdMaxCorners)}
	c.q.FindStraightPath(&pq, &res)
	if !res.PathFound || res.NumPathPoints == 0 {
		return false
	}
	ag.corners = res.PathPoints[1:res.NumPathPoints]
	last := res.PathPoints[res.NumPathPoints-1]
	ag.partial = common.Vec2{last[0] - pos[0], last[2] - pos[2]}.Len() > c.extents[0]
	return true
}

func (c *crowd) Update(dt float32) {
	if dt <= 0 {
		return
	}
	for i := range c.agents {
		ag := &c.agents[i]
		if !ag.active || ag.state != native.AgentStateWalking {
			continue
		}
		if len(ag.corners) == 0 {
			ag.vel = common.Vec3{}
			ag.desiredSpeed = 0
			continue
		}
		budget := ag.params.MaxSpeed * dt
		start := ag.pos
		for budget > 0 && len(ag.corners) > 0 {
			to := ag.corners[0].Sub(ag.pos)
			d := to.Len()
			if d <= budget {
				ag.pos = ag.corners[0]
				ag.corners = ag.corners[1:]
				budget -= d
				continue
			}
			ag.pos = ag.pos.Add(to.Mul(budget / d))
			budget = 0
		}
		var snapped common.Vec3
		if c.q.GetLocation(ag.pos, c.extents, &snapped) {
			ag.pos[1] = snapped[1]
		}
		ag.vel = ag.pos.Sub(start).Mul(1 / dt)
		ag.desiredSpeed = ag.params.MaxSpeed
		if len(ag.corners) == 0 {
			ag.desiredSpeed = 0
		}
	}
}

func (c *crowd) fill(idx int32, ag *crowdAgent, out *native.CrowdAgent) {
	*out = native.CrowdAgent{
		Index:        idx,
		Active:       ag.active,
		State:        ag.state,
		Partial:      ag.partial,
		DesiredSpeed: ag.desiredSpeed,
		Position:     ag.pos,
		Velocity:     ag.vel,
	}
}

func (c *crowd) GetAgent(idx int32, out *native.CrowdAgent) bool {
	ag := c.agent(idx)
	if ag == nil || !ag.active {
		return false
	}
	c.fill(idx, ag, out)
	return true
}

func (c *crowd) GetAgents(out []native.CrowdAgent) int32 {
	n := 0
	for i := range c.agents {
		if n >= len(out) {
			break
		}
		if c.agents[i].active {
			c.fill(int32(i), &c.agents[i], &out[n])
			n++
		}
	}
	return int32(n)
}

func (c *crowd) Destroy() {
	c.agents = nil
	c.q.Destroy()
}
