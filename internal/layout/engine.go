package layout

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"prism/internal/analysis"
)

// Config holds the simulation tuning constants.
type Config struct {
	Width, Height float64
	// Repulsion scales the inverse-square force pushing nodes apart.
	Repulsion float64
	// Centering pulls unpinned nodes toward the viewport center.
	Centering float64
	// SpringK scales the link force proportional to (distance - RestLength).
	SpringK    float64
	RestLength float64
	// Damping is the multiplicative velocity decay per tick.
	Damping float64
	// MarginX/MarginY keep node centers off the viewport edge so labels
	// stay visible.
	MarginX, MarginY float64
	// Jitter is the initial random offset around the center.
	Jitter float64
}

// DefaultConfig returns the tuning used by the dashboard view.
func DefaultConfig(width, height float64) Config {
	return Config{
		Width:      width,
		Height:     height,
		Repulsion:  2500,
		Centering:  0.003,
		SpringK:    0.015,
		RestLength: 170,
		Damping:    0.9,
		MarginX:    50,
		MarginY:    30,
		Jitter:     100,
	}
}

// Node is a simulated graph node: a concept plus position, velocity, and an
// optional pin while the user drags it.
type Node struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	X, Y   float64 `json:"-"`
	VX, VY float64 `json:"-"`

	pinned     bool
	pinX, pinY float64
}

type link struct {
	source, target int
	relationship   string
}

// Position is a render-ready snapshot of one node.
type Position struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Edge is a render-ready snapshot of one link.
type Edge struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	Relationship string  `json:"relationship"`
	X1, Y1       float64 `json:"-"`
	X2, Y2       float64 `json:"-"`
}

// Engine runs the force-directed simulation for one concept graph. It is
// owned by exactly one active view; a new graph replaces all node state.
type Engine struct {
	mu    sync.Mutex
	cfg   Config
	nodes []*Node
	links []link
	rng   *rand.Rand
}

func New(cfg Config) *Engine {
	if cfg.Width <= 0 {
		cfg.Width = 800
	}
	if cfg.Height <= 0 {
		cfg.Height = 600
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetGraph replaces the simulated graph. Nodes start at the viewport center
// plus small random jitter so the first repulsion pass is well defined.
// Links are resolved by id; any link whose endpoint is missing is dropped.
func (e *Engine) SetGraph(data *analysis.ConceptMapData) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nodes = e.nodes[:0]
	e.links = e.links[:0]
	if data == nil {
		return
	}

	index := make(map[string]int, len(data.Nodes))
	for _, n := range data.Nodes {
		if _, dup := index[n.ID]; dup || n.ID == "" {
			continue
		}
		index[n.ID] = len(e.nodes)
		e.nodes = append(e.nodes, &Node{
			ID:    n.ID,
			Label: n.Label,
			X:     e.cfg.Width/2 + (e.rng.Float64()-0.5)*e.cfg.Jitter,
			Y:     e.cfg.Height/2 + (e.rng.Float64()-0.5)*e.cfg.Jitter,
		})
	}
	for _, l := range data.Links {
		si, ok := index[l.Source]
		if !ok {
			continue
		}
		ti, ok := index[l.Target]
		if !ok {
			continue
		}
		e.links = append(e.links, link{source: si, target: ti, relationship: l.Relationship})
	}
}

// Empty reports whether there is nothing to simulate.
func (e *Engine) Empty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.nodes) == 0
}

// Step advances the simulation one discrete physics tick.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.cfg
	nodes := e.nodes

	// Pinned nodes track the pointer exactly and carry no velocity, but
	// still exert repulsion on the rest.
	for _, n := range nodes {
		if n.pinned {
			n.X, n.Y = n.pinX, n.pinY
			n.VX, n.VY = 0, 0
		}
	}

	// Pairwise inverse-square repulsion. Distance is clamped to 1 unit so
	// coincident nodes never produce unbounded or NaN forces.
	for i := 0; i < len(nodes); i++ {
		a := nodes[i]
		for j := i + 1; j < len(nodes); j++ {
			b := nodes[j]
			dx := b.X - a.X
			dy := b.Y - a.Y
			dist := math.Hypot(dx, dy)
			if dist < 1 {
				dist = 1
			}
			force := -cfg.Repulsion / (dist * dist)
			fx := force * dx / dist
			fy := force * dy / dist
			if !a.pinned {
				a.VX += fx
				a.VY += fy
			}
			if !b.pinned {
				b.VX -= fx
				b.VY -= fy
			}
		}
		if !a.pinned {
			a.VX += (cfg.Width/2 - a.X) * cfg.Centering
			a.VY += (cfg.Height/2 - a.Y) * cfg.Centering
		}
	}

	// Spring force along each link toward the rest length.
	for _, l := range e.links {
		src := nodes[l.source]
		dst := nodes[l.target]
		dx := dst.X - src.X
		dy := dst.Y - src.Y
		dist := math.Hypot(dx, dy)
		if dist <= 0 {
			continue
		}
		force := (dist - cfg.RestLength) * cfg.SpringK
		fx := force * dx / dist
		fy := force * dy / dist
		if !src.pinned {
			src.VX += fx
			src.VY += fy
		}
		if !dst.pinned {
			dst.VX -= fx
			dst.VY -= fy
		}
	}

	// Integrate with damping, then clamp into the visible area.
	for _, n := range nodes {
		if n.pinned {
			continue
		}
		n.VX *= cfg.Damping
		n.VY *= cfg.Damping
		n.X += n.VX
		n.Y += n.VY
		n.X = clamp(n.X, cfg.MarginX, cfg.Width-cfg.MarginX)
		n.Y = clamp(n.Y, cfg.MarginY, cfg.Height-cfg.MarginY)
	}
}

// Run ticks the simulation at the given interval until the context is
// canceled. An empty graph never starts the loop.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if e.Empty() {
		return
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Step()
		}
	}
}

// Drag pins a node to the pointer position. While pinned it is excluded
// from force accumulation as a mover.
func (e *Engine) Drag(id string, x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, n := range e.nodes {
		if n.ID == id {
			n.pinned = true
			n.pinX, n.pinY = x, y
			n.X, n.Y = x, y
			n.VX, n.VY = 0, 0
			return
		}
	}
}

// Release unpins a node; it rejoins free simulation from its last dragged
// position with zero velocity.
func (e *Engine) Release(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, n := range e.nodes {
		if n.ID == id {
			n.pinned = false
			n.VX, n.VY = 0, 0
			return
		}
	}
}

// Positions returns a render snapshot of all nodes.
func (e *Engine) Positions() []Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Position, len(e.nodes))
	for i, n := range e.nodes {
		out[i] = Position{ID: n.ID, Label: n.Label, X: n.X, Y: n.Y}
	}
	return out
}

// Edges returns a render snapshot of all links with endpoint coordinates.
func (e *Engine) Edges() []Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Edge, len(e.links))
	for i, l := range e.links {
		src, dst := e.nodes[l.source], e.nodes[l.target]
		out[i] = Edge{
			Source:       src.ID,
			Target:       dst.ID,
			Relationship: l.relationship,
			X1:           src.X, Y1: src.Y,
			X2: dst.X, Y2: dst.Y,
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}
