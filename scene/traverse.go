package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"scene-viewer/math"
)

// VisibilityRule decides which of a node's flags gate drawing and picking.
type VisibilityRule int

const (
	// GateBoth requires the explicit flag and the frustum result.
	GateBoth VisibilityRule = iota
	// GateExplicit ignores the frustum result.
	GateExplicit
	// GateFrustum ignores the explicit flag.
	GateFrustum
)

func (r VisibilityRule) String() string {
	switch r {
	case GateExplicit:
		return "explicit"
	case GateFrustum:
		return "frustum"
	default:
		return "both"
	}
}

func ParseVisibilityRule(s string) (VisibilityRule, error) {
	switch strings.ToLower(s) {
	case "", "both":
		return GateBoth, nil
	case "explicit":
		return GateExplicit, nil
	case "frustum":
		return GateFrustum, nil
	}
	return GateBoth, fmt.Errorf("unknown visibility rule %q", s)
}

// Passes reports whether n is effectively visible under r.
func (r VisibilityRule) Passes(n *Node) bool {
	switch r {
	case GateExplicit:
		return n.Visible
	case GateFrustum:
		return n.inFrustum
	default:
		return n.Visible && n.inFrustum
	}
}

type UpdateStats struct {
	Visited int
	Culled  int
}

type DrawStats struct {
	Drawn   int
	Skipped int // subtrees rejected by the visibility rule
	Missing int // nodes with nothing to draw
	Failed  int // backend errors
}

func (s *DrawStats) Add(other DrawStats) {
	s.Drawn += other.Drawn
	s.Skipped += other.Skipped
	s.Missing += other.Missing
	s.Failed += other.Failed
}

// Dispatcher runs the update and draw passes over a tree, dispatching
// per-kind work through Registry.
type Dispatcher struct {
	Registry *Registry
	Rule     VisibilityRule
	Logger   *slog.Logger
}

// NewDispatcher returns a dispatcher over DefaultRegistry.
func NewDispatcher(rule VisibilityRule, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{Registry: DefaultRegistry, Rule: rule, Logger: logger}
}

var defaultDispatcher = NewDispatcher(GateBoth, nil)

// Update walks the tree in pre-order. Each node's world matrix becomes
// local * parentWorld and its frustum flag is set from its world bounds.
// A nil frustum marks every node as inside.
func Update(root *Node, parentWorld math.Mat4, frustum *Frustum, dt float32) UpdateStats {
	return defaultDispatcher.Update(root, parentWorld, frustum, dt)
}

// Draw walks the tree for one pass using the default registry.
func Draw(root *Node, pass DrawPass, backend Backend, rule VisibilityRule) DrawStats {
	d := *defaultDispatcher
	d.Rule = rule
	return d.Draw(root, pass, backend)
}

func (d *Dispatcher) Update(root *Node, parentWorld math.Mat4, frustum *Frustum, dt float32) UpdateStats {
	var stats UpdateStats
	if root != nil {
		d.update(root, parentWorld, frustum, dt, &stats)
	}
	return stats
}

func (d *Dispatcher) update(n *Node, parentWorld math.Mat4, frustum *Frustum, dt float32, stats *UpdateStats) {
	stats.Visited++
	n.world = n.local.Mul(parentWorld)
	n.inFrustum = IsInsideFrustum(n.Bounds.Transform(n.world), frustum)
	if !n.inFrustum {
		stats.Culled++
	}
	if b, ok := d.Registry.Lookup(n.Kind); ok && b.Update != nil {
		b.Update(n, n.world, dt)
	}
	for _, c := range n.children {
		d.update(c, n.world, frustum, dt, stats)
	}
}

// Draw walks the tree in pre-order. A node rejected by the visibility rule
// is skipped with its whole subtree. Nodes in the pass are handed to their
// kind's draw function with the world matrix from the last Update. Children
// are visited whether or not the parent drew anything.
func (d *Dispatcher) Draw(root *Node, pass DrawPass, backend Backend) DrawStats {
	var stats DrawStats
	if root != nil {
		d.draw(root, pass, backend, &stats)
	}
	return stats
}

func (d *Dispatcher) draw(n *Node, pass DrawPass, backend Backend, stats *DrawStats) {
	if !d.Rule.Passes(n) {
		stats.Skipped++
		return
	}
	if n.InPass(pass) {
		if b, ok := d.Registry.Lookup(n.Kind); ok && b.Draw != nil {
			err := b.Draw(n, pass, n.world, backend)
			switch {
			case err == nil:
				stats.Drawn++
			case errors.Is(err, ErrMissingResource):
				stats.Missing++
				d.Logger.Debug("skipping node without resource", "node", n.Name, "pass", pass.String())
			default:
				stats.Failed++
				d.Logger.Warn("draw failed", "node", n.Name, "pass", pass.String(), "error", err)
			}
		}
	}
	for _, c := range n.children {
		d.draw(c, pass, backend, stats)
	}
}
