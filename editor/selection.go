package editor

import (
	"scene-viewer/math"
	"scene-viewer/scene"
)

// Selection tracks the node under the pointer and the picked node.
type Selection struct {
	Hover  *scene.Node
	Picked *scene.Node
}

// NewSelection creates an empty selection
func NewSelection() *Selection {
	return &Selection{}
}

// Clear removes all selections
func (s *Selection) Clear() {
	s.Hover = nil
	s.Picked = nil
}

// Select makes node the picked node. A nil node clears the pick.
func (s *Selection) Select(node *scene.Node) {
	s.Picked = node
}

// IsSelected checks if a node is the picked node
func (s *Selection) IsSelected(node *scene.Node) bool {
	return node != nil && s.Picked == node
}

// HasSelection returns true if a node is picked
func (s *Selection) HasSelection() bool {
	return s.Picked != nil
}

// Prune drops references to nodes that are no longer part of sc.
func (s *Selection) Prune(sc *scene.Scene) {
	if s.Hover != nil && !sc.Contains(s.Hover) {
		s.Hover = nil
	}
	if s.Picked != nil && !sc.Contains(s.Picked) {
		s.Picked = nil
	}
}

// Center returns the world-space center of the picked node's subtree, or
// its origin when the subtree has no extent.
func (s *Selection) Center() math.Vec3 {
	if s.Picked == nil {
		return math.Vec3Zero
	}
	if b := s.Picked.SubtreeBounds(); b.IsValid() {
		return b.Center()
	}
	return s.Picked.WorldTransform().Translation()
}
