package scene

import (
	"errors"
	"fmt"
)

var (
	// ErrStructural matches every error returned for a rejected tree edit.
	ErrStructural = errors.New("structural error")

	ErrNilNode  = fmt.Errorf("%w: nil node", ErrStructural)
	ErrCycle    = fmt.Errorf("%w: node would become its own ancestor", ErrStructural)
	ErrNotFound = fmt.Errorf("%w: node is not a direct child", ErrStructural)

	// ErrMissingResource is returned by draw functions when the node has
	// nothing the backend can draw. The node is skipped for that pass.
	ErrMissingResource = errors.New("missing resource")
)

// StructuralError reports a rejected AddChild or RemoveChild. The tree is left
// unchanged.
type StructuralError struct {
	Op     string
	Parent string
	Child  string
	Err    error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s %q -> %q: %v", e.Op, e.Parent, e.Child, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

func structuralError(op string, parent, child *Node, err error) error {
	se := &StructuralError{Op: op, Err: err}
	if parent != nil {
		se.Parent = parent.Name
	}
	if child != nil {
		se.Child = child.Name
	}
	return se
}
