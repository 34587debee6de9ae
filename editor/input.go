package editor

import (
	"scene-viewer/core"
)

// FrameInput is the pointer, key and viewport state for one frame. Width
// and Height are in the same screen coordinates as the cursor.
type FrameInput struct {
	Width, Height  int
	MouseX, MouseY float64
	Buttons        [3]bool
	Keys           map[int]bool
	Scroll         float64
	DeltaTime      float32
}

// InputSource is polled by Capture. The platform window satisfies it.
type InputSource interface {
	GetCursorPos() (float64, float64)
	IsMouseButtonPressed(button int) bool
	IsKeyPressed(key int) bool
	GetSize() (int, int)
}

// Capture polls src into a FrameInput.
func Capture(src InputSource, scroll float64, dt float32) FrameInput {
	in := FrameInput{Scroll: scroll, DeltaTime: dt, Keys: make(map[int]bool)}
	in.Width, in.Height = src.GetSize()
	in.MouseX, in.MouseY = src.GetCursorPos()
	for b := range in.Buttons {
		in.Buttons[b] = src.IsMouseButtonPressed(b)
	}
	for _, k := range core.PolledKeys {
		if src.IsKeyPressed(k) {
			in.Keys[k] = true
		}
	}
	return in
}

// dragThreshold is how far, in pixels, the pointer may move between press
// and release for the gesture to still count as a click.
const dragThreshold = 4

// InputManager tracks mouse and keyboard state for the editor
type InputManager struct {
	// Mouse state
	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	ScrollDelta              float64

	// Button states
	mouseButtons     [3]bool
	mouseButtonsPrev [3]bool
	pressX, pressY   [3]float64
	dragged          [3]bool

	// Key states
	keys     [core.KeyLast]bool
	keysPrev [core.KeyLast]bool

	// Modifiers
	ShiftDown bool
	CtrlDown  bool
	AltDown   bool

	firstFrame bool
}

func NewInputManager() *InputManager {
	return &InputManager{firstFrame: true}
}

// Update should be called once per frame with that frame's input
func (im *InputManager) Update(in FrameInput) {
	if im.firstFrame {
		im.MouseX, im.MouseY = in.MouseX, in.MouseY
		im.firstFrame = false
	}
	im.MouseDeltaX = in.MouseX - im.MouseX
	im.MouseDeltaY = in.MouseY - im.MouseY
	im.MouseX = in.MouseX
	im.MouseY = in.MouseY
	im.ScrollDelta = in.Scroll

	// Save previous states
	im.mouseButtonsPrev = im.mouseButtons
	im.keysPrev = im.keys

	im.mouseButtons = in.Buttons
	for b, down := range im.mouseButtons {
		switch {
		case down && !im.mouseButtonsPrev[b]:
			im.pressX[b], im.pressY[b] = in.MouseX, in.MouseY
			im.dragged[b] = false
		case down || im.mouseButtonsPrev[b]:
			dx, dy := in.MouseX-im.pressX[b], in.MouseY-im.pressY[b]
			if dx*dx+dy*dy > dragThreshold*dragThreshold {
				im.dragged[b] = true
			}
		}
	}

	clear(im.keys[:])
	for k, down := range in.Keys {
		if down && k >= 0 && k < len(im.keys) {
			im.keys[k] = true
		}
	}

	im.ShiftDown = im.keys[core.KeyLeftShift] || im.keys[core.KeyRightShift]
	im.CtrlDown = im.keys[core.KeyLeftControl] || im.keys[core.KeyRightControl] ||
		im.keys[core.KeyLeftSuper] || im.keys[core.KeyRightSuper]
	im.AltDown = im.keys[core.KeyLeftAlt] || im.keys[core.KeyRightAlt]
}

// --- Mouse Queries ---

func (im *InputManager) IsMouseDown(button int) bool {
	if button < 0 || button >= len(im.mouseButtons) {
		return false
	}
	return im.mouseButtons[button]
}

func (im *InputManager) IsMousePressed(button int) bool {
	if button < 0 || button >= len(im.mouseButtons) {
		return false
	}
	return im.mouseButtons[button] && !im.mouseButtonsPrev[button]
}

func (im *InputManager) IsMouseReleased(button int) bool {
	if button < 0 || button >= len(im.mouseButtons) {
		return false
	}
	return !im.mouseButtons[button] && im.mouseButtonsPrev[button]
}

// IsDragging reports whether button is held and has moved past the click
// threshold since it was pressed.
func (im *InputManager) IsDragging(button int) bool {
	return im.IsMouseDown(button) && im.dragged[button]
}

// IsClicked reports a release of button that ends a press without a drag.
func (im *InputManager) IsClicked(button int) bool {
	return im.IsMouseReleased(button) && !im.dragged[button]
}

// --- Key Queries ---

func (im *InputManager) IsKeyDown(key int) bool {
	if key < 0 || key >= len(im.keys) {
		return false
	}
	return im.keys[key]
}

func (im *InputManager) IsKeyPressed(key int) bool {
	if key < 0 || key >= len(im.keys) {
		return false
	}
	return im.keys[key] && !im.keysPrev[key]
}

// IsShortcut checks for a Ctrl+key press without Shift
func (im *InputManager) IsShortcut(key int) bool {
	return im.CtrlDown && !im.ShiftDown && im.IsKeyPressed(key)
}

// IsShiftShortcut checks for Ctrl+Shift+key press
func (im *InputManager) IsShiftShortcut(key int) bool {
	return im.CtrlDown && im.ShiftDown && im.IsKeyPressed(key)
}
