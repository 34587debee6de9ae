// Package platform owns the GLFW window and its OpenGL context.
package platform

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	// GLFW and GL calls must stay on the main thread.
	runtime.LockOSThread()
}

type Window struct {
	Handle *glfw.Window
	Width  int
	Height int
	Title  string

	mu      sync.Mutex
	scroll  float64
	dropped []string
	resized bool
}

type WindowConfig struct {
	Width     int
	Height    int
	Title     string
	Resizable bool
	VSync     bool
	Visible   bool
	Samples   int
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Width:     1280,
		Height:    720,
		Title:     "Scene Viewer",
		Resizable: true,
		VSync:     true,
		Visible:   true,
		Samples:   4,
	}
}

// NewWindow opens a window with a current OpenGL 4.1 core context.
func NewWindow(config WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolToInt(config.Resizable))
	glfw.WindowHint(glfw.Visible, boolToInt(config.Visible))
	if config.Samples > 0 {
		glfw.WindowHint(glfw.Samples, config.Samples)
	}

	handle, err := glfw.CreateWindow(config.Width, config.Height, config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	handle.MakeContextCurrent()
	if config.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	window := &Window{
		Handle: handle,
		Width:  config.Width,
		Height: config.Height,
		Title:  config.Title,
	}

	handle.SetSizeCallback(func(w *glfw.Window, width, height int) {
		window.Width = width
		window.Height = height
		window.mu.Lock()
		window.resized = true
		window.mu.Unlock()
	})
	handle.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		window.mu.Lock()
		window.scroll += yoff
		window.mu.Unlock()
	})
	handle.SetDropCallback(func(w *glfw.Window, names []string) {
		window.mu.Lock()
		window.dropped = append(window.dropped, names...)
		window.mu.Unlock()
	})

	return window, nil
}

func (w *Window) ShouldClose() bool {
	return w.Handle.ShouldClose()
}

func (w *Window) SetShouldClose(v bool) {
	w.Handle.SetShouldClose(v)
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) SwapBuffers() {
	w.Handle.SwapBuffers()
}

func (w *Window) GetFramebufferSize() (int, int) {
	return w.Handle.GetFramebufferSize()
}

// GetSize returns the window size in screen coordinates, the space cursor
// positions are reported in.
func (w *Window) GetSize() (int, int) {
	return w.Handle.GetSize()
}

func (w *Window) Destroy() {
	w.Handle.Destroy()
	glfw.Terminate()
}

func (w *Window) IsKeyPressed(key int) bool {
	return w.Handle.GetKey(glfw.Key(key)) == glfw.Press
}

func (w *Window) SetTitle(title string) {
	w.Handle.SetTitle(title)
	w.Title = title
}

func (w *Window) IsMouseButtonPressed(button int) bool {
	return w.Handle.GetMouseButton(glfw.MouseButton(button)) == glfw.Press
}

func (w *Window) GetCursorPos() (float64, float64) {
	return w.Handle.GetCursorPos()
}

// TakeScroll returns the scroll accumulated since the last call.
func (w *Window) TakeScroll() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.scroll
	w.scroll = 0
	return s
}

// TakeDropped returns the paths dropped onto the window since the last call.
func (w *Window) TakeDropped() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.dropped
	w.dropped = nil
	return d
}

// TakeResized reports whether the window was resized since the last call.
func (w *Window) TakeResized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.resized
	w.resized = false
	return r
}

func boolToInt(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}
