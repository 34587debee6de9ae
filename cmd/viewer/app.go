package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"scene-viewer/config"
	"scene-viewer/editor"
	"scene-viewer/internal/opengl"
	"scene-viewer/internal/platform"
	sceneio "scene-viewer/io"
	"scene-viewer/loader"
	"scene-viewer/math"
	"scene-viewer/renderer"
	"scene-viewer/scene"
)

const (
	windowTitle   = "Scene Viewer"
	shadowMapSize = 2048
	titleInterval = 500 * time.Millisecond
)

type app struct {
	opts   *options
	cfg    *config.Config
	logger *slog.Logger

	window  *platform.Window
	gl      *opengl.Renderer
	engine  *renderer.RenderEngine
	scene   *scene.Scene
	camera  *scene.OrbitCamera
	editor  *editor.Editor
	loader  *loader.Loader
	builder *sceneio.Builder
	watcher *loader.Watcher

	titleAt time.Time
}

func run(opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.rule != "" {
		cfg.View.Rule = opts.rule
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, closer, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	a, err := newApp(opts, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if opts.asset != "" {
		if err := a.open(opts.asset); err != nil {
			if opts.snapshot != "" {
				return err
			}
			logger.Error("cannot open asset", "path", opts.asset, "error", err)
		}
	}
	texture := opts.texture
	if texture == "" {
		texture = cfg.View.Texture
	}
	if texture != "" {
		if err := a.openTexture(texture); err != nil {
			logger.Warn("texture override skipped", "path", texture, "error", err)
		}
	}

	if opts.snapshot != "" {
		return a.snapshot(opts.snapshot)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if opts.watch {
		if err := a.startWatcher(ctx); err != nil {
			logger.Warn("hot reload disabled", "error", err)
		}
	}

	a.loop(ctx)
	return a.saveConfig()
}

func newApp(opts *options, cfg *config.Config, logger *slog.Logger) (*app, error) {
	wc := platform.DefaultWindowConfig()
	wc.Width, wc.Height = cfg.Window.Width, cfg.Window.Height
	wc.Title = windowTitle
	wc.Visible = opts.snapshot == ""
	if !cfg.View.AntiAliasing {
		wc.Samples = 0
	}
	win, err := platform.NewWindow(wc)
	if err != nil {
		return nil, err
	}

	glr, err := opengl.NewRenderer(logger)
	if err != nil {
		win.Destroy()
		return nil, err
	}
	fbw, fbh := win.GetFramebufferSize()
	glr.SetViewport(fbw, fbh)
	if cfg.View.Shadows {
		if err := glr.EnableShadows(shadowMapSize); err != nil {
			logger.Warn("shadows unavailable", "error", err)
		}
	}

	s := scene.NewDefaultScene()
	s.SetLogger(logger)
	s.Dispatcher.Rule = cfg.Rule()

	aspect := float32(1)
	if fbh > 0 {
		aspect = float32(fbw) / float32(fbh)
	}
	cam := scene.NewOrbitCamera(math.Vec3Zero, 10, cfg.FOVRadians(), aspect)
	cam.SetClipPlanes(cfg.Camera.Near, cfg.Camera.Far)
	cam.SetFromEye(cfg.CameraEye(), cfg.CameraDirection())

	ed := editor.NewEditor(s, cam, logger)
	ed.Toggles = editor.Toggles{
		Wireframe:   cfg.View.Wireframe,
		Environment: cfg.View.Environment,
		Grid:        cfg.View.Grid,
		GUI:         cfg.View.GUI,
		FlyMode:     cfg.View.FPSCamera,
	}
	ed.SyncEnvironment()

	engine := renderer.NewRenderEngine(glr, logger)
	engine.Shadows = cfg.View.Shadows
	engine.Wireframe = cfg.View.Wireframe

	ld := loader.New(logger, cfg.Assets.Dirs...)
	if assets, err := loader.ListAssets(cfg.Assets.Dirs); err != nil {
		logger.Warn("cannot list asset directories", "error", err)
	} else {
		logger.Info("asset directories scanned", "dirs", cfg.Assets.Dirs, "assets", len(assets))
	}

	return &app{
		opts:    opts,
		cfg:     cfg,
		logger:  logger,
		window:  win,
		gl:      glr,
		engine:  engine,
		scene:   s,
		camera:  cam,
		editor:  ed,
		loader:  ld,
		builder: &sceneio.Builder{LoadMesh: ld.Load, LoadTexture: ld.LoadTexture, Logger: logger},
	}, nil
}

func (a *app) loop(ctx context.Context) {
	last := time.Now()
	for !a.window.ShouldClose() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		a.window.PollEvents()

		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		a.frame(dt)
		a.window.SwapBuffers()
	}
}

func (a *app) frame(dt float32) {
	for _, path := range a.window.TakeDropped() {
		if err := a.open(path); err != nil {
			a.logger.Error("cannot open dropped file", "path", path, "error", err)
			a.editor.StatusText = "Cannot open " + path
		}
	}
	if a.window.TakeResized() {
		a.gl.SetViewport(a.window.GetFramebufferSize())
	}

	a.applyPending()
	a.scene.Update(dt)

	res := a.editor.Frame(editor.Capture(a.window, a.window.TakeScroll(), dt))
	if res.Quit {
		a.window.SetShouldClose(true)
	}
	if res.Save {
		a.saveScene()
	}
	if res.Open {
		if err := a.openScene(a.opts.scenePath); err != nil {
			a.logger.Error("cannot open scene", "path", a.opts.scenePath, "error", err)
			a.editor.StatusText = "Cannot open " + a.opts.scenePath
		}
	}

	a.engine.Wireframe = a.editor.Toggles.Wireframe
	var hl renderer.Highlight
	if a.editor.Toggles.GUI {
		hl = renderer.Highlight{Hover: res.Hover, Picked: res.Picked}
	}
	st, err := a.engine.Render(a.scene, hl)
	if err != nil {
		a.logger.Warn("frame rendered with errors", "error", err)
	}
	a.updateTitle(st)
}

// applyPending runs queued mutations and, when the tree changed, frees GPU
// resources the scene no longer references.
func (a *app) applyPending() {
	if a.editor.Queue.Len() == 0 {
		return
	}
	if err := a.editor.ApplyPending(); err != nil {
		a.logger.Debug("queued mutations failed", "error", err)
	}
	a.engine.Collect(a.scene)
	if a.watcher != nil {
		if err := a.watcher.Sync(a.editor.AssetSources()); err != nil {
			a.logger.Warn("cannot watch asset files", "error", err)
		}
	}
}

func (a *app) updateTitle(st renderer.Stats) {
	now := time.Now()
	if now.Sub(a.titleAt) < titleInterval {
		return
	}
	a.titleAt = now
	if !a.editor.Toggles.GUI {
		a.window.SetTitle(windowTitle)
		return
	}
	a.window.SetTitle(renderer.Title(windowTitle+" - "+a.editor.StatusText, st))
}

// open loads path according to its content: meshes are added to the scene,
// images override the texture and scene files replace the tree.
func (a *app) open(path string) error {
	resolved, err := a.loader.Locate(path)
	if err != nil {
		return err
	}
	format, err := loader.Detect(resolved)
	if err != nil {
		return err
	}

	switch {
	case format == loader.FormatScene:
		return a.openScene(resolved)
	case format == loader.FormatImage:
		return a.openTexture(resolved)
	case format.IsMesh():
		node, err := a.loader.Load(resolved)
		if err != nil {
			return err
		}
		if err := a.editor.AddNode(node); err != nil {
			return err
		}
		a.camera.Focus(node.SubtreeBounds())
		a.editor.StatusText = "Loaded " + node.Name
		return nil
	default:
		return fmt.Errorf("%w: %s", loader.ErrUnsupported, resolved)
	}
}

func (a *app) openScene(path string) error {
	root, cam, err := a.builder.Load(path)
	if root == nil {
		return err
	}
	if err != nil {
		a.logger.Warn("scene loaded partially", "path", path, "error", err)
	}
	if err := a.editor.ReplaceRoot(root); err != nil {
		return err
	}
	sceneio.ApplyCamera(cam, a.camera)
	a.editor.StatusText = "Opened " + path
	return nil
}

func (a *app) openTexture(path string) error {
	tex, err := a.loader.LoadTexture(path)
	if err != nil {
		return err
	}
	if err := a.editor.OverrideTexture(tex); err != nil {
		return err
	}
	a.cfg.View.Texture = path
	return nil
}

func (a *app) saveScene() {
	if err := sceneio.Save(a.opts.scenePath, a.scene, a.camera); err != nil {
		a.logger.Error("cannot save scene", "path", a.opts.scenePath, "error", err)
		a.editor.StatusText = "Save failed"
		return
	}
	a.logger.Info("scene saved", "path", a.opts.scenePath)
	a.editor.StatusText = "Saved " + a.opts.scenePath
}

func (a *app) startWatcher(ctx context.Context) error {
	w, err := loader.NewWatcher(a.logger)
	if err != nil {
		return err
	}
	a.watcher = w
	if err := w.Sync(a.editor.AssetSources()); err != nil {
		a.logger.Warn("cannot watch asset files", "error", err)
	}

	go func() {
		err := w.Run(ctx, a.reload)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("file watcher stopped", "error", err)
		}
	}()
	return nil
}

// reload runs on the watcher goroutine. Only the queue is touched here.
func (a *app) reload(path string) {
	fresh, err := a.loader.Load(path)
	if err != nil {
		a.logger.Warn("reload failed", "path", path, "error", err)
		return
	}
	if err := a.editor.QueueReload(path, fresh); err != nil {
		a.logger.Warn("reload dropped", "path", path, "error", err)
	}
}

// snapshot renders one frame without overlays and writes it to path.
func (a *app) snapshot(path string) error {
	a.editor.Toggles.GUI = false
	a.editor.Toggles.Wireframe = false
	a.engine.Wireframe = false

	if err := a.editor.ApplyPending(); err != nil {
		a.logger.Warn("scene loaded with errors", "error", err)
	}
	w, h := a.window.GetFramebufferSize()
	a.gl.SetViewport(w, h)
	a.camera.UpdateAspectRatio(float32(w), float32(h))
	a.scene.Update(0)

	if _, err := a.engine.Render(a.scene, renderer.Highlight{}); err != nil {
		a.logger.Warn("snapshot rendered with errors", "error", err)
	}
	return a.gl.SaveSnapshot(path)
}

func (a *app) saveConfig() error {
	t := a.editor.Toggles
	a.cfg.View.Wireframe = t.Wireframe
	a.cfg.View.Environment = t.Environment
	a.cfg.View.Grid = t.Grid
	a.cfg.View.GUI = t.GUI
	a.cfg.View.FPSCamera = t.FlyMode
	a.cfg.Window.Width, a.cfg.Window.Height = a.window.Width, a.window.Height
	a.cfg.SetCamera(a.camera.Position, a.camera.GetForward())
	return config.Save(a.opts.configPath, a.cfg)
}

func (a *app) close() {
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			a.logger.Warn("closing file watcher", "error", err)
		}
	}
	a.gl.Destroy()
	a.window.Destroy()
}
