// Command viewer opens a window on a 3D scene and lets the user load,
// inspect and arrange meshes in it.
//
//	viewer [ASSET [SNAPSHOT [TEXTURE]]]
//
// With SNAPSHOT the viewer renders a single frame into that PNG file and
// exits.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scene-viewer/config"
)

type options struct {
	configPath string
	scenePath  string
	rule       string
	watch      bool

	asset    string
	snapshot string
	texture  string
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "viewer [ASSET [SNAPSHOT [TEXTURE]]]",
		Short:         "Interactive 3D scene viewer",
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, dst := range []*string{&opts.asset, &opts.snapshot, &opts.texture} {
				if i < len(args) {
					*dst = args[i]
				}
			}
			return run(opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", config.DefaultPath, "settings file, rewritten on exit")
	f.StringVar(&opts.scenePath, "scene", "scene.json", "scene file used by Ctrl+S and Ctrl+O")
	f.StringVar(&opts.rule, "rule", "", "visibility rule: both, explicit or frustum")
	f.BoolVar(&opts.watch, "watch", false, "reload assets when their files change")
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "viewer:", err)
		os.Exit(1)
	}
}
