package main

import (
	"context"
	"log/slog"

	"github.com/gogpu/gogpu"
	"github.com/gogpu/gpucontext"
	"github.com/spf13/cobra"

	"github.com/gogpu/flame"
	"github.com/gogpu/flame/present"
)

func viewCmd() *cobra.Command {
	var (
		f   sceneFlags
		hud bool
	)
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Render continuously into a window (Space resets the accumulator)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			f.setupLogging()
			return runView(cmd, &f, hud)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&hud, "hud", true, "draw frame statistics")
	return cmd
}

func runView(cmd *cobra.Command, f *sceneFlags, hud bool) error {
	app := gogpu.NewApp(gogpu.DefaultConfig().
		WithTitle("flames").
		WithSize(f.width, f.height).
		WithContinuousRender(false))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		r         *flame.Renderer
		failed    bool
		presenter = present.New()
		animToken *gogpu.AnimationToken
	)

	app.OnDraw(func(dc *gogpu.Context) {
		if failed {
			return
		}
		if r == nil {
			var opts []flame.Option
			if provider := app.GPUContextProvider(); provider != nil {
				opts = append(opts, flame.WithDeviceProvider(provider))
			}
			opts = append(opts, flame.WithHUD(hud))
			var err error
			if r, err = newRenderer(cmd, f, opts...); err != nil {
				flame.Logger().Error("flames: create renderer", "err", err)
				failed = true
				return
			}
			animToken = app.StartAnimation()
		}

		if err := r.Frame(ctx); err != nil {
			flame.Logger().Error("flames: frame", "err", err)
			failed = true
			return
		}
		if err := presenter.Present(dc.AsTextureDrawer(), r.Image()); err != nil {
			flame.Logger().Warn("flames: present", "err", err)
		}
	})

	app.EventSource().OnKeyPress(func(key gpucontext.Key, _ gpucontext.Modifiers) {
		if key != gpucontext.KeySpace || r == nil {
			return
		}
		r.Reset()
		flame.Logger().Debug("flames: reset requested", slog.String("camera", r.Camera().String()))
	})

	app.OnClose(func() {
		if animToken != nil {
			animToken.Stop()
		}
		_ = presenter.Close()
		if r != nil {
			if err := r.Close(); err != nil {
				flame.Logger().Warn("flames: close", "err", err)
			}
		}
	})

	return app.Run()
}
