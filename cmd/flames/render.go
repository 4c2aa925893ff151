package main

import (
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/flame"
)

func renderCmd() *cobra.Command {
	var (
		f         sceneFlags
		output    string
		frames    int
		saveScene string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render frames headlessly and write a PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			f.setupLogging()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			r, err := newRenderer(cmd, &f)
			if err != nil {
				return err
			}
			defer r.Close()

			if saveScene != "" {
				if err := writeScene(saveScene, r); err != nil {
					return err
				}
			}

			start := time.Now()
			for i := 0; i < frames; i++ {
				if err := r.Frame(ctx); err != nil {
					return err
				}
			}
			snap, err := r.Snapshot(ctx)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			if err := writePNG(output, r); err != nil {
				return err
			}
			printStats(cmd, r, snap.Stats, elapsed, output)
			return r.Close()
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "flame.png", "output PNG file")
	cmd.Flags().IntVarP(&frames, "frames", "n", 100, "frames to accumulate")
	cmd.Flags().StringVar(&saveScene, "save-scene", "", "also write the function system as scene JSON")
	return cmd
}

func writePNG(path string, r *flame.Renderer) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, r.Image()); err != nil {
		out.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return out.Close()
}

func writeScene(path string, r *flame.Renderer) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := flame.NewScene(r.Config(), r.Functions()).Write(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func printStats(cmd *cobra.Command, r *flame.Renderer, s flame.Stats, elapsed time.Duration, output string) {
	p := message.NewPrinter(language.English)
	w := cmd.OutOrStdout()
	p.Fprintf(w, "backend:   %s\n", r.Backend())
	p.Fprintf(w, "frames:    %d in %v (%.1f fps)\n", s.Frames, elapsed.Round(time.Millisecond), float64(s.Frames)/elapsed.Seconds())
	p.Fprintf(w, "hits:      %d (max %d per pixel)\n", s.TotalHits, s.MaxHits)
	p.Fprintf(w, "dropped:   %d\n", s.Dropped)
	p.Fprintf(w, "wrote:     %s\n", output)
}
