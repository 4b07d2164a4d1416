package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/npratt/cactus/internal/glyph"
)

func newRenderCmd() *cobra.Command {
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Write a tray glyph PNG for a given progress fraction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			fraction, _ := flags.GetFloat64(FlagFraction)
			out, _ := flags.GetString(FlagOut)
			theme, _ := flags.GetString(FlagTheme)
			canvas, _ := flags.GetBool(FlagCanvas)

			if out == "" {
				return fmt.Errorf("--%s is required", FlagOut)
			}
			if fraction < 0 || fraction > 1 {
				return fmt.Errorf("--%s must be between 0 and 1, got %g", FlagFraction, fraction)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts := trayOptions(cfg.Tray)

			data, err := renderGlyph(fraction, theme, opts, canvas)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			w, h := opts.PointSize()
			if canvas {
				w, h = opts.CanvasSize()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d)\n", out, w, h)
			return nil
		},
	}
	renderCmd.Flags().Float64(FlagFraction, 0.5, "Elapsed fraction to draw (0-1)")
	renderCmd.Flags().String(FlagOut, "", "Output PNG path")
	renderCmd.Flags().String(FlagTheme, glyph.DefaultTheme, "Theme whose primary color fills the heart")
	renderCmd.Flags().Bool(FlagCanvas, false, "Write the supersampled canvas instead of the display-size icon")
	return renderCmd
}

// renderGlyph draws the heart and encodes it as PNG.
func renderGlyph(fraction float64, theme string, opts glyph.Options, canvas bool) ([]byte, error) {
	img, err := glyph.Render(fraction, glyph.ThemeColor(theme), opts)
	if err != nil {
		return nil, fmt.Errorf("render glyph: %w", err)
	}
	if canvas {
		return img.CanvasPNG()
	}
	return img.PNG()
}
