package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jsphweid/meigen/constants"
	"github.com/jsphweid/meigen/exercise"
	"github.com/jsphweid/meigen/midi"
	"github.com/jsphweid/meigen/model"
	"github.com/jsphweid/meigen/sample"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	outDir   string
	start    int
	end      int
	excerpts bool
	withMidi bool
}

var renderOpts renderOptions

func init() {
	addRenderFlags(renderCmd, &renderOpts)
	rootCmd.AddCommand(renderCmd)
}

func addRenderFlags(c *cobra.Command, opts *renderOptions) {
	c.Flags().StringVarP(&opts.outDir, "out", "o", constants.GetOutDir(), "output directory")
	c.Flags().IntVar(&opts.start, "start", 0, "first measure (default: first in file)")
	c.Flags().IntVar(&opts.end, "end", 0, "last measure (default: last in file)")
	c.Flags().BoolVar(&opts.excerpts, "excerpts", false, "write every practice excerpt instead of one range")
	c.Flags().BoolVar(&opts.withMidi, "midi", false, "also write a .mid file next to each .mei")
}

var renderCmd = &cobra.Command{
	Use:   "render <exercise.yaml>",
	Short: "Renders an exercise to MEI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		written, err := renderFile(args[0], renderOpts)
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

func resolveRange(ex *exercise.Exercise, start, end int) (int, int) {
	first, last := ex.Bounds()
	if start <= 0 {
		start = first
	}
	if end <= 0 {
		end = last
	}
	return ex.Clamp(start, end)
}

func renderFile(path string, opts renderOptions) ([]string, error) {
	ex, err := exercise.Load(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create output dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	start, end := resolveRange(ex, opts.start, opts.end)
	ranges := []model.RangeInfo{{Name: base, Start: start, End: end}}
	if opts.excerpts {
		ranges = sample.Ranges(start, end)
		for i := range ranges {
			ranges[i].Name = base + "-" + ranges[i].Name
		}
	}

	var written []string
	for i, r := range ranges {
		slog.Info("Rendering excerpt", "file", path, "excerpt", r.Name, "progress", fmt.Sprintf("%d/%d", i+1, len(ranges)))
		paths, err := writeRange(ex, r, opts)
		if err != nil {
			return written, fmt.Errorf("%s: %w", r.Name, err)
		}
		written = append(written, paths...)
	}
	return written, nil
}

func writeRange(ex *exercise.Exercise, r model.RangeInfo, opts renderOptions) ([]string, error) {
	doc, err := ex.Build(r.Start, r.End)
	if err != nil {
		return nil, err
	}
	meiPath := filepath.Join(opts.outDir, r.Name+".mei")
	if err := os.WriteFile(meiPath, []byte(doc), 0o644); err != nil {
		return nil, fmt.Errorf("could not write %s: %w", meiPath, err)
	}
	written := []string{meiPath}
	if !opts.withMidi {
		return written, nil
	}

	s, err := midi.FromExercise(ex, r.Start, r.End)
	if err != nil {
		return written, err
	}
	midiPath := filepath.Join(opts.outDir, r.Name+".mid")
	f, err := os.Create(midiPath)
	if err != nil {
		return written, fmt.Errorf("could not create %s: %w", midiPath, err)
	}
	defer f.Close()
	if err := midi.Write(f, s); err != nil {
		return written, err
	}
	return append(written, midiPath), nil
}
