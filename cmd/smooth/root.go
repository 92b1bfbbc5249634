package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/climate-trend-etl/internal/domain"
	"github.com/spf13/cobra"
)

type options struct {
	window    int
	mode      string
	from      int
	to        int
	storyStep int
	storyFile string
	format    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "smooth [file]",
		Short: "Smooth yearly climate readings into a view",
		Long: `Reads a JSON array of yearly readings such as
[{"year": 1988, "TempAnomaly": 0.32, "CO2ppm": 351.6}, ...]
from a file or stdin, filters and smooths it, and prints the view.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.window, "window", "k", 5, "smoothing window size (0 or 1 disables smoothing)")
	f.StringVarP(&opts.mode, "mode", "m", string(domain.ModeBoth), "fields to show: TempAnomaly, CO2ppm or both")
	f.IntVar(&opts.from, "from", 0, "first year to include (0 for no lower bound)")
	f.IntVar(&opts.to, "to", 0, "last year to include (0 for no upper bound)")
	f.IntVar(&opts.storyStep, "story-step", -1, "use the range and mode of this story step instead of --mode/--from/--to")
	f.StringVar(&opts.storyFile, "story-file", "", "YAML story file (defaults to the built-in story)")
	f.StringVarP(&opts.format, "format", "o", "json", "output format: json or text")
	return cmd
}

func run(cmd *cobra.Command, args []string, opts *options) error {
	if opts.format != "json" && opts.format != "text" {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		in = file
	}

	series, err := readSeries(in)
	if err != nil {
		return err
	}

	cfg := domain.ViewConfig{
		Mode:   domain.MetricMode(opts.mode),
		Window: opts.window,
		From:   opts.from,
		To:     opts.to,
	}
	var title string
	if cmd.Flags().Changed("story-step") {
		story := domain.DefaultStory()
		if opts.storyFile != "" {
			if story, err = domain.LoadStory(opts.storyFile); err != nil {
				return err
			}
		}
		step, _, _ := story.Step(opts.storyStep)
		cfg = step.ViewConfig(opts.window)
		title = step.Title
	}

	v, err := domain.BuildView(series, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "text" {
		return writeText(out, title, v)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readSeries decodes a JSON array of flat yearly readings.
func readSeries(r io.Reader) (domain.Series, error) {
	var records []json.RawMessage
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	samples := make([]domain.Sample, 0, len(records))
	for i, rec := range records {
		s, err := domain.ParseRawSample(domain.RawEvent{Value: rec})
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		samples = append(samples, s)
	}
	return domain.NewSeries(samples), nil
}

func writeText(w io.Writer, title string, v domain.View) error {
	fields := v.Config.Mode.Fields()

	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteByte('\n')
	}
	b.WriteString("year")
	for _, f := range fields {
		b.WriteByte('\t')
		b.WriteString(string(f))
	}
	b.WriteByte('\n')
	for _, s := range v.Series {
		b.WriteString(strconv.Itoa(s.Year))
		for _, f := range fields {
			b.WriteByte('\t')
			b.WriteString(domain.FormatReading(f, s.Get(f)))
		}
		b.WriteByte('\n')
	}
	if len(v.PeakYears) > 0 {
		years := make([]string, len(v.PeakYears))
		for i, y := range v.PeakYears {
			years[i] = strconv.Itoa(y)
		}
		fmt.Fprintf(&b, "peak %s: %s\n", domain.FieldTempAnomaly, strings.Join(years, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
