package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/brancharchitect/phylomovie/internal/movie"
	"github.com/brancharchitect/phylomovie/internal/msa"
	"github.com/brancharchitect/phylomovie/internal/output"
	"github.com/brancharchitect/phylomovie/internal/resolver"
	"github.com/brancharchitect/phylomovie/internal/timeline"
)

// payloadSummary is the info command's output shape.
type payloadSummary struct {
	File         string         `json:"file" yaml:"file"`
	Trees        int            `json:"trees" yaml:"trees"`
	Anchors      int            `json:"anchors" yaml:"anchors"`
	Pairs        int            `json:"pairs" yaml:"pairs"`
	Segments     int            `json:"segments" yaml:"segments"`
	DurationSec  float64        `json:"duration_seconds" yaml:"duration_seconds"`
	Leaves       int            `json:"leaves" yaml:"leaves"`
	Phases       map[string]int `json:"phases" yaml:"phases"`
	TreesPerPair map[string]int `json:"trees_per_pair" yaml:"trees_per_pair"`
	Distances    int            `json:"distance_entries" yaml:"distance_entries"`
	MSASequences int            `json:"msa_sequences" yaml:"msa_sequences"`
	MSAWindows   int            `json:"msa_windows" yaml:"msa_windows"`
}

func newInfoCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info <payload.json>",
		Short: "Summarize a movie payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := movie.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("loading payload: %w", err)
			}
			summary := summarize(payload)

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			case "yaml":
				enc := yaml.NewEncoder(out)
				defer enc.Close()
				return enc.Encode(summary)
			case "text":
				fmt.Fprint(out, formatText(summary))
				return nil
			default:
				return fmt.Errorf("unknown format %q (want text, json, or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, or yaml")
	return cmd
}

func summarize(payload *movie.Payload) payloadSummary {
	res := resolver.New(payload.Metadata, payload.Distances.RobinsonFoulds, payload.PairSolutions, payload.PairRanges)
	model := timeline.BuildWithUnit(payload.Timeline, payload.Metadata, payload.PairSolutions, timelineUnit(cfg))

	phases := map[string]int{}
	perPair := map[string]int{}
	for _, md := range payload.Metadata {
		phases[string(md.Phase)]++
		if md.PairKey != "" {
			perPair[md.PairKey]++
		}
	}

	return payloadSummary{
		File:         payload.FileName,
		Trees:        payload.TreeCount(),
		Anchors:      len(res.FullTreeIndices()),
		Pairs:        len(perPair),
		Segments:     model.SegmentCount(),
		DurationSec:  model.Total().Seconds(),
		Leaves:       len(payload.SortedLeaves),
		Phases:       phases,
		TreesPerPair: perPair,
		Distances:    len(payload.Distances.RobinsonFoulds),
		MSASequences: len(payload.MSA.Sequences),
		MSAWindows: msa.TotalWindows(
			msa.AlignmentLength(payload.MSA), payload.MSA.WindowSize, payload.MSA.StepSize),
	}
}

func formatText(s payloadSummary) string {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		width = w
	}

	var b strings.Builder
	fmt.Fprintf(&b, "file:       %s\n", s.File)
	fmt.Fprintf(&b, "trees:      %d (%d %s, %d %s)\n", s.Trees,
		s.Anchors, output.Pluralize(s.Anchors, "anchor", "anchors"),
		s.Pairs, output.Pluralize(s.Pairs, "pair", "pairs"))
	fmt.Fprintf(&b, "timeline:   %d segments, %.1fs\n", s.Segments, s.DurationSec)
	fmt.Fprintf(&b, "leaves:     %d\n", s.Leaves)
	fmt.Fprintf(&b, "distances:  %d entries\n", s.Distances)
	if s.MSASequences > 0 {
		fmt.Fprintf(&b, "alignment:  %d sequences, %d windows\n", s.MSASequences, s.MSAWindows)
	}

	if len(s.Phases) > 0 {
		names := make([]string, 0, len(s.Phases))
		for name := range s.Phases {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%d", name, s.Phases[name]))
		}
		line := "phases:     " + strings.Join(parts, " ")
		if len(line) > width {
			line = line[:width]
		}
		b.WriteString(line + "\n")
	}

	if len(s.TreesPerPair) > 0 {
		b.WriteString("\n")
		tbl := output.NewTable(&b, "pair", "interpolated trees")
		keys := make([]string, 0, len(s.TreesPerPair))
		for key := range s.TreesPerPair {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			tbl.AddRow(key, strconv.Itoa(s.TreesPerPair[key]))
		}
		tbl.Render()
	}
	return b.String()
}
