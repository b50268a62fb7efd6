package cli

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/spf13/cobra"

	"github.com/brancharchitect/phylomovie/internal/config"
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func newColorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "colors",
		Short: "Manage persisted taxon color categories",
	}
	cmd.AddCommand(newColorsListCmd())
	cmd.AddCommand(newColorsSetCmd())
	cmd.AddCommand(newColorsClearCmd())
	return cmd
}

func newColorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved color categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cs := config.NewColorStore("")
			categories, err := cs.LoadColorCategories()
			if err != nil {
				return fmt.Errorf("loading colors: %w", err)
			}
			if len(categories) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no color categories saved")
				return nil
			}
			names := make([]string, 0, len(categories))
			for name := range categories {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", name, categories[name])
			}
			return nil
		},
	}
}

func newColorsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <category> <hex-color>",
		Short: "Assign a color to a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, color := args[0], args[1]
			if !hexColorRe.MatchString(color) {
				return fmt.Errorf("invalid color %q (want #rrggbb)", color)
			}
			cs := config.NewColorStore("")
			categories, err := cs.LoadColorCategories()
			if err != nil {
				return fmt.Errorf("loading colors: %w", err)
			}
			categories[name] = color
			if err := cs.SaveColorCategories(categories); err != nil {
				return fmt.Errorf("saving colors: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "set %s = %s\n", name, color)
			return nil
		},
	}
}

func newColorsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [category]",
		Short: "Remove one category, or all when none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs := config.NewColorStore("")
			if len(args) == 0 {
				if err := cs.SaveColorCategories(map[string]string{}); err != nil {
					return fmt.Errorf("saving colors: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cleared all color categories")
				return nil
			}
			categories, err := cs.LoadColorCategories()
			if err != nil {
				return fmt.Errorf("loading colors: %w", err)
			}
			if _, ok := categories[args[0]]; !ok {
				return fmt.Errorf("unknown category %q", args[0])
			}
			delete(categories, args[0])
			if err := cs.SaveColorCategories(categories); err != nil {
				return fmt.Errorf("saving colors: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", args[0])
			return nil
		},
	}
}
