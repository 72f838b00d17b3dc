package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/workgraph/core/internal/config"
	"github.com/workgraph/core/internal/storage/sqlite"
	"github.com/workgraph/core/internal/types"
)

var inspectRootID string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Render a work-item tree at the terminal",
	Long:  `Opens the configured database (creating it and applying migrations if needed) and prints the tree rooted at --root (or every root item) with box-drawing connectors, colored by role.`,
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectRootID, "root", "", "Root item id to render (default: all root items)")
	rootCmd.AddCommand(inspectCmd)
}

// roleStyles maps each role to a color via termenv's detected color
// profile, so output degrades gracefully on a dumb terminal.
var roleStyles = map[types.Role]lipgloss.Style{
	types.RoleQueue: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#828c99", Dark: "#6c7680",
	}),
	types.RoleWork: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#399ee6", Dark: "#59c2ff",
	}),
	types.RoleReview: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f2ae49", Dark: "#ffb454",
	}),
	types.RoleTerminal: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#86b300", Dark: "#c2d94c",
	}),
	types.RoleBlocked: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f07171", Dark: "#f07178",
	}),
}

var mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"})
var boldStyle = lipgloss.NewStyle().Bold(true)

func runInspect(cmd *cobra.Command, args []string) error {
	lipgloss.SetColorProfile(termenv.ColorProfile())

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.Open(rootCtx, cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	var roots []*types.WorkItem
	if inspectRootID != "" {
		item, err := store.GetItem(rootCtx, inspectRootID)
		if err != nil {
			return err
		}
		roots = []*types.WorkItem{item}
	} else {
		roots, err = store.FindRootItems(rootCtx)
		if err != nil {
			return err
		}
	}

	renderer := &treeRenderer{store: store}
	for _, root := range roots {
		renderer.render(root, 0, true, nil)
	}
	return nil
}

// treeRenderer walks a work-item tree depth-first, printing box-drawing
// connectors for each parent/child edge.
type treeRenderer struct {
	store *sqlite.SQLiteStorage
}

func (r *treeRenderer) render(item *types.WorkItem, depth int, isLast bool, ancestorsOpen []bool) {
	var prefix strings.Builder
	for i := 0; i < depth; i++ {
		if i < len(ancestorsOpen) && ancestorsOpen[i] {
			prefix.WriteString("│   ")
		} else {
			prefix.WriteString("    ")
		}
	}
	if depth > 0 {
		if isLast {
			prefix.WriteString("└── ")
		} else {
			prefix.WriteString("├── ")
		}
	}

	style, ok := roleStyles[item.Role]
	if !ok {
		style = mutedStyle
	}
	label := fmt.Sprintf("%s %s", style.Render(strings.ToUpper(string(item.Role))), boldStyle.Render(item.Title))
	fmt.Printf("%s%s  %s\n", prefix.String(), label, mutedStyle.Render(item.ID))

	children, err := r.store.FindChildren(rootCtx, item.ID)
	if err != nil {
		fmt.Printf("%s%s\n", prefix.String(), mutedStyle.Render("  (error loading children: "+err.Error()+")"))
		return
	}
	for i, child := range children {
		childOpen := append(append([]bool{}, ancestorsOpen...), !isLast)
		r.render(child, depth+1, i == len(children)-1, childOpen)
	}
}
