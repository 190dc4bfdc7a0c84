// Package main provides the huntcore CLI, the operator surface for the
// puzzle progression core.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"huntcore/internal/cfg"
	"huntcore/internal/db"
	"huntcore/internal/manifest"
	"huntcore/internal/model"
	"huntcore/internal/progression"
)

// Version is the current huntcore CLI version.
var Version = "0.1.0"

var dbFlag string

var rootCmd = &cobra.Command{
	Use:     "huntcore",
	Short:   "huntcore - puzzle progression graph administration",
	Long:    `huntcore manages the scavenger-hunt puzzle catalog, its prerequisite graph, and user completions.`,
	Version: Version,
}

// openService opens the configured database and wires the progression
// service over it. The caller closes the returned DB.
func openService() (*progression.Service, *db.DB, error) {
	config := cfg.FromEnv()
	if dbFlag != "" {
		config.DBURL = dbFlag
	}
	database, err := db.Open(config.DBURL)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database %s: %w", config.DBURL, err)
	}
	return progression.New(database, database, database, database), database, nil
}

// resolvePuzzle accepts either a numeric id or a puzzle code.
func resolvePuzzle(svc *progression.Service, arg string) (*model.Puzzle, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return svc.Puzzle(id)
	}
	return svc.PuzzleByCode(arg)
}

// ----- puzzle -----

var puzzleCmd = &cobra.Command{
	Use:   "puzzle",
	Short: "Puzzle catalog commands",
}

var (
	createCode        string
	createTitle       string
	createDescription string
	createDifficulty  int
	createPoints      int
	createInactive    bool
)

var puzzleCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a puzzle",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, database, err := openService()
		if err != nil {
			return err
		}
		defer database.Close()

		p, err := svc.CreatePuzzle(&model.Puzzle{
			Code:        createCode,
			Title:       createTitle,
			Description: createDescription,
			Difficulty:  createDifficulty,
			Points:      createPoints,
			IsActive:    !createInactive,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created puzzle %d (%s)\n", p.ID, p.Code)
		return nil
	},
}

var puzzleUpdateCmd = &cobra.Command{
	Use:   "update <id|code>",
	Short: "Update a puzzle's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, database, err := openService()
		if err != nil {
			return err
		}
		defer database.Close()

		p, err := resolvePuzzle(svc, args[0])
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("code") {
			p.Code = createCode
		}
		if flags.Changed("title") {
			p.Title = createTitle
		}
		if flags.Changed("description") {
			p.Description = createDescription
		}
		if flags.Changed("difficulty") {
			p.Difficulty = createDifficulty
		}
		if flags.Changed("points") {
			p.Points = createPoints
		}
		if flags.Changed("inactive") {
			p.IsActive = !createInactive
		}
		if err := svc.UpdatePuzzle(p); err != nil {
			return err
		}
		fmt.Printf("updated puzzle %d (%s)\n", p.ID, p.Code)
		return nil
	},
}

var listAll bool

var puzzleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List puzzles",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, database, err := openService()
		if err != nil {
			return err
		}
		defer database.Close()

		var puzzles []model.Puzzle
		if listAll {
			puzzles, err = svc.ListPuzzles()
		} else {
			puzzles, err = svc.ActivePuzzles()
		}
		if err != nil {
			return err
		}
		for _, p := range puzzles {
			status := "active"
			if !p.IsActive {
				status = "inactive"
			}
			fmt.Printf("%4d  %-20s  d%-2d  %4dpt  %-8s  %s\n", p.ID, p.Code, p.Difficulty, p.Points, status, p.Title)
		}
		return nil
	},
}

var puzzleShowCmd = &cobra.Command{
	Use:   "show <id|code>",
	Short: "Show one puzzle with its prerequisites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, database, err := openService()
		if err != nil {
			return err
		}
		defer database.Close()

		p, err := resolvePuzzle(svc, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("id:          %d\n", p.ID)
		fmt.Printf("code:        %s\n", p.Code)
		fmt.Printf("title:       %s\n", p.Title)
		if p.Description != "" {
			fmt.Printf("description: %s\n", p.Description)
		}
		fmt.Printf("difficulty:  %d\n", p.Difficulty)
		fmt.Printf("points:      %d\n", p.Points)
		fmt.Printf("active:      %v\n", p.IsActive)
		return nil
	},
}

// ----- dep -----

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Dependency edge commands",
}

var depOptional bool

var depAddCmd = &cobra.Command{
	Use:   "add <puzzle> <prerequisite>...",
	Short: "Add prerequisite(s) to a puzzle",
	Long: `Add one or more prerequisite edges to a puzzle.

A single prerequisite is added directly. Multiple prerequisites are applied
as one atomic batch: if any edge would close a cycle, none are added.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, database, err := openService()
		if err != nil {
			return err
		}
		defer database.Close()

		puzzle, err := resolvePuzzle(svc, args[0])
		if err != nil {
			return err
		}

		if len(args) == 2 {
			prereq, err := resolvePuzzle(svc, args[1])
			if err != nil {
				return err
			}
			if _, err := svc.AddDependency(puzzle.ID, prereq.ID, !depOptional); err != nil {
				return err
			}
			fmt.Printf("%s now requires %s\n", puzzle.Code, prereq.Code)
			return nil
		}

		prereqIDs := make([]int64, 0, len(args)-1)
		for _, arg := range args[1:] {
			prereq, err := resolvePuzzle(svc, arg)
			if err != nil {
				return err
			}
			prereqIDs = append(prereqIDs, prereq.ID)
		}
		added, err := svc.AddDependencies(puzzle.ID, prereqIDs, !depOptional)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d prerequisite(s) added, %d already present\n", puzzle.Code, len(added), len(prereqIDs)-len(added))
		return nil
	},
}

var depRmCmd = &cobra.Command{
	Use:   "rm <puzzle> <prerequisite>",
	Short: "Remove a prerequisite edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, database, err := openService()
		if err != nil {
			return err
		}
		defer database.Close()

		puzzle, err := resolvePuzzle(svc, args[0])
		if err != nil {
			return err
		}
		prereq, err := resolvePuzzle(svc, args[1])
		if err != nil {
			return err
		}
		if err := svc.RemoveDependency(puzzle.ID, prereq.ID); err != nil {
			return err
		}
		fmt.Printf("%s no longer requires %s\n", puzzle.Code, prereq.Code)
		return nil
	},
}

// ----- graph -----

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Whole-graph commands",
}

var graphValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the persisted graph for dangling references and cycles",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, database, err := openService()
		if err != nil {
			return err
		}
		defer database.Close()

		result, err := svc.ValidateGraph()
		if err != nil {
			return err
		}
		if result.Valid {
			fmt.Println("graph ok")
			return nil
		}
		for _, msg := range result.Errors {
			fmt.Fprintf(os.Stderr, "error: %s\n", msg)
		}
		return fmt.Errorf("graph validation failed with %d error(s)", len(result.Errors))
	},
}

var graphTopoCmd = &cobra.Command{
	Use:   "topo",
	Short: "Print puzzles in prerequisite-first order",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, database, err := openService()
		if err != nil {
			return err
		}
		defer database.Close()

		order, err := svc.TopologicalOrder()
		if err != nil {
			return err
		}
		puzzles, err := svc.ListPuzzles()
		if err != nil {
			return err
		}
		codes := make(map[int64]string, len(puzzles))
		for _, p := range puzzles {
			codes[p.ID] = p.Code
		}
		for i, id := range order {
			fmt.Printf("%3d. %s\n", i+1, codes[id])
		}
		return nil
	},
}

var exportOut string

var graphExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the catalog and its prerequisites as a YAML manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, database, err := openService()
		if err != nil {
			return err
		}
		defer database.Close()

		doc, err := svc.ExportManifest()
		if err != nil {
			return err
		}
		data, err := doc.Encode()
		if err != nil {
			return err
		}
		if exportOut == "" || exportOut == "-" {
			fmt.Print(string(data))
			return nil
		}
		if err := os.WriteFile(exportOut, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", exportOut, err)
		}
		fmt.Printf("wrote %s (%s)\n", exportOut, manifest.Fingerprint(data))
		return nil
	},
}

var graphImportCmd = &cobra.Command{
	Use:   "import <manifest.yaml>",
	Short: "Apply a YAML manifest to the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		doc, err := manifest.Parse(data)
		if err != nil {
			return err
		}

		svc, database, err := openService()
		if err != nil {
			return err
		}
		defer database.Close()

		summary, err := svc.ImportManifest(doc, manifest.Fingerprint(data))
		if err != nil {
			return err
		}
		fmt.Printf("import %s: %d puzzle(s) created, %d edge(s) added\n",
			summary.BatchID, summary.PuzzlesCreated, summary.EdgesAdded)
		return nil
	},
}

// ----- completions and progress -----

var (
	completeScore     int
	completeTimeSpent int
	completeSolution  string
)

var completeCmd = &cobra.Command{
	Use:   "complete <user-id> <puzzle>",
	Short: "Record a puzzle completion for a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		svc, database, err := openService()
		if err != nil {
			return err
		}
		defer database.Close()

		puzzle, err := resolvePuzzle(svc, args[1])
		if err != nil {
			return err
		}

		input := progression.CompletionInput{Solution: completeSolution}
		if cmd.Flags().Changed("score") {
			input.Score = &completeScore
		}
		if cmd.Flags().Changed("time-spent") {
			input.TimeSpent = &completeTimeSpent
		}

		c, err := svc.CompletePuzzle(userID, puzzle.ID, input)
		if err != nil {
			return err
		}
		fmt.Printf("user %d completed %s at %s\n", userID, puzzle.Code, c.CompletedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var completionsCmd = &cobra.Command{
	Use:   "completions <user-id>",
	Short: "List a user's completions, most recent first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		svc, database, err := openService()
		if err != nil {
			return err
		}
		defer database.Close()

		completions, err := svc.UserCompletions(userID)
		if err != nil {
			return err
		}
		puzzles, err := svc.ListPuzzles()
		if err != nil {
			return err
		}
		codes := make(map[int64]string, len(puzzles))
		for _, p := range puzzles {
			codes[p.ID] = p.Code
		}
		for _, c := range completions {
			line := fmt.Sprintf("%s  %s", c.CompletedAt.Format("2006-01-02 15:04:05"), codes[c.PuzzleID])
			if c.Score != nil {
				line += fmt.Sprintf("  score=%d", *c.Score)
			}
			if c.TimeSpent != nil {
				line += fmt.Sprintf("  time=%ds", *c.TimeSpent)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress <user-id>",
	Short: "Show a user's progress and currently available puzzles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		svc, database, err := openService()
		if err != nil {
			return err
		}
		defer database.Close()

		progress, err := svc.UserProgress(userID)
		if err != nil {
			return err
		}
		fmt.Printf("completed: %d/%d (%d%%)\n", progress.Completed, progress.Total, progress.Percentage)
		if len(progress.NextAvailable) > 0 {
			available := make([]string, 0, len(progress.NextAvailable))
			for _, p := range progress.NextAvailable {
				available = append(available, p.Code)
			}
			fmt.Printf("available: %s\n", strings.Join(available, ", "))
		}
		return nil
	},
}

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recent mutations",
	RunE: func(cmd *cobra.Command, args []string) error {
		config := cfg.FromEnv()
		if dbFlag != "" {
			config.DBURL = dbFlag
		}
		database, err := db.Open(config.DBURL)
		if err != nil {
			return err
		}
		defer database.Close()

		limit := auditLimit
		if limit <= 0 {
			limit = config.AuditLimit
		}
		entries, err := database.ListAudit(limit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  %-20s  %s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.TargetType, e.TargetID)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "database URL (overrides HUNTCORE_DB_URL)")

	for _, c := range []*cobra.Command{puzzleCreateCmd, puzzleUpdateCmd} {
		c.Flags().StringVar(&createCode, "code", "", "unique puzzle code")
		c.Flags().StringVar(&createTitle, "title", "", "puzzle title")
		c.Flags().StringVar(&createDescription, "description", "", "puzzle description")
		c.Flags().IntVar(&createDifficulty, "difficulty", 1, "difficulty from 1 to 10")
		c.Flags().IntVar(&createPoints, "points", 0, "points awarded on completion")
		c.Flags().BoolVar(&createInactive, "inactive", false, "create as inactive")
	}
	puzzleCreateCmd.MarkFlagRequired("code")
	puzzleCreateCmd.MarkFlagRequired("title")
	puzzleListCmd.Flags().BoolVar(&listAll, "all", false, "include inactive puzzles")
	puzzleCmd.AddCommand(puzzleCreateCmd, puzzleUpdateCmd, puzzleListCmd, puzzleShowCmd)

	depAddCmd.Flags().BoolVar(&depOptional, "optional", false, "mark the prerequisite as not required")
	depCmd.AddCommand(depAddCmd, depRmCmd)

	graphExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	graphCmd.AddCommand(graphValidateCmd, graphTopoCmd, graphExportCmd, graphImportCmd)

	completeCmd.Flags().IntVar(&completeScore, "score", 0, "score achieved")
	completeCmd.Flags().IntVar(&completeTimeSpent, "time-spent", 0, "seconds spent")
	completeCmd.Flags().StringVar(&completeSolution, "solution", "", "submitted solution text")

	auditCmd.Flags().IntVar(&auditLimit, "limit", 0, "number of entries to show")

	rootCmd.AddCommand(puzzleCmd, depCmd, graphCmd, completeCmd, completionsCmd, progressCmd, auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
