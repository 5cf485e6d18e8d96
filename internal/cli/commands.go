package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/TidepoolCurrent/recall/internal/config"
	"github.com/TidepoolCurrent/recall/internal/ingest"
	"github.com/TidepoolCurrent/recall/internal/memory"
	"github.com/TidepoolCurrent/recall/internal/store"
	"github.com/spf13/cobra"
)

// loadNetwork hydrates a network from the database, or returns an empty
// one when nothing has been stored yet.
func loadNetwork(db *store.DB) (*memory.Network, error) {
	net := memory.NewNetwork()

	count, err := db.MemoryCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return net, nil
	}

	snap, err := db.LoadNetwork()
	if err != nil {
		return nil, err
	}
	if err := net.Load(snap); err != nil {
		return nil, err
	}
	return net, nil
}

func init() {
	defaults := config.Default().Retrieval
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "limit", "n", defaults.TopK, "Maximum number of results")
	retrieveCmd.Flags().IntVar(&retrieveHops, "hops", defaults.Hops, "Spreading hops")
	retrieveCmd.Flags().Float64Var(&retrieveDecay, "decay", defaults.Decay, "Per-hop decay in (0,1]")
	retrieveCmd.Flags().Float64Var(&retrieveThreshold, "threshold", defaults.InhibitionThreshold, "Lateral inhibition threshold")
	retrieveCmd.Flags().Float64Var(&retrieveContentFloor, "content-floor", defaults.ContentMatchFloor, "Seed level for raw content matches")
	retrieveCmd.Flags().BoolVar(&retrieveNoTemporal, "no-temporal", !defaults.TemporalDecay, "Disable temporal decay")
	retrieveCmd.Flags().StringVar(&retrieveTask, "task", "", "Task type for utility-weighted ranking")
}

// --- ingest command ---

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest markdown daily logs into the network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		net, err := loadNetwork(db)
		if err != nil {
			return fmt.Errorf("load network: %w", err)
		}

		res, err := ingest.Dir(net, db, args[0])
		if err != nil {
			return err
		}

		if err := db.SaveNetwork(net.Save()); err != nil {
			return fmt.Errorf("save network: %w", err)
		}

		fmt.Fprintf(os.Stderr, "ingested %d files, %d events: %d added, %d duplicates, %d reinforced\n",
			res.Files, res.Events, res.Added, res.Duplicates, res.Reinforced)
		fmt.Fprintf(os.Stderr, "  network: %d nodes\n", net.Len())
		return nil
	},
}

// --- retrieve command ---

var (
	retrieveTopK         int
	retrieveHops         int
	retrieveDecay        float64
	retrieveThreshold    float64
	retrieveContentFloor float64
	retrieveNoTemporal   bool
	retrieveTask         string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [cue]",
	Short: "Retrieve memories for a cue via spreading activation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cue := strings.Join(args, " ")

		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		net, err := loadNetwork(db)
		if err != nil {
			return fmt.Errorf("load network: %w", err)
		}

		opts := memory.Options{
			TopK:                retrieveTopK,
			Hops:                retrieveHops,
			Decay:               retrieveDecay,
			InhibitionThreshold: retrieveThreshold,
			ContentSeed:         retrieveContentFloor,
			TemporalDecay:       !retrieveNoTemporal,
		}
		if retrieveTask != "" {
			opts.Context = &memory.Context{TaskType: retrieveTask}
		}

		start := time.Now()
		results, err := net.Retrieve(cue, opts)
		if err != nil {
			return err
		}

		topScore := 0.0
		if len(results) > 0 {
			topScore = results[0].Score
		}
		if err := db.LogRecall(cue, len(results), topScore, time.Since(start)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: log recall: %v\n", err)
		}

		if len(results) == 0 {
			fmt.Println("no memories found")
			return nil
		}

		for _, r := range results {
			fmt.Printf("[%.3f] %s %s %s\n", r.Score, r.Record.ID, r.Record.Category, headline(r.Record))
		}
		return nil
	},
}

// headline picks a short human-readable label for a record.
func headline(rec memory.Record) string {
	for _, key := range []string{"topic", "goal", "claim", "target", "header"} {
		if v, ok := rec.Core[key].(string); ok && v != "" {
			return v
		}
		if v, ok := rec.Deviations[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// --- stats command ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show network statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		net, err := loadNetwork(db)
		if err != nil {
			return fmt.Errorf("load network: %w", err)
		}

		stats := net.NetworkStats()
		fmt.Printf("nodes: %d\nedges: %d\n", stats.Nodes, stats.Edges)

		fmt.Println("categories:")
		for _, cat := range sortedKeys(stats.Categories) {
			fmt.Printf("  %-14s %d\n", cat, stats.Categories[cat])
		}

		fmt.Println("links:")
		for _, link := range sortedKeys(stats.CategoryLinks) {
			fmt.Printf("  %-28s %d\n", link, stats.CategoryLinks[link])
		}

		if recalls, err := db.RecallCount(); err == nil {
			fmt.Printf("recalls logged: %d\n", recalls)
		}
		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- export / import commands ---

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the network as a JSON snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		net, err := loadNetwork(db)
		if err != nil {
			return fmt.Errorf("load network: %w", err)
		}

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("create snapshot file: %w", err)
		}
		defer f.Close()

		if err := memory.EncodeSnapshot(f, net.Save()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "exported %d nodes to %s\n", net.Len(), args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a JSON snapshot, replacing the stored network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open snapshot file: %w", err)
		}
		defer f.Close()

		snap, err := memory.DecodeSnapshot(f)
		if err != nil {
			return err
		}

		// Validate before touching the database.
		net := memory.NewNetwork()
		if err := net.Load(snap); err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		if err := db.SaveNetwork(net.Save()); err != nil {
			return fmt.Errorf("save network: %w", err)
		}
		fmt.Fprintf(os.Stderr, "imported %d nodes from %s\n", net.Len(), args[0])
		return nil
	},
}
