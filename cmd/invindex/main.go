// Command invindex builds a B-tree inverted index over a corpus of numbered
// text files and answers boolean term queries against it, interactively,
// over HTTP, or fed from Kafka.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	sourcePath string
	dumpPath   string
	order      int
	verify     bool
)

var rootCmd = &cobra.Command{
	Use:   "invindex",
	Short: "B-tree inverted index over a text corpus",
	Long: `invindex scans a directory (or a single file) of documents named
<id>.<ext>, indexes every word with its positions in a B-tree and writes a
text dump of the index. Boolean AND/OR queries can then be run from the
terminal or over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVarP(&sourcePath, "source", "s", "", "corpus file or directory (overrides index.sourcePath)")
	rootCmd.PersistentFlags().StringVarP(&dumpPath, "dump", "o", "", "index dump file (overrides index.dumpPath)")
	rootCmd.PersistentFlags().IntVar(&order, "order", 0, "B-tree order, odd and at least 3 (overrides index.order)")
	rootCmd.PersistentFlags().BoolVar(&verify, "verify", false, "validate tree invariants before sealing")

	consumeCmd.Flags().Duration("idle", 0, "stop once no event arrives for this long (0 waits for a signal)")
	consumeCmd.Flags().Bool("from-beginning", true, "replay the topic when the group has no committed offset")
	publishCmd.Flags().Int("batch", 50, "events per Kafka write")

	rootCmd.AddCommand(buildCmd, queryCmd, serveCmd, consumeCmd, publishCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("invindex failed", "error", err)
		os.Exit(1)
	}
}
