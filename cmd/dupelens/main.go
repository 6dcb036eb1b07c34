package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dupelens/backend/config"
	"github.com/dupelens/backend/internal/app"
	"github.com/spf13/cobra"
)

var (
	application *app.App
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "dupelens",
	Short: "Find duplicate products in a merchant catalog",
	Long: `DupeLens scans a merchant catalog and groups items that look like the
same product by title, SKU, barcode and their combinations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			log.SetOutput(io.Discard)
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if maxItems, _ := cmd.Flags().GetInt("max-items"); maxItems > 0 {
			cfg.Source.MaxItems = maxItems
		}

		application, err = app.New(cfg)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if application == nil {
			return nil
		}
		return application.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show pipeline logs")
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime)
	log.SetOutput(os.Stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
