package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dupelens/backend/internal/domain"
	"github.com/dupelens/backend/internal/usecase"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a catalog for duplicates and store the groups",
	Long: `Fetch up to --max-items products of the scope, run every matching rule
and persist the resulting groups and statistics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		asJSON, _ := cmd.Flags().GetBool("json")
		showGroups, _ := cmd.Flags().GetBool("groups")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		result, err := application.Scans.Scan(ctx, scope)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		printScanResult(result, showGroups)
		return nil
	},
}

func printScanResult(result *usecase.ScanResult, showGroups bool) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan(fmt.Sprintf("=== Scan of %s ===", result.ScopeID)))
	fmt.Printf("  Items scanned: %d\n", result.TotalScanned)
	fmt.Printf("  Duration:      %s\n\n", result.Duration.Round(time.Millisecond))

	fmt.Printf("%s\n", yellow("Duplicate groups:"))
	for _, rule := range domain.AllRules {
		count := result.Counts[rule]
		countText := gray("0")
		if count > 0 {
			countText = green(fmt.Sprintf("%d", count))
		}
		fmt.Printf("  %-14s %s\n", rule, countText)

		if showGroups && result.Report != nil {
			for _, g := range result.Report.Groups[rule] {
				fmt.Printf("    %s %v", gray("•"), g.MemberIDs)
				if g.MatchedKey != "" {
					fmt.Printf(" %s", gray(g.MatchedKey))
				}
				if rule == domain.RuleTitle {
					fmt.Printf(" %s", gray(fmt.Sprintf("(%.2f)", g.Similarity)))
				}
				fmt.Println()
			}
		}
	}
	fmt.Println()

	if result.Succeeded() {
		fmt.Printf("%s %d groups stored\n\n", green("✓"), result.GroupsFound)
		return
	}
	fmt.Printf("%s %d writes failed\n", red("✗"), result.PersistenceFailures)
	for _, f := range result.Failures {
		fmt.Printf("    %s\n", red(f.Err.Error()))
	}
	fmt.Println()
}

func init() {
	scanCmd.Flags().StringP("scope", "s", "", "Catalog scope (shop) to scan")
	scanCmd.Flags().Int("max-items", 0, "Maximum number of items to fetch (default from config)")
	scanCmd.Flags().Bool("json", false, "Print the scan summary as JSON")
	scanCmd.Flags().BoolP("groups", "g", false, "List the members of every group")
	_ = scanCmd.MarkFlagRequired("scope")
	rootCmd.AddCommand(scanCmd)
}
