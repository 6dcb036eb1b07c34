package main

import (
	"context"
	"fmt"

	"github.com/dupelens/backend/internal/domain"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored duplicate statistics of a scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")

		stats, err := application.Store.GetStats(context.Background(), scope)
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan(fmt.Sprintf("=== Statistics of %s ===", stats.ScopeID)))
		fmt.Printf("  Last scan:     %s\n", stats.LastScanAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("  Items scanned: %d\n\n", stats.TotalScanned)
		for _, rule := range domain.AllRules {
			fmt.Printf("  %-14s %d\n", rule, stats.Counts[rule])
		}
		fmt.Printf("\n%s\n\n", gray("Run 'dupelens groups --scope "+scope+"' to list the groups"))
		return nil
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List stored duplicate groups of a scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		ruleName, _ := cmd.Flags().GetString("rule")

		var rule domain.Rule
		if ruleName != "" {
			parsed, err := domain.ParseRule(ruleName)
			if err != nil {
				return fmt.Errorf("unknown rule %q", ruleName)
			}
			rule = parsed
		}

		groups, err := application.Store.ListGroups(context.Background(), scope, rule)
		if err != nil {
			return err
		}

		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if len(groups) == 0 {
			fmt.Printf("%s\n", gray("No duplicate groups stored"))
			return nil
		}
		for _, g := range groups {
			fmt.Printf("%s %v", yellow(g.Group.Rule), g.Group.MemberIDs)
			if g.Group.MatchedKey != "" {
				fmt.Printf(" %s", gray(g.Group.MatchedKey))
			}
			fmt.Printf(" %s\n", gray(g.CreatedAt.Local().Format("2006-01-02 15:04")))
		}
		fmt.Printf("\n%d groups\n", len(groups))
		return nil
	},
}

func init() {
	statsCmd.Flags().StringP("scope", "s", "", "Catalog scope (shop)")
	_ = statsCmd.MarkFlagRequired("scope")
	rootCmd.AddCommand(statsCmd)

	groupsCmd.Flags().StringP("scope", "s", "", "Catalog scope (shop)")
	groupsCmd.Flags().StringP("rule", "r", "", "Only list groups of this rule")
	_ = groupsCmd.MarkFlagRequired("scope")
	rootCmd.AddCommand(groupsCmd)
}
