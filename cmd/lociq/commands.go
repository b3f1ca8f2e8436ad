package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verasca/lociq/internal/config"
	"github.com/verasca/lociq/internal/conversation"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a genomics question",
	Long: `Ask a genomics question and print the structured answer.

Examples:
  lociq ask "How does DGAT1 affect milk fat percentage?"
  lociq ask --json "What QTL are linked to marbling in cattle?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/ask", map[string]string{"query": query})
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusNoContent {
			resp.Body.Close()
			printWarning("empty question, nothing asked")
			return nil
		}
		if resp.StatusCode == http.StatusConflict {
			resp.Body.Close()
			return fmt.Errorf("a request is already pending; try again shortly")
		}

		var turn conversation.Turn
		if err := decodeJSON(resp, &turn); err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(turn)
		}

		printTurn(turn)
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("json", false, "print the raw turn as JSON")
}

func printTurn(t conversation.Turn) {
	fmt.Printf("%s %s\n\n", colorize(colorBold, "Q:"), t.Query)
	fmt.Printf("%s\n%s\n\n", colorize(colorCyan, "Gene"), t.Overview.Gene)
	fmt.Printf("%s\n%s\n\n", colorize(colorCyan, "QTL"), t.Overview.QTL)
	fmt.Printf("%s\n%s\n", colorize(colorCyan, "Relation"), t.Overview.Relation)

	if len(t.Citations) > 0 {
		fmt.Printf("\n%s\n", colorize(colorCyan, "References"))
		for _, c := range t.Citations {
			fmt.Printf("  [%d] %s. %s. %s. PMID %s\n", c.ID, c.Authors, c.Title, c.Journal, c.PMID)
		}
	}
	if len(t.FollowUps) > 0 {
		fmt.Printf("\n%s\n", colorize(colorCyan, "Follow-up questions"))
		for _, q := range t.FollowUps {
			fmt.Printf("  - %s\n", q)
		}
	}
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse archived turns",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived turns, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/v1/history?limit=%d", limit))
		if err != nil {
			return err
		}

		var turns []conversation.Turn
		if err := decodeJSON(resp, &turns); err != nil {
			return err
		}

		if len(turns) == 0 {
			fmt.Println("No archived turns.")
			return nil
		}

		for _, t := range turns {
			query := t.Query
			if len(query) > 80 {
				query = query[:80] + "..."
			}
			id := t.ID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Printf("%s  %s  %s\n",
				colorize(colorCyan, id),
				t.AskedAt.Format("2006-01-02 15:04"),
				query,
			)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single archived turn",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/history/"+args[0])
		if err != nil {
			return err
		}

		var turn conversation.Turn
		if err := decodeJSON(resp, &turn); err != nil {
			return err
		}

		printTurn(turn)
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of turns to list")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
