package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/amishk599/applytrack/internal/emailparse"
)

var (
	parseExplain bool
	parseJSON    bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Extract fields and status from an email without saving it",
	Long:  "Reads an email from a file (plain text or .eml) or stdin and prints the extracted company, role, location and status.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseExplain, "explain", false, "show the per-status match scores")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "print JSON")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	text, _, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	res, scores := emailparse.Explain(text)
	return printParse(cmd.OutOrStdout(), res, scores, parseJSON, parseExplain)
}

func printParse(w io.Writer, res emailparse.Result, scores []emailparse.CategoryScore, asJSON, explain bool) error {
	if asJSON {
		out := map[string]any{"result": res}
		if explain {
			out["scores"] = scores
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "company:\t%s\n", orDash(res.Company))
	fmt.Fprintf(tw, "role:\t%s\n", orDash(res.Role))
	fmt.Fprintf(tw, "location:\t%s\n", orDash(res.Location))
	fmt.Fprintf(tw, "status:\t%s\n", res.Status)
	if explain {
		fmt.Fprintln(tw)
		for _, s := range scores {
			fmt.Fprintf(tw, "  %s\t%d\n", s.Category, s.Score)
		}
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

