package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ilkoid/bellhop/pkg/utils"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool catalog offered to the model",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadComponents(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()
		defer utils.Close()

		defs := c.Tools.Definitions()
		out := cmd.OutOrStdout()
		if toolsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(defs)
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMUTATING\tTIMEOUT\tDESCRIPTION")
		timeouts := c.Config.ToolTimeouts()
		for _, d := range defs {
			timeout := c.Config.Agent.ToolTimeout
			if t, ok := timeouts[d.Name]; ok {
				timeout = t
			}
			fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", d.Name, d.Mutating, timeout, firstLine(d.Description))
		}
		return w.Flush()
	},
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "print full definitions with JSON Schemas")
	rootCmd.AddCommand(toolsCmd)
}
