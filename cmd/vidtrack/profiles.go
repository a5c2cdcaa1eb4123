package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/use-agent/vidtrack/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List available platform profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		reg, err := profile.Load(cfg.Tracker.ProfilesFile)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTRATEGIES\tBLOB FILTER\tDELAY\tAUTOSCROLL\tSTOP-SCROLL\tFILE")
		for _, name := range reg.Names() {
			p, _ := reg.Get(name)
			sels := make([]string, 0, len(p.Strategies))
			for _, s := range p.Strategies {
				sels = append(sels, s.Selector)
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%t\t%t\t%s\n",
				p.Name, strings.Join(sels, ","), p.RejectBlob, p.ScrollDelay,
				p.AutoScroll, p.AllowStopAutoScroll, p.ExportFile)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
