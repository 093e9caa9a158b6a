package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/p-arndt/shellbox/internal/config"
	"github.com/p-arndt/shellbox/internal/store"
)

var psAll bool

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List sandbox sessions from the registry",
	Args:  cobra.NoArgs,
	RunE:  runPs,
}

func init() {
	psCmd.Flags().BoolVarP(&psAll, "all", "a", false, "include reaped sessions")
}

func runPs(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	st, err := store.New(cfg.DBPath, 1)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	sessions, err := st.ListSessions()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTATUS\tBACKEND\tPID\tEXECS\tCREATED\tLAST ACTIVITY\tWORKING DIR")
	for _, s := range sessions {
		if !psAll && s.Status == store.StatusReaped {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			s.ID, s.Status, s.Backend, s.OwnerPID, s.ExecCount,
			humanize.Time(s.CreatedAt), humanize.Time(s.LastActivity), s.WorkingDir)
	}
	return tw.Flush()
}
