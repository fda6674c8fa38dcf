package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"peerdrop/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past transfers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.NewStore(historyPath)
		if err != nil {
			return err
		}

		recs, err := s.List()
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("no transfers yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tDIRECTION\tFILE\tSIZE\tSTATUS\tPEER")
		for _, rec := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				time.Unix(rec.CreatedAt, 0).Format("2006-01-02 15:04:05"),
				rec.Direction, rec.FileName, rec.Size, rec.Status, rec.PeerID)
		}
		return w.Flush()
	},
}
