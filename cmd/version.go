package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leftmike/duet/sql"
)

func init() {
	duetCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of Duet",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(sql.Version())
			},
		})
}
