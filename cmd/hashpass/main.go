package main

import (
	"fmt"
	"os"

	"github.com/serroba/safelink/internal/auth"
	"github.com/spf13/cobra"
)

func main() {
	cmd := &cobra.Command{
		Use:   "hashpass <email> <password>",
		Short: "Print a users entry for SERVICE_USERS",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := auth.UserEntry(args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), entry)

			return nil
		},
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
