package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Close the session",
	Long: `Close the session: notify the server (best effort) and delete the
local session record. Succeeds even when the server is unreachable.`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.manager.Logout(cmd.Context())
	fmt.Println(result.Message)
	return nil
}
