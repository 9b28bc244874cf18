package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/esencia-retail/backoffice-cli/internal/api"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and open a session",
	Long: `Authenticate against the back-office API and persist the session.

The password is read from standard input when --password is not given.

Examples:
  backoffice login --email laura@example.com
  echo "$PASSWORD" | backoffice login --email laura@example.com`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (read from stdin if omitted)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	password := loginPassword
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	payload, err := a.manager.Login(cmd.Context(), loginEmail, password)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			for _, violation := range apiErr.Violations {
				fmt.Fprintf(os.Stderr, "  - %s\n", violation)
			}
		}
		return err
	}

	// One-shot command: the monitor belongs to `watch`, not here.
	a.manager.StopInactivityMonitoring()

	fmt.Printf("Logged in as %s %s (%s)\n", payload.User.Name, payload.User.LastName, payload.User.Role)
	return nil
}
