package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	statusOutput  string
	statusJournal int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current session state",
	Long: `Show whether a session is live, who it belongs to, and how much
time remains. Checking the status enforces expiry: an expired session
is closed as a side effect.

Examples:
  backoffice status
  backoffice status --output yaml
  backoffice status --journal 10`,
	RunE: runStatus,
}

// sessionStatus is the printable session snapshot.
type sessionStatus struct {
	LoggedIn  bool   `yaml:"logged_in"`
	Email     string `yaml:"email,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Role      string `yaml:"role,omitempty"`
	Remaining string `yaml:"remaining,omitempty"`
}

func init() {
	statusCmd.Flags().StringVar(&statusOutput, "output", "text", "output format: text or yaml")
	statusCmd.Flags().IntVar(&statusJournal, "journal", 0, "also show the N most recent auth journal entries")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusOutput != "text" && statusOutput != "yaml" {
		return fmt.Errorf("unknown output format %q (want text or yaml)", statusOutput)
	}

	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	status := sessionStatus{}
	if user, ok := a.manager.CurrentUser(); ok {
		status.LoggedIn = true
		status.Email = user.Email
		status.Name = fmt.Sprintf("%s %s", user.Name, user.LastName)
		status.Role = string(user.Role)
		if remaining, ok := a.manager.Remaining(); ok {
			status.Remaining = formatRemaining(remaining)
		}
	}

	switch statusOutput {
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		if err := encoder.Encode(status); err != nil {
			return err
		}
		if err := encoder.Close(); err != nil {
			return err
		}
	default:
		if !status.LoggedIn {
			fmt.Println("Not logged in")
		} else {
			fmt.Printf("Logged in as %s <%s> (%s)\n", status.Name, status.Email, status.Role)
			fmt.Printf("Session time remaining: %s\n", status.Remaining)
		}
	}

	if statusJournal > 0 {
		if a.journal == nil {
			fmt.Fprintln(os.Stderr, "journal is not enabled")
			return nil
		}
		entries, err := a.journal.Recent(statusJournal)
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		for _, entry := range entries {
			line := fmt.Sprintf("%s  %s", entry.At.Format("2006-01-02 15:04:05"), entry.Event)
			if entry.Reason != "" {
				line += "  (" + entry.Reason + ")"
			}
			fmt.Println(line)
		}
	}

	return nil
}
