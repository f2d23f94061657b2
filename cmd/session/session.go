// Package session handles the stored backend login
package session

import (
	"fmt"
	"strings"

	"shopdesk/ledger-csv/cmd/root"
	sessionstore "shopdesk/ledger-csv/internal/session"

	"github.com/spf13/cobra"
)

var (
	token    string
	deviceID string
)

// Cmd represents the session command
var Cmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the stored backend token",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a backend token",
	Long: `Store the backend token sent in the authorization header. A device uuid is
generated on first login and kept across logouts.`,
	Args: cobra.NoArgs,
	RunE: loginFunc,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	Args:  cobra.NoArgs,
	RunE:  logoutFunc,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a token is stored",
	Args:  cobra.NoArgs,
	RunE:  statusFunc,
}

func init() {
	loginCmd.Flags().StringVar(&token, "token", "", "Backend token")
	loginCmd.Flags().StringVar(&deviceID, "uuid", "", "Device uuid (default: keep or generate)")
	_ = loginCmd.MarkFlagRequired("token")

	Cmd.AddCommand(loginCmd, logoutCmd, statusCmd)
}

func store() (*sessionstore.Store, error) {
	c, err := root.GetContainer()
	if err != nil {
		return nil, err
	}
	return c.GetSession(), nil
}

func loginFunc(cmd *cobra.Command, args []string) error {
	s, err := store()
	if err != nil {
		return err
	}
	current, err := s.Load()
	if err != nil {
		return err
	}
	sess := sessionstore.Session{Token: strings.TrimSpace(token), UUID: current.UUID}
	if deviceID != "" {
		sess.UUID = strings.TrimSpace(deviceID)
	}
	saved, err := s.Save(sess)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in (device %s)\n", saved.UUID)
	return nil
}

func logoutFunc(cmd *cobra.Command, args []string) error {
	s, err := store()
	if err != nil {
		return err
	}
	if err := s.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "logged out")
	return nil
}

func statusFunc(cmd *cobra.Command, args []string) error {
	s, err := store()
	if err != nil {
		return err
	}
	sess, err := s.Load()
	if err != nil {
		return err
	}
	if sess.Token == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "not logged in (%s)\n", s.Path())
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in (device %s, %s)\n", sess.UUID, s.Path())
	return nil
}
