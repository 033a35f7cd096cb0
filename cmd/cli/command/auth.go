package command

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// auth.go handles authentication commands: login, logout and whoami.

// authCmd represents the auth command for authentication related subcommands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Authenticate with the agency site API. Supports login, logout and showing the current user.`,
}

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			fmt.Print("Password: ")
			line, err := readLine(stdin())
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = strings.TrimSpace(line)
		}

		resp, err := deps.client.Login(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("login process failed: %w", err)
		}
		if err := deps.session.SignIn(resp); err != nil {
			return err
		}

		fmt.Println("✓ Successfully logged in!")
		fmt.Printf("Welcome, %s\n", color.New(color.Bold).Sprint(resp.User.Name))
		return nil
	},
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logout and forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := deps.session.Teardown(); err != nil {
			return err
		}
		fmt.Println("✓ Successfully logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !deps.session.IsAuthenticated() {
			fmt.Println("Not logged in.")
			return nil
		}

		user, err := deps.client.Profile(cmd.Context())
		if err != nil {
			// fall back to what the session remembers
			cached, ok := deps.session.User()
			if !ok {
				return fmt.Errorf("failed to load profile: %w", err)
			}
			deps.logger.Debug("profile request failed, using cached user")
			user = &cached
		}

		fmt.Printf("Name:  %s\n", user.Name)
		fmt.Printf("Email: %s\n", user.Email)
		if user.Role != "" {
			fmt.Printf("Role:  %s\n", user.Role)
		}
		return nil
	},
}

// init function to add auth commands to auth command
func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(whoamiCmd)

	// add flags for login command
	loginCmd.Flags().StringP("email", "e", "", "Email address of the account")
	loginCmd.Flags().StringP("password", "p", "", "Password (prompted when omitted)")
	loginCmd.MarkFlagRequired("email")
}
