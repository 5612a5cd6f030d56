package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wanderstay/wander/db"
)

// loginCmd signs in to Wanderstay. The default flow posts the password grant
// to the token endpoint; --sso drives the hosted login page in a browser
// instead, which is the only way in for accounts using social sign-in.
func loginCmd(svc *services) *cobra.Command {
	var email string
	var sso bool
	var headless bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to your Wanderstay account",
		Long:  "Sign in to Wanderstay with your email and password, or through the hosted login page with --sso",
		Run: func(cmd *cobra.Command, args []string) {
			runLogin(cmd, svc, email, sso, headless)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email (prompted when omitted)")
	cmd.Flags().BoolVar(&sso, "sso", false, "Sign in through the hosted login page in a browser window")
	cmd.Flags().BoolVarP(&headless, "headless", "n", false, "Run the --sso browser without a window (requires email and password)")

	return cmd
}

func runLogin(cmd *cobra.Command, svc *services, email string, sso, headless bool) {
	ctx := cmd.Context()

	if email == "" {
		email = promptForInput("Wanderstay email: ")
	}
	var password string
	if sso && !headless {
		// The hosted page collects credentials itself; an empty password just
		// means the user finishes the form (or a social button) in the window.
		password = promptForPassword("Wanderstay password (press enter to type it in the browser): ")
	} else {
		password = promptForPassword("Wanderstay password: ")
	}

	if !sso && !validateCredentials(email, password) {
		cmd.PrintErrln("Error: Email and password cannot be empty.")
		return
	}

	var access, refresh, expiresAt string
	var err error
	if sso {
		access, refresh, expiresAt, err = svc.api.SSOLogin(ctx, email, password, headless)
	} else {
		access, refresh, expiresAt, err = svc.api.PasswordLogin(ctx, email, password)
	}
	if err != nil {
		log.Error().Err(err).Msg("Login failed")
		cmd.PrintErrln("Error: Failed to sign in to Wanderstay. Please check your credentials and try again.")
		return
	}

	if err := svc.tokens.Upsert(ctx, &db.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}); err != nil {
		log.Error().Err(err).Msg("Failed to save session tokens")
		cmd.PrintErrln("Error: Signed in, but failed to save the session. Please try again.")
		return
	}

	cmd.Println("Login was successful.")

	// Best effort: warm the profile cache so status works offline.
	if profile, err := svc.api.FetchProfile(ctx); err == nil {
		_ = svc.profiles.Upsert(ctx, &db.Profile{
			Email:       profile.Email,
			DisplayName: profile.DisplayName,
			HomeCity:    profile.HomeCity,
		})
		if profile.DisplayName != "" {
			cmd.Printf("Welcome back, %s.\n", profile.DisplayName)
		}
	}
}

// logoutCmd ends the local session. Tokens always go; --purge also drops the
// cached profile and saved stays.
func logoutCmd(svc *services) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		Run: func(cmd *cobra.Command, args []string) {
			if err := svc.auth.Coordinator.Logout(); err != nil {
				log.Error().Err(err).Msg("Failed to clear session")
				cmd.PrintErrln("Error: Failed to clear the stored session.")
				return
			}
			if err := svc.profiles.Clear(cmd.Context()); err != nil {
				log.Warn().Err(err).Msg("Failed to clear cached profile")
			}
			if purge {
				if err := svc.stays.Clear(cmd.Context()); err != nil {
					log.Warn().Err(err).Msg("Failed to clear stay cache")
					cmd.PrintErrln("Error: Failed to clear the saved-stays cache.")
					return
				}
			}
			cmd.Println("Signed out.")
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "Also clear the local saved-stays cache")

	return cmd
}

// promptForInput prompts the user for input and returns the trimmed string.
func promptForInput(prompt string) string {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print(prompt)
	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println("Error: Failed to read input.")
		os.Exit(1)
	}
	return strings.TrimSpace(input)
}

// promptForPassword prompts the user for a password securely and returns the trimmed string.
func promptForPassword(prompt string) string {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Println("Error: Failed to read password.")
		os.Exit(1)
	}
	fmt.Println() // Print a newline for better formatting
	return strings.TrimSpace(string(password))
}

// validateCredentials checks if the email and password are not empty.
func validateCredentials(email, password string) bool {
	return email != "" && password != ""
}
