package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var authTokenStdin bool

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the backend access token",
	Long: `Tokens are issued by your identity provider. docchat stores the token
in its config file, or reads it from DOCCHAT_TOKEN or DOCCHAT_TOKEN_FILE.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an access token",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current token",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

func init() {
	authLoginCmd.Flags().BoolVar(&authTokenStdin, "token-stdin", false, "read the token from stdin")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errAuthNotConfigured
	}

	var token string
	if authTokenStdin {
		token = readLine(cmd.InOrStdin())
	} else {
		cmd.Print("Access token: ")
		token = readSecret(cmd.InOrStdin())
		cmd.Println()
	}

	identity, err := authService.Login(token)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cmd.Printf("Logged in as %s\n", describeIdentity(identity))
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errAuthNotConfigured
	}

	identity, err := authService.Status(cmd.Context())
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		cmd.Println("Not logged in.")
		return nil
	case errors.Is(err, domain.ErrAuthExpired):
		cmd.Println("Token expired. Run 'docchat auth login' with a fresh token.")
		return nil
	case err != nil:
		return fmt.Errorf("failed to read token: %w", err)
	}

	cmd.Printf("Logged in as %s\n", describeIdentity(identity))
	if identity.Issuer != "" {
		cmd.Printf("  Issuer:   %s\n", identity.Issuer)
	}
	if !identity.ExpiresAt.IsZero() {
		cmd.Printf("  Expires:  %s\n", identity.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errAuthNotConfigured
	}
	if err := authService.Logout(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	cmd.Println("Logged out.")
	return nil
}

func describeIdentity(identity *domain.Identity) string {
	switch {
	case identity == nil:
		return "unknown user"
	case identity.Email != "" && identity.Subject != "":
		return fmt.Sprintf("%s (%s)", identity.Email, identity.Subject)
	case identity.Email != "":
		return identity.Email
	case identity.Subject != "":
		return identity.Subject
	default:
		return "token holder"
	}
}

// readSecret reads a line without echo when in is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	return readLine(in)
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(in io.Reader) string {
	input, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(input)
}
