package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/planner/internal/notify"
)

func gmailAuthCmd() *cobra.Command {
	var credentials, token string

	cmd := &cobra.Command{
		Use:   "gmail-auth",
		Short: "Authorize the planner to send email through Gmail",
		Long: `gmail-auth prints a Google consent URL, reads the authorization code you paste
back, and saves the resulting token. Point GMAIL_TOKEN_FILE at the token and
set MAIL_PROVIDER=gmail to send invitations and import summaries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			oauthCfg, err := notify.OAuthConfig(credentials)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Open this link in your browser, then paste the authorization code:")
			fmt.Fprintln(out, notify.AuthCodeURL(oauthCfg, "planctl"))
			fmt.Fprint(out, "Code: ")

			// ReadString's io.EOF is fine when the code arrives without a newline.
			code, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if strings.TrimSpace(code) == "" {
				return errors.New("no authorization code given")
			}

			if _, err := notify.ExchangeCode(cmd.Context(), oauthCfg, code, token); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token saved to %s\n", token)
			return nil
		},
	}

	cmd.Flags().StringVar(&credentials, "credentials", "credentials.json", "OAuth client JSON from the Google Cloud console")
	cmd.Flags().StringVar(&token, "token", "token.json", "Where to save the token")
	return cmd
}
