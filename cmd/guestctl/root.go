package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// globalOpts are the connection flags shared by every API subcommand.
type globalOpts struct {
	apiURL   string
	token    string
	subject  string
	user     string
	password string
	timeout  time.Duration
}

func newRootCmd() *cobra.Command {
	o := &globalOpts{}
	root := &cobra.Command{
		Use:   "guestctl",
		Short: "Manage wedding guests from the command line",
		Long: `guestctl talks to the RSVP API's admin endpoints.

Authentication (first match wins):
  --token     bearer JWT (AUTH_MODE=jwt)
  --user      basic auth with --password (AUTH_MODE=basic)
  --subject   X-Debug-Subject header (AUTH_MODE=dev)`,
		SilenceUsage: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&o.apiURL, "api", envOr("GUESTCTL_API", "http://localhost:8080"), "API base URL")
	f.StringVar(&o.token, "token", os.Getenv("GUESTCTL_TOKEN"), "admin bearer token")
	f.StringVar(&o.subject, "subject", os.Getenv("GUESTCTL_SUBJECT"), "dev auth subject")
	f.StringVar(&o.user, "user", os.Getenv("ADMIN_USER"), "basic auth user")
	f.StringVar(&o.password, "password", os.Getenv("ADMIN_PASSWORD"), "basic auth password")
	f.DurationVar(&o.timeout, "timeout", 60*time.Second, "request timeout")

	root.AddCommand(
		newImportCmd(o),
		newTimelineCmd(o),
		newInvitesCmd(o),
		newSummaryCmd(o),
		newDevIssuerCmd(),
	)
	return root
}

func (o *globalOpts) client() *apiClient {
	return &apiClient{
		base:     strings.TrimRight(o.apiURL, "/"),
		http:     &http.Client{Timeout: o.timeout},
		token:    o.token,
		subject:  o.subject,
		user:     o.user,
		password: o.password,
	}
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
