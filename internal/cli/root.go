// Package cli implements bookmarkctl, a small client for a running server.
package cli

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/streammarks/internal/version"
)

// KeyEnv names the variable holding the admin bearer token.
const KeyEnv = "RECOUNT_KEY"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Timeout time.Duration

	// client is shared by subcommands; tests swap it.
	client *http.Client
	getenv func(string) string
}

func (o *RootOptions) httpClient() *http.Client {
	if o.client != nil {
		return o.client
	}
	return &http.Client{Timeout: o.Timeout}
}

// NewRootCommand creates the bookmarkctl command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bookmarkctl",
		Short:         "Control a streammarks server",
		Long:          "Create test bookmarks and run admin tasks against a streammarks server.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "HTTP request timeout")

	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts, "recount", "Rebuild the bookmark counter from a full scan"))
	cmd.AddCommand(NewAdminCommand(opts, "reload", "Reload the channel allow-list file"))

	return cmd
}
