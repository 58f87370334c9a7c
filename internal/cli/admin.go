package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

// NewAdminCommand creates a command that POSTs /<name> with the admin key.
func NewAdminCommand(opts *RootOptions, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <server URL>",
		Short: short,
		Long:  short + ".\n\nThe bearer token is read from $" + KeyEnv + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			getenv := opts.getenv
			if getenv == nil {
				getenv = os.Getenv
			}
			key := getenv(KeyEnv)
			if key == "" {
				return fmt.Errorf("%s env var needs to be set", KeyEnv)
			}

			h := http.Header{}
			h.Set("Authorization", "Bearer "+key)
			return do(cmd.Context(), opts.httpClient(), http.MethodPost, args[0], "/"+name, h, cmd.OutOrStdout())
		},
	}
}
