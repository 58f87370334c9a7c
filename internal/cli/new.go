package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/streammarks/internal/domain"
	"github.com/MrSnakeDoc/streammarks/internal/httpserver/handlers"
)

// NewNewCommand creates the new command, which posts a bookmark the way Nightbot does.
func NewNewCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "new <server URL> <channel ID> <username>",
		Short:   "Create or move a bookmark as if sent from chat",
		Example: "  bookmarkctl new http://127.0.0.1:8000 UCp6pmlkI1WbrZFOWlXtOwCQ alice",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, channelID, username := args[0], args[1], args[2]
			return do(cmd.Context(), opts.httpClient(), http.MethodGet, serverURL, "/create-bookmark",
				nightbotHeaders(channelID, username), cmd.OutOrStdout())
		},
	}
}

func nightbotHeaders(channelID, username string) http.Header {
	h := http.Header{}
	h.Set(handlers.HeaderResponseURL, "http://example.com")
	h.Set(handlers.HeaderUser, domain.EncodeUser(domain.User{
		Name:        username,
		DisplayName: username,
		Provider:    domain.ProviderYouTube,
		ProviderID:  "nonexisty",
		UserLevel:   "idk",
	}))
	h.Set(handlers.HeaderChannel, domain.EncodeChannel(domain.Channel{
		Name:        "test",
		DisplayName: "Placeholder",
		Provider:    domain.ProviderYouTube,
		ProviderID:  channelID,
	}))
	return h
}
