package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/streammarks/internal/utils"
)

// do sends a request to serverURL+path and copies the response body to out.
// Non-2xx responses are printed too, then reported as an error.
func do(ctx context.Context, client *http.Client, method, serverURL, path string, header http.Header, out io.Writer) error {
	url := strings.TrimSuffix(serverURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer utils.Close(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	fmt.Fprintln(out, strings.TrimRight(string(body), "\n"))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %s", method, url, resp.Status)
	}
	return nil
}
