package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) newRelayCmd() *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "relay <url>",
		Short: "Send a GET request to a panel URL and print the JSON response",
		Long: `Send one GET request to an arbitrary panel URL and print the parsed JSON body.

Each --param is appended to the URL's query string as a new key=value pair;
pairs already present in the URL are kept. The request is not retried.`,
		Example: `  # Fetch live categories
  xtream-desk relay http://panel.example:8080/player_api.php \
    --param username=alice --param password=secret --param action=get_live_categories

  # Raw URL with an existing query string
  xtream-desk relay "http://panel.example:8080/player_api.php?username=alice&password=secret"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseParams(params)
			if err != nil {
				return err
			}

			resp := a.svc.IptvRequest(cmd.Context(), args[0], parsed)
			return printEnvelope(a, cmd, resp, nil)
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Query parameter as key=value (repeatable)")
	return cmd
}

// parseParams turns key=value arguments into a map. Later keys win.
func parseParams(raw []string) (map[string]string, error) {
	params := make(map[string]string, len(raw))
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param '%s': expected key=value", item)
		}
		params[key] = value
	}
	return params, nil
}
