package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"crosswalk/bootstrap"
	"crosswalk/dispatch"

	"github.com/spf13/cobra"
)

// newToolsCmd creates the 'tools' subcommand
func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the callable tools and their argument schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			d, err := bootstrap.NewDispatcher(env.storage, env.sugar)
			if err != nil {
				return err
			}

			if outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), map[string]interface{}{"tools": d.Tools()})
			}
			renderTools(cmd.OutOrStdout(), d.Tools())
			return nil
		},
	}
}

// newCallCmd creates the 'call' subcommand. The argument object is read from
// the second positional argument, or from stdin when it is "-".
func newCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [json-arguments|-]",
		Short: "Call a tool with a JSON argument object and print the response",
		Example: `  crosswalk call search_requirements '{"query": "authentication", "limit": 5}'
  echo '{"security_level": 2}' | crosswalk call map_security_level -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			if len(args) == 2 {
				if args[1] == "-" {
					b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxArgumentBytes))
					if err != nil {
						return fmt.Errorf("failed to read arguments: %w", err)
					}
					raw = b
				} else {
					raw = []byte(args[1])
				}
			}

			resp, err := callTool(cmd, args[0], raw)
			if err != nil {
				return err
			}
			return outputAsJSON(cmd.OutOrStdout(), resp)
		},
	}
}

const maxArgumentBytes = 1 << 20

// callTool opens the store, routes one call through the dispatcher and closes
// the store again
func callTool(cmd *cobra.Command, tool string, raw json.RawMessage) (*dispatch.Response, error) {
	env, cleanup, err := openEnv()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	d, err := bootstrap.NewDispatcher(env.storage, env.sugar)
	if err != nil {
		return nil, err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := d.Call(ctx, strings.TrimSpace(tool), raw)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// runTool is the body shared by the convenience subcommands: marshal args,
// call, then print JSON or the human rendering
func runTool(cmd *cobra.Command, tool string, args map[string]interface{}, render func(io.Writer, interface{}) error) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode arguments: %w", err)
	}

	resp, err := callTool(cmd, tool, raw)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if outputJSON {
		return outputAsJSON(w, resp)
	}
	if !resp.Found {
		warningColor.Fprintln(w, "No results")
		return nil
	}
	return render(w, resp.Result)
}

// outputAsJSON writes data as indented JSON
func outputAsJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
