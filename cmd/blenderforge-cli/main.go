// blenderforge-cli is a small demonstration client for pkg/blenderclient
// (spec.md C7), useful for poking at a running C4 server by hand.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/scenebridge/blenderforge/pkg/blenderclient"
)

var (
	host string
	port int
)

func main() {
	root := &cobra.Command{
		Use:   "blenderforge-cli",
		Short: "Talk to a running blenderforge host service over C4",
	}
	root.PersistentFlags().StringVar(&host, "host", "127.0.0.1", "C4 host")
	root.PersistentFlags().IntVar(&port, "port", 6688, "C4 port")

	root.AddCommand(sceneInfoCmd(), objectInfoCmd(), execCmd(), screenshotCmd(), listObjectsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func client() *blenderclient.Client {
	return blenderclient.New(host, uint16(port))
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func sceneInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scene-info",
		Short: "Print get_scene_info",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client().SendCommand(context.Background(), "get_scene_info", nil)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func objectInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "object-info <name>",
		Short: "Print get_object_info for an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client().SendCommand(context.Background(), "get_object_info", map[string]interface{}{
				"name": args[0],
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func execCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Execute source read from --file or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			var src []byte
			var err error
			if file != "" {
				src, err = os.ReadFile(file)
			} else {
				src, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return err
			}

			stdout, err := client().ExecutePython(context.Background(), string(src), true, true)
			if err != nil {
				return err
			}
			fmt.Print(stdout)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to source file (default: stdin)")
	return cmd
}

func screenshotCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Request get_viewport_screenshot and print the resulting filepath",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{}
			if out != "" {
				params["filepath"] = out
			}
			result, err := client().SendCommand(context.Background(), "get_viewport_screenshot", params)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "destination path (default: host-chosen temp file)")
	return cmd
}

func listObjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-objects",
		Short: "List scene objects via the sentinel-tagged scene manager helper",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := blenderclient.NewSceneManager(client())
			objects, err := mgr.ListObjects(context.Background())
			if err != nil {
				return err
			}
			return printJSON(objects)
		},
	}
}
