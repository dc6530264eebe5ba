package cmd

import (
	"fmt"
	"io"
	"os"

	"pastemd/pkg/clipboard"

	"github.com/spf13/cobra"
)

var clipboardServeCmd = &cobra.Command{
	Use:    clipboard.ServeCommand,
	Hidden: true,
	Short:  "Internal: serve clipboard content over Wayland (do not call directly)",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		return clipboard.Serve(payload, func(line string) {
			fmt.Println(line)
		})
	},
}
