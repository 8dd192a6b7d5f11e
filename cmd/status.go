package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <epub>",
	Short: "Report the protection status of an EPUB container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, err := openContext(args[0])
		if err != nil {
			return err
		}
		defer c.Close()
		defer ctx.Close()

		fmt.Printf("container: %s\n", args[0])
		fmt.Printf("status:    %s\n", ctx.Summary())

		if hint := ctx.Hint(); hint != "" {
			fmt.Printf("hint:      %s\n", hint)
		}
		if !ctx.LicenseValid(time.Now()) {
			fmt.Println("warning:   license is outside its validity window")
		}

		entries := ctx.Entries()
		if len(entries) > 0 {
			fmt.Printf("declared resources (%d):\n", len(entries))
			for _, e := range entries {
				fmt.Printf("  %-12s %s\n", e.Scheme, e.Path)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
