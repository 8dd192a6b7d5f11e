package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	commonerrors "github.com/deploymenttheory/go-epub-decrypt/internal/common/errors"
	"github.com/deploymenttheory/go-epub-decrypt/internal/config"
	"github.com/deploymenttheory/go-epub-decrypt/internal/container"
	"github.com/deploymenttheory/go-epub-decrypt/internal/license"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <epub>",
	Short: "Check a passphrase against a container's license",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := container.Open(args[0])
		if err != nil {
			return err
		}
		defer c.Close()

		raw, err := c.License()
		if err != nil {
			return fmt.Errorf("reading license artifact: %w", err)
		}
		if raw == nil {
			fmt.Println("container bundles no license; nothing to verify")
			return nil
		}

		doc, err := license.Parse(raw)
		if err != nil {
			return err
		}

		fmt.Printf("license:  %s\n", doc.ID)
		if doc.Provider != "" {
			fmt.Printf("provider: %s\n", doc.Provider)
		}
		if !doc.Valid(time.Now()) {
			fmt.Println("warning:  license is outside its validity window")
		}

		if err := license.Verify(doc, config.Instance.Reader.Passphrase); err != nil {
			if errors.Is(err, commonerrors.ErrCredentialsRequired) {
				return errors.New("no passphrase given; pass one with --passphrase")
			}
			return fmt.Errorf("passphrase rejected: %w", err)
		}
		fmt.Println("passphrase accepted")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
