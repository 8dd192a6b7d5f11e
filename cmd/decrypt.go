package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-epub-decrypt/internal/config"
	"github.com/deploymenttheory/go-epub-decrypt/internal/container"
	"github.com/deploymenttheory/go-epub-decrypt/internal/logger"
)

var outputPath string

var decryptCmd = &cobra.Command{
	Use:   "decrypt <epub>",
	Short: "Write a decrypted copy of an EPUB container",
	Long: `decrypt reads every resource of the container, reverses font
obfuscation and license encryption where declared, and writes the result
as a new EPUB. The encryption declaration and license artifact are
omitted from the output since nothing in it is encrypted anymore.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := args[0]
		out := outputPath
		if out == "" {
			out = config.Instance.Reader.Output
		}
		if out == "" {
			out = derivedOutputName(in)
		}

		c, ctx, err := openContext(in)
		if err != nil {
			return err
		}
		defer c.Close()
		defer ctx.Close()

		if !ctx.Unlocked() {
			return fmt.Errorf("container is not fully decryptable: %s", ctx.Summary())
		}

		w, err := container.Create(out)
		if err != nil {
			return err
		}

		if mimetype, err := c.ReadFile("mimetype"); err == nil {
			if err := w.WriteMimetype(mimetype); err != nil {
				w.Close()
				return err
			}
		}

		decrypted := 0
		for _, entry := range c.Files() {
			if skipInOutput(entry.Name) {
				continue
			}

			rc, err := entry.Open()
			if err != nil {
				w.Close()
				return fmt.Errorf("opening entry %s: %w", entry.Name, err)
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				w.Close()
				return fmt.Errorf("reading entry %s: %w", entry.Name, err)
			}

			if ctx.IsEncrypted(entry.Name) {
				data, err = ctx.Decrypt(entry.Name, data)
				if err != nil {
					w.Close()
					return fmt.Errorf("decrypting %s: %w", entry.Name, err)
				}
				decrypted++
			}

			if err := w.WriteFile(entry.Name, data); err != nil {
				w.Close()
				return err
			}
		}

		if err := w.Close(); err != nil {
			return err
		}

		logger.LogInfo("container decrypted", map[string]interface{}{
			"input":     in,
			"output":    out,
			"decrypted": decrypted,
		})
		fmt.Printf("wrote %s (%d resource(s) decrypted)\n", out, decrypted)
		return nil
	},
}

// skipInOutput filters entries that describe the protection we just
// removed, plus the mimetype entry which is written separately first.
func skipInOutput(name string) bool {
	switch strings.ToLower(name) {
	case "mimetype", "meta-inf/encryption.xml", "meta-inf/license.lcpl":
		return true
	}
	return false
}

func derivedOutputName(in string) string {
	if strings.HasSuffix(strings.ToLower(in), ".epub") {
		return in[:len(in)-len(".epub")] + ".decrypted.epub"
	}
	return in + ".decrypted.epub"
}

func init() {
	decryptCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default <input>.decrypted.epub)")
	rootCmd.AddCommand(decryptCmd)
}
