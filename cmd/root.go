package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-epub-decrypt/internal/config"
	"github.com/deploymenttheory/go-epub-decrypt/internal/container"
	"github.com/deploymenttheory/go-epub-decrypt/internal/drm"
	"github.com/deploymenttheory/go-epub-decrypt/internal/logger"
)

var (
	cfgFile    string
	passphrase string
)

// rootCmd represents the base CLI command
var rootCmd = &cobra.Command{
	Use:   "go-epub-decrypt",
	Short: "A CLI tool for reading protected EPUB containers",
	Long: `go-epub-decrypt inspects and decrypts the protected resources of an
EPUB container: obfuscated fonts are unmasked without credentials, and
license-encrypted resources are decrypted with the content key unwrapped
from the bundled rights license and your passphrase.

Proprietary DRM schemes are detected and reported but never decrypted.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// CLI flags can override config settings
		if cmd.Flags().Changed("config") && cfgFile != "" {
			if err := config.Initialize(cfgFile); err != nil {
				logger.LogError("Failed to load config file", err, map[string]interface{}{
					"config_file": cfgFile,
				})
			}
		}
		if cmd.Flags().Changed("debug") {
			debug, _ := cmd.Flags().GetBool("debug")
			config.Instance.Debug = debug
		}
		if cmd.Flags().Changed("log-format") {
			logFormat, _ := cmd.Flags().GetString("log-format")
			config.Instance.LogFormat = logFormat
		}
		if cmd.Flags().Changed("passphrase") {
			config.Instance.Reader.Passphrase = passphrase
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.LogError("Command execution failed", err, nil)
		logger.Sync()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is search in standard locations)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", "human", "Log format: json or human")
	rootCmd.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "Passphrase for license-protected containers")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("reader.passphrase", rootCmd.PersistentFlags().Lookup("passphrase"))

	rootCmd.AddCommand(versionCmd)
}

// openContext opens an EPUB and constructs its decryption context from
// whatever the container declares and bundles.
func openContext(path string) (*container.Container, *drm.Context, error) {
	c, err := container.Open(path)
	if err != nil {
		return nil, nil, err
	}

	resources, err := c.Declaration()
	if err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("reading encryption declaration: %w", err)
	}

	uniqueID, err := c.UniqueIdentifier()
	if err != nil {
		// Fonts cannot be unmasked without it, but everything else works.
		logger.LogWarn("container has no readable unique identifier", map[string]interface{}{
			"container": path,
		})
		uniqueID = ""
	}

	lic, err := c.License()
	if err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("reading license artifact: %w", err)
	}

	ctx := drm.NewContext(drm.Config{
		Declaration: drm.NewDeclaration(resources),
		UniqueID:    uniqueID,
		License:     lic,
		Passphrase:  config.Instance.Reader.Passphrase,
	})
	return c, ctx, nil
}

// versionCmd shows the application version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("go-epub-decrypt v0.1.0")
	},
}
