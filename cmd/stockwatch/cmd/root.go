// Package cmd implements the CLI commands for stockwatch.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "stockwatch",
	Short: "Monitor a retailer listing for new arrivals and restocks",
	Long: "Stockwatch polls a retailer's category listing page, detects new\n" +
		"products and restocks against its own record of what it has seen,\n" +
		"sends Telegram alerts, and serves stats over an HTTP API.",
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().
		String("api-url", "http://localhost:8080", "API server URL for client commands")
	cobra.CheckErr(viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url")))

	rootCmd.AddCommand(versionCommand())
}

// initEnv loads a local .env file if present, so secrets referenced by
// ${VAR} substitution in the config resolve without exporting them.
func initEnv() {
	_ = godotenv.Load()

	viper.SetEnvPrefix("STOCKWATCH")
	viper.AutomaticEnv()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
