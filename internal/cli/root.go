package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/usagesentry/usagesentry/pkg/client"
)

var (
	cfgFile      string
	outputFormat string
	serverURL    string
	apiClient    *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "usagesentry",
	Short: "UsageSentry CLI - AI usage anomaly detection and incident tracking",
	Long: `UsageSentry CLI provides command-line access to the UsageSentry server
for inspecting usage anomalies, managing incident lifecycles, triggering
detection runs, and tuning detection parameters.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Parent() != nil && cmd.Parent().Name() == "config" && cmd.Name() != "show" {
			return nil
		}
		return initClient()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.usagesentry/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (overrides config)")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newAnomalyCmd())
	rootCmd.AddCommand(newIncidentCmd())
	rootCmd.AddCommand(newDetectionConfigCmd())
	rootCmd.AddCommand(newUsageCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		configDir := home + "/.usagesentry"
		_ = os.MkdirAll(configDir, 0700)
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("USAGESENTRY")
	viper.AutomaticEnv()

	viper.SetDefault("server_url", "http://localhost:8080")
	viper.SetDefault("output", "table")

	_ = viper.ReadInConfig()
}

func initClient() error {
	url := viper.GetString("server_url")
	if serverURL != "" {
		url = serverURL
	}

	apiClient = client.NewClient(client.Config{
		BaseURL: url,
		Token:   viper.GetString("api_token"),
	})
	return nil
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}
