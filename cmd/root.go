package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tomasfh/compwatch/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "compwatch",
	Short: "Watches the WCA competition listing and notifies chat channels.",
	Long: `compwatch polls the World Cube Association competition listing for a
country, detects newly published competitions, registration windows opening,
and competitions running out of spots, and announces them to Discord and
Telegram. Run it from cron or a CI schedule; each invocation is one cycle.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.compwatch.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".compwatch")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.compwatch.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	viper.SetDefault("wca.country", "CL")
	viper.SetDefault("wca.base_url", "")
	viper.SetDefault("watch.state_dir", "")
	viper.SetDefault("watch.timeout_sec", 15)
	viper.SetDefault("watch.window_min", 60)
	viper.SetDefault("watch.capacity_threshold", 0.80)
	viper.SetDefault("discord.webhook_url", "")
	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.chat_id", "")

	// Secrets usually arrive through the environment (or a .env file).
	viper.BindEnv("discord.webhook_url", "DISCORD_WEBHOOK_URL")
	viper.BindEnv("telegram.token", "TELEGRAM_TOKEN")
	viper.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

// defaultStateDir resolves the state directory when none is configured.
func defaultStateDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return home + "/.config/compwatch", nil
}
