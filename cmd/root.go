package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "moviez",
	Short: "moviez cli",
	Long:  `moviez keeps a personal movie collection in sync with the collection API`,

	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
}

const (
	defaultTimeout              = time.Second * 15
	defaultBackoff              = time.Millisecond * 500
	defaultNotificationDuration = time.Second * 4
)

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	viper.SetEnvPrefix("MOVIEZ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", ""))
	viper.AutomaticEnv()

	viper.SetDefault("api.scheme", "http")
	viper.SetDefault("api.host", "localhost:5001")
	viper.SetDefault("api.basePath", "")
	viper.SetDefault("api.timeout", defaultTimeout)
	viper.SetDefault("api.maxRetries", 3)
	viper.SetDefault("api.backoff", defaultBackoff)
	viper.SetDefault("api.remoteFilter", true)

	viper.SetDefault("auth.username", "")
	viper.SetDefault("auth.password", "")

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("notifications.duration", defaultNotificationDuration)

	viper.SetDefault("breaker.maxRequests", 1)
	viper.SetDefault("breaker.interval", time.Minute)
	viper.SetDefault("breaker.timeout", time.Second*30)
	viper.SetDefault("breaker.failureThreshold", 5)
}
