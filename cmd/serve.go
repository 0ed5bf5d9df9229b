package cmd

import (
	"context"
	"os"

	"github.com/kasuboski/moviez/config"
	"github.com/kasuboski/moviez/pkg/api"
	"github.com/kasuboski/moviez/pkg/logger"
	"github.com/kasuboski/moviez/server"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the synchronized collection over http",
	Long:  `serve the synchronized collection over http`,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Get()
		ctx := logger.WithCtx(context.Background(), log)

		cfg, err := config.New(viper.GetViper())
		if err != nil {
			log.Fatal("failed to read configurations", zap.Error(err))
		}

		m, err := newManager(cfg)
		if err != nil {
			log.Fatal("failed to create manager", zap.Error(err))
		}
		defer m.Close()
		m.Notifications().Subscribe(printNotification(os.Stderr))

		if cfg.Auth.Username != "" {
			_, err = m.Login(ctx, api.Credentials{Username: cfg.Auth.Username, Password: cfg.Auth.Password})
		} else {
			err = m.Mount(ctx)
		}
		if err != nil {
			log.Warn("collection not loaded yet", zap.Error(err))
		}

		server := server.New(log, m)
		log.Error(server.Serve(cfg.Server.Port))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
