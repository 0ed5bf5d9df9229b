package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kasuboski/moviez/config"
	"github.com/kasuboski/moviez/pkg/api"
	"github.com/kasuboski/moviez/pkg/logger"
	"github.com/kasuboski/moviez/pkg/manager"
	"github.com/kasuboski/moviez/pkg/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	loginUsername string
	loginPassword string
	registerEmail string
	registerRole  string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "manage the session with the collection API",
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "log in with the configured credentials and verify the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, _ := openSession(ctx)
		defer m.Close()

		if err := m.Session().Check(ctx); err != nil {
			return fmt.Errorf("session check failed: %w", err)
		}
		printAccount(os.Stdout, m)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "log in with the given credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, _ := unauthenticated()
		defer m.Close()

		_, err := m.Login(ctx, api.Credentials{Username: loginUsername, Password: loginPassword})
		if err != nil {
			return fmt.Errorf("failed to login: %w", err)
		}
		printAccount(os.Stdout, m)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "create an account and log into it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, _ := unauthenticated()
		defer m.Close()

		_, err := m.Register(ctx, api.Profile{
			Username: loginUsername,
			Email:    registerEmail,
			Password: loginPassword,
			Role:     registerRole,
		})
		if err != nil {
			return fmt.Errorf("failed to register: %w", err)
		}
		printAccount(os.Stdout, m)
		return nil
	},
}

// unauthenticated builds a manager without signing in
func unauthenticated() (*manager.Manager, *zap.SugaredLogger) {
	log := logger.Get()

	cfg, err := config.New(viper.GetViper())
	if err != nil {
		log.Fatalw("failed to read configurations", "error", err)
	}

	m, err := newManager(cfg)
	if err != nil {
		log.Fatalw("failed to create manager", "error", err)
	}
	m.Notifications().Subscribe(printNotification(os.Stdout))

	return m, log
}

func printAccount(w io.Writer, m *manager.Manager) {
	user, ok := m.Session().User()
	if !ok {
		fmt.Fprintln(w, "not logged in")
		return
	}

	fmt.Fprintf(w, "%s <%s> %s\n", user.Username, user.Email, user.Role)
	for _, a := range session.Actions {
		if m.Session().Can(a) {
			fmt.Fprintf(w, "  can %s\n", a)
		}
	}
	fmt.Fprintf(w, "%d movies in the collection\n", m.Store().Len())
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&loginUsername, "username", "u", "", "account username")
		c.Flags().StringVarP(&loginPassword, "password", "p", "", "account password")
	}
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "email address of the account")
	registerCmd.Flags().StringVar(&registerRole, "role", string(session.RoleUser), "role of the account (user, admin)")

	authCmd.AddCommand(checkCmd, loginCmd, registerCmd)
	rootCmd.AddCommand(authCmd)
}
