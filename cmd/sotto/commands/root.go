package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sotto/internal/app"
)

var (
	home       string
	passphrase string
	serverURL  string
	wire       *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:   "sotto",
		Short: "End-to-end encrypted realtime chat CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".sotto")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				With().Timestamp().Logger().Level(zerolog.WarnLevel)

			var err error
			wire, err = app.NewWire(app.Config{
				Home:      home,
				ServerURL: serverURL,
				Log:       log,
			})
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.sotto)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity")
	root.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "server base URL")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		registerCmd(),
		conversationCmd(),
		sendCmd(),
		historyCmd(),
		listenCmd(),
	)
	return root.Execute()
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}
