package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Publish the public key to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			id, err := wire.Keystore.LoadIdentity(passphrase)
			if err != nil {
				return err
			}

			p, err := wire.Directory.Register(cmd.Context(), id.Username, id.PublicKey)
			if err != nil {
				return err
			}

			// The server assigns the principal id; persist it so later
			// commands can authenticate and seal as this principal.
			id.ID = p.ID
			if err := wire.Keystore.SaveIdentity(passphrase, id); err != nil {
				return err
			}

			fmt.Printf("Registered as %s (%s)\n", id.Username, p.ID)
			return nil
		},
	}
}
