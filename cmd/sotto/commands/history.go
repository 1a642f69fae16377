package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sotto/internal/domain"
	"sotto/internal/envelope"
)

// history <conversation-id>: fetch stored messages and decrypt locally.
func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <conversation-id>",
		Short: "Fetch and decrypt stored messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			priv, id, err := wire.Keystore.PrivateKey(passphrase)
			if err != nil {
				return err
			}

			msgs, err := wire.Directory.ConversationMessages(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				pt, err := envelope.Open(m.Envelope, id.ID, priv)
				if err != nil {
					if errors.Is(domain.RedactDecrypt(err), domain.ErrCannotDecrypt) {
						fmt.Printf("[%s] %s: <cannot decrypt>\n", m.CreatedAt.Format("15:04:05"), m.SenderUsername)
						continue
					}
					return err
				}
				fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04:05"), m.SenderUsername, pt)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of messages to fetch")
	return cmd
}
