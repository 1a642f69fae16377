package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sotto/internal/domain"
	"sotto/internal/envelope"
)

// send <conversation-id> <message>: seal for the membership and send.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation-id> <message>",
		Short: "Seal and send a message into a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			id, err := wire.Keystore.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			if id.ID == "" {
				return fmt.Errorf("identity is not registered; run register first")
			}
			conversationID := args[0]

			keys, err := wire.Directory.ConversationKeys(cmd.Context(), conversationID)
			if err != nil {
				return err
			}
			env, err := envelope.SealFor([]byte(args[1]), keys)
			if err != nil {
				return err
			}

			// The fanout reaching our own connection is the delivery
			// acknowledgement; there is no separate success reply.
			acked := make(chan struct{}, 1)
			wire.Session.On(domain.FrameNewMessage, func(any) {
				select {
				case acked <- struct{}{}:
				default:
				}
			})

			if err := wire.Session.Connect(cmd.Context(), id.ID); err != nil {
				return err
			}
			defer wire.Session.Disconnect()

			err = wire.Session.Send(domain.SendMessage{
				Type:           domain.FrameSendMessage,
				ConversationID: conversationID,
				Envelope:       env,
				MessageType:    "text",
			})
			if err != nil {
				return err
			}

			select {
			case <-acked:
				fmt.Println("sent")
				return nil
			case <-time.After(5 * time.Second):
				return fmt.Errorf("no delivery confirmation from server")
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
		},
	}
}
