package commands

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sotto/internal/domain"
	"sotto/internal/envelope"
)

// listen: stay connected and print conversation traffic as it arrives.
func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Stay connected and print incoming messages live",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			priv, id, err := wire.Keystore.PrivateKey(passphrase)
			if err != nil {
				return err
			}
			if id.ID == "" {
				return fmt.Errorf("identity is not registered; run register first")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			wire.Session.On(domain.FrameNewMessage, func(payload any) {
				f, ok := payload.(*domain.NewMessage)
				if !ok {
					return
				}
				m := f.Message
				pt, err := envelope.Open(m.Envelope, id.ID, priv)
				if err != nil {
					if errors.Is(domain.RedactDecrypt(err), domain.ErrCannotDecrypt) || errors.Is(err, domain.ErrNotARecipient) {
						fmt.Printf("%s: <cannot decrypt>\n", m.SenderUsername)
					}
					return
				}
				fmt.Printf("%s: %s\n", m.SenderUsername, pt)

				// Report delivery back to the sender. Our own messages
				// echoing through the fanout need no receipt.
				if m.SenderID != id.ID {
					_ = wire.Session.Send(domain.MessageStatusFrame{
						Type:      domain.FrameMessageStatus,
						MessageID: m.ID,
						Status:    domain.StatusDelivered,
					})
				}
			})
			wire.Session.On(domain.FrameTypingStatus, func(payload any) {
				f, ok := payload.(*domain.TypingStatus)
				if !ok {
					return
				}
				if f.IsTyping {
					fmt.Printf("%s is typing...\n", f.Username)
				}
			})
			wire.Session.On(domain.FrameMessageStatusUpdate, func(payload any) {
				f, ok := payload.(*domain.MessageStatusUpdate)
				if !ok {
					return
				}
				fmt.Printf("message %s %s by %s\n", f.MessageID, f.Status, f.PrincipalID)
			})
			wire.Session.On(domain.FrameError, func(payload any) {
				f, ok := payload.(*domain.ErrorFrame)
				if !ok {
					return
				}
				fmt.Printf("server error: %s\n", f.Message)
			})

			if err := wire.Session.Connect(ctx, id.ID); err != nil {
				return err
			}
			defer wire.Session.Disconnect()
			fmt.Println("Listening. Ctrl-C to stop.")

			<-ctx.Done()
			return nil
		},
	}
}
