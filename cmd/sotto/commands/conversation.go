package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"sotto/internal/domain"
)

func conversationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversation",
		Short: "Manage conversations",
	}
	cmd.AddCommand(conversationCreateCmd())
	return cmd
}

func conversationCreateCmd() *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:   "create <member-id>...",
		Short: "Create a conversation with yourself and the given members",
		Args:  cobra.MinimumNArgs(1),
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

			members := []domain.PrincipalID{id.ID}
			for _, a := range args {
				members = append(members, domain.PrincipalID(a))
			}

			kind := domain.ConversationDirect
			if group {
				kind = domain.ConversationGroup
			}
			conv, err := wire.Directory.CreateConversation(cmd.Context(), kind, members)
			if err != nil {
				return err
			}
			fmt.Printf("Conversation created: %s (%s, %d members)\n", conv.ID, conv.Kind, len(conv.Members))
			return nil
		},
	}
	cmd.Flags().BoolVar(&group, "group", false, "create a group conversation")
	return cmd
}
