// Package chatstreamcmder
package chatstreamcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/chatstream/cmd/chatstream/chat"
	configcmder "github.com/papercomputeco/chatstream/cmd/chatstream/config"
	servecmder "github.com/papercomputeco/chatstream/cmd/chatstream/serve"
	versioncmder "github.com/papercomputeco/chatstream/cmd/version"
)

const chatstreamLongDesc string = `Chatstream is a streaming chat client for AI assistant backends.

Start chatting with:
  chatstream chat              Interactive chat session
  chatstream serve             Run a local dev backend that scripts replies

Manage configuration with:
  chatstream config list       List all configuration values`

const chatstreamShortDesc string = "Chatstream - Streaming AI chat"

func NewChatstreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatstream",
		Short: chatstreamShortDesc,
		Long:  chatstreamLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .chatstream/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
