// Package chatcmder provides the chat command for interactive streaming chat
// against a chatstream backend.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatstream/pkg/apiclient"
	"github.com/papercomputeco/chatstream/pkg/chat"
	"github.com/papercomputeco/chatstream/pkg/cliui"
	"github.com/papercomputeco/chatstream/pkg/config"
	"github.com/papercomputeco/chatstream/pkg/eventstream"
	eskafka "github.com/papercomputeco/chatstream/pkg/eventstream/kafka"
	esnop "github.com/papercomputeco/chatstream/pkg/eventstream/nop"
	"github.com/papercomputeco/chatstream/pkg/logger"
	"github.com/papercomputeco/chatstream/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
	widgetStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Italic(true)
)

type chatCommander struct {
	apiTarget      string
	token          string
	conversationID string
	debug          bool

	events config.EventsConfig

	logger *slog.Logger
}

const chatLongDesc string = `Start an interactive chat session against a chatstream backend.

The chat command sends messages to the backend's send endpoint and streams
the assistant's reply token by token. Widget directives carried on the
stream are announced inline; panel-display widgets are tracked on the
session's panel stack.

When turn telemetry is enabled (events.enabled), every completed turn is
published to the configured Kafka topic.

Examples:
  chatstream chat
  chatstream chat --api-target http://localhost:8090
  chatstream chat --conversation 6b2f0c1e`

const chatShortDesc string = "Interactive streaming chat"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}

			if !cmd.Flags().Changed("token") {
				cmder.token = cfg.Client.Token
			}

			cmder.events = cfg.Events
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "a", defaults.Client.APITarget, "Chat backend URL")
	cmd.Flags().StringVarP(&cmder.token, "token", "t", defaults.Client.Token, "Bearer token for the backend")
	cmd.Flags().StringVarP(&cmder.conversationID, "conversation", "c", "", "Conversation ID to continue (default: new conversation)")

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	if c.conversationID == "" {
		c.conversationID = uuid.NewString()
	}

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	client := apiclient.New(c.apiTarget, apiclient.WithToken(c.token))

	store := chat.NewStore()
	unsubscribe := store.Subscribe(printChange)
	defer unsubscribe()

	session := chat.NewSession(client, store,
		chat.WithPublisher(publisher),
		chat.WithLogger(c.logger),
	)

	fmt.Println()
	fmt.Printf("  %s New conversation %s\n",
		cliui.DimStyle.Render("●"),
		cliui.DimStyle.Render(fmt.Sprintf("(%s)", utils.Truncate(c.conversationID, 16))),
	)
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Backend:"),
		cliui.NameStyle.Render(c.apiTarget),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		fmt.Print(assistantPrompt)

		if err := session.Send(context.Background(), c.conversationID, input); err != nil {
			fmt.Println()
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		fmt.Println()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// printChange renders store changes to stdout as they happen. Tokens print
// inline so the reply streams visibly; widgets print as a one-line notice.
func printChange(change chat.Change) {
	switch ch := change.(type) {
	case chat.DeltaAppended:
		fmt.Print(ch.Delta)
	case chat.WidgetAppended:
		fmt.Printf("\n%s\n", widgetStyle.Render(fmt.Sprintf("[widget: %s]", ch.Widget.Type)))
	}
}

// newPublisher builds the turn telemetry publisher from the events config.
// Telemetry defaults to off; without brokers it stays a no-op.
func (c *chatCommander) newPublisher() (eventstream.Publisher, error) {
	if !c.events.Enabled || len(c.events.Brokers) == 0 {
		return esnop.NewPublisher(), nil
	}

	publisher, err := eskafka.NewPublisher(eskafka.Config{
		Brokers: c.events.Brokers,
		Topic:   c.events.Topic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	c.logger.Info("turn telemetry enabled",
		"brokers", strings.Join(c.events.Brokers, ","),
		"topic", c.events.Topic,
	)

	return publisher, nil
}
