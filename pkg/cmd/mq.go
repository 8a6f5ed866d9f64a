package cmd

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/spf13/cobra"

	"github.com/yeisme/snipvault/pkg/configs"
	mq "github.com/yeisme/snipvault/pkg/internal/storage/mq"
	"github.com/yeisme/snipvault/pkg/queue"
)

var (
	mqCmd = &cobra.Command{
		Use:     "mq",
		Short:   "event bus commands",
		Aliases: []string{"messagequeue"},
	}

	mqListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list registered mq backends and the topics events are published to",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			cfg := configs.GetConfig()
			events := queue.NewEmitter(nopPublisher{}, cfg.Events)

			fmt.Fprintln(cmd.OutOrStdout(), "Registered mq types:")

			for _, t := range mq.GetRegisteredMQTypes() {
				mark := " "
				if t == cfg.MQ.GetMQType() {
					mark = "*"
				}

				fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", mark, t)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Topics:")

			for _, topic := range append(queue.SnippetTopics, queue.TopicIndexRebuilt) {
				state := "off"
				if events.Enabled(topic) {
					state = "on"
				}

				fmt.Fprintf(cmd.OutOrStdout(), "  %s%s (%s)\n", cfg.MQ.TopicPrefix, topic, state)
			}
		},
	}
)

// nopPublisher 仅用于判断事件开关.
type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, ...*message.Message) error { return nil }

// registerMQCommands 注册 MQ 相关命令.
func registerMQCommands() {
	rootCmd.AddCommand(mqCmd)
	mqCmd.AddCommand(mqListCmd)
}
