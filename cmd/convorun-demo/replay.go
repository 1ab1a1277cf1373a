package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"goa.design/convorun/config"
	"goa.design/convorun/loop"
	"goa.design/convorun/message"
	"goa.design/convorun/provider/fake"
	"goa.design/convorun/scheduler"
	"goa.design/convorun/store/inmem"
)

func buildReplayCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run one scripted turn through the scheduler and print the resulting history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runReplay(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file (scheduler queue sizing, usage cache TTL, retry)")
	return cmd
}

func runReplay(ctx context.Context, cfg config.Config) error {
	const threadID = "replay-thread"

	st := inmem.New()
	if _, err := st.CreateThread(ctx, threadID, time.Now()); err != nil {
		return fmt.Errorf("create thread: %w", err)
	}

	agent := fake.New().WithStreams(fake.StreamScript{
		Deltas: []message.Message{
			&message.Text{Common: message.Common{Role: message.RoleAssistant}, Content: "Scripted reply for the demo."},
		},
		Usage: message.Usage{Model: "demo-scripted", Provider: "convorun-demo", InputTokens: 12, OutputTokens: 6},
	})

	queueCap := cfg.Scheduler.InputQueueCapacity
	bufSize := cfg.Scheduler.SubscriberBufferSize
	sched := scheduler.New(scheduler.Config{
		Store:                st,
		Agent:                agent,
		InputQueueCapacity:   queueCap,
		SubscriberBufferSize: bufSize,
	})
	sched.RunAsync(ctx)
	defer sched.DisposeAsync()

	push := loop.PushLoop{Scheduler: sched, Mode: loop.OneShot}
	return push.Run(ctx, threadID, &message.UserInput{ThreadID: threadID, Text: "Hello, agent."}, func(m message.Message) {
		fmt.Printf("%-24s role=%-10s", m.Kind(), m.Base().Role)
		if text, ok := message.GetText(m); ok {
			fmt.Printf(" text=%q", text)
		}
		fmt.Println()
	})
}
