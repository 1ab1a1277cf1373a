package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"goa.design/convorun/loop"
	"goa.design/convorun/message"
	"goa.design/convorun/middleware"
	"goa.design/convorun/scheduler"
	"goa.design/convorun/store/inmem"
	"goa.design/convorun/usage"
	usageinmem "goa.design/convorun/usage/inmem"
)

func buildChatCmd() *cobra.Command {
	var threadID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive line-based chat against the echo demo agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), threadID)
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "demo-thread", "conversation thread id")
	return cmd
}

func runChat(ctx context.Context, threadID string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := inmem.New()
	if _, err := st.CreateThread(ctx, threadID, time.Now()); err != nil {
		return fmt.Errorf("create thread: %w", err)
	}

	limiter := middleware.NewAdaptiveRateLimiter(ctx, nil, "", 60000, 60000)
	chain := middleware.Chain(
		limiter.Middleware(),
		middleware.Retry(middleware.RetryConfig{}),
		usage.EnrichmentMiddleware(usage.Config{Cache: usageinmem.New()}, nil),
	)
	sched := scheduler.New(scheduler.Config{Store: st, Agent: chain(echoAgent{})})
	sched.RunAsync(ctx)
	defer sched.DisposeAsync()

	push := loop.PushLoop{Scheduler: sched, Mode: loop.Interactive}
	go func() {
		_ = push.Run(ctx, threadID, nil, func(m message.Message) {
			printMessage(m)
		})
	}()

	fmt.Println("convorun-demo chat. Type a message and press enter; Ctrl-D to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if _, err := sched.Send(ctx, message.UserInput{ThreadID: threadID, Text: line}); err != nil {
			fmt.Fprintln(os.Stderr, "send failed:", err)
		}
	}

	return nil
}

func printMessage(m message.Message) {
	switch v := m.(type) {
	case *message.RunAssignmentMessage:
		fmt.Printf("[assigned to %s]\n", v.AssignedTo)
	case *message.RunCompletedMessage:
		if v.Status == message.RunStatusFailed {
			fmt.Printf("[run failed: %s]\n", v.ErrorMessage)
		}
	default:
		if v.Base().Role == message.RoleAssistant {
			if text, ok := message.GetText(v); ok {
				fmt.Printf("agent> %s\n", text)
			}
		}
	}
}
