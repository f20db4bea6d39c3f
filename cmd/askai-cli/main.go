// ABOUTME: Command line client for askai-gateway
// ABOUTME: Submits questions, shows session feeds, and hides questions

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: askai <command> [args]")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  ask <question...>  Submit a question to the current session")
		fmt.Println("  feed               Show the session question feed")
		fmt.Println("  my                 Show your own questions, blocked ones included")
		fmt.Println("  hide <id>          Hide a question (requires moderator key)")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client := NewGatewayClient(cfg.Gateway.URL)

	switch os.Args[1] {
	case "ask":
		err = runAsk(ctx, cfg, client, os.Args[2:])
	case "feed":
		err = runFeed(ctx, cfg, client)
	case "my":
		err = runMy(ctx, cfg, client)
	case "hide":
		err = runHide(ctx, cfg, client, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAsk(ctx context.Context, cfg *Config, client *GatewayClient, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return fmt.Errorf("usage: askai ask <question>")
	}

	resp, err := client.Submit(ctx, SubmitRequest{
		Question:    text,
		Industry:    cfg.Session.Industry,
		SessionID:   cfg.Session.ID,
		AuthorToken: cfg.Author.Token,
		Email:       cfg.Author.Email,
	})
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("  ✓ ")
	fmt.Printf("Question submitted: %s\n", resp.ID)
	return nil
}

func runFeed(ctx context.Context, cfg *Config, client *GatewayClient) error {
	questions, err := client.Feed(ctx, cfg.Session.ID)
	if err != nil {
		return err
	}
	printQuestions(questions)
	return nil
}

func runMy(ctx context.Context, cfg *Config, client *GatewayClient) error {
	questions, err := client.My(ctx, cfg.Author.Token)
	if err != nil {
		return err
	}
	printQuestions(questions)
	return nil
}

func runHide(ctx context.Context, cfg *Config, client *GatewayClient, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: askai hide <id>")
	}
	if cfg.Moderator.Key == "" {
		return fmt.Errorf("moderator.key is not configured")
	}

	if err := client.Hide(ctx, args[0], cfg.Moderator.Key); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("  ✓ ")
	fmt.Printf("Question hidden: %s\n", args[0])
	return nil
}

func printQuestions(questions []Question) {
	if len(questions) == 0 {
		fmt.Println("No questions.")
		return
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	for _, q := range questions {
		statusColor := statusColorFor(q.Status)

		statusColor.Printf("  [%s] ", q.Status)
		fmt.Println(q.Question)
		gray.Printf("        %s  %s\n", q.ID, formatCreatedAt(q.CreatedAt))
		if q.Answer != "" {
			cyan.Print("        → ")
			fmt.Println(strings.ReplaceAll(strings.TrimSpace(q.Answer), "\n", "\n          "))
		}
		fmt.Println()
	}
}

func statusColorFor(status string) *color.Color {
	switch status {
	case "answered":
		return color.New(color.FgGreen)
	case "answering":
		return color.New(color.FgYellow)
	case "blocked":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgWhite)
	}
}

func formatCreatedAt(raw string) string {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw
	}
	return t.Local().Format("Jan 02 15:04")
}
