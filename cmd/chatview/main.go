package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/comigor/chatview/internal/backend"
	"github.com/comigor/chatview/internal/cache"
	"github.com/comigor/chatview/internal/chat"
	"github.com/comigor/chatview/internal/config"
	"github.com/comigor/chatview/internal/conversation"
	"github.com/comigor/chatview/internal/logger"
	"github.com/comigor/chatview/pkg/tools"
)

var version = "dev"

const usage = `usage: chatview <command> [flags]

commands:
  open   <thread_id>                 load a thread (cache first)
  more   <thread_id>                 load the page before the oldest loaded message
  send   <thread_id> <message>       send a follow-up and stream the reply
  start  [-parent id] <thread_id>    start the assistant on a freshly created thread
  forget <thread_id>                 purge a deleted thread from the cache
  user                               show the signed-in account
  mcp                                serve the thread tools over MCP stdio
`

func main() {
	// stdout carries command output and MCP frames
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		logger.L.Error("command failed", "error", err)
		if code := conversation.ErrorCode(err); code != "" {
			fmt.Fprintf(os.Stderr, "error: %s\n", code)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger.SetLevel(cfg.Log.Level)

	store, err := cache.Open(cfg.Cache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer store.Close()

	api := backend.NewClient(cfg.Backend)
	client := chat.NewClient(api, store, chat.Options{
		Marker:         conversation.Marker{Tool: cfg.Chat.ToolMarker, ImageHost: cfg.Chat.ImageHost},
		MaxInputLength: cfg.Chat.MaxInputLength,
		Redirector: chat.RedirectFunc(func(code string) {
			fmt.Fprintf(os.Stderr, "redirect: /chat?error=%s\n", code)
		}),
	})

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "open", "more", "send", "forget", "start":
		return runThread(ctx, client, cmd, rest, stdout)
	case "user":
		u, err := api.User(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, u)
	case "mcp":
		threads := tools.NewThreads(client)
		defer threads.Close()
		m := tools.NewToolManager()
		tools.RegisterChatTools(m, threads)
		logger.L.Info("serving MCP over stdio", "tools", len(m.List()))
		return server.ServeStdio(tools.NewServer(m, version))
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runThread(ctx context.Context, client *chat.Client, cmd string, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	parent := fs.Int64("parent", 0, "id of the thread's first message (start only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%s: missing thread id", cmd)
	}
	threadID := fs.Arg(0)

	if cmd == "forget" {
		client.Forget(threadID)
		return nil
	}

	opts := chat.SessionOptions{}
	if cmd == "start" {
		opts.NewThread = true
		if *parent > 0 {
			opts.ParentID = conversation.Int64(*parent)
		}
	}
	s := client.Session(threadID, opts)
	defer s.Close()

	view, err := s.Open(ctx)
	if err != nil {
		return err
	}

	switch cmd {
	case "more":
		if view, err = s.LoadMore(ctx); err != nil {
			return err
		}
	case "send":
		if fs.NArg() < 2 {
			return errors.New("send: missing message")
		}
		s.SetDraft(fs.Arg(1))
		if err := s.SendDraft(ctx); err != nil {
			return err
		}
		view = s.View()
	case "start":
		s.Wait()
		view = s.View()
	}
	return printJSON(stdout, view)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
