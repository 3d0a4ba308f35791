package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"notebook-client/internal/backend"
	"notebook-client/internal/config"
	"notebook-client/internal/notebook"
	"notebook-client/internal/service"
	"notebook-client/internal/storage"
	"notebook-client/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/muesli/reflow/wordwrap"
)

const help = `Commands:
  /open <notebook id>   switch notebook and load its history
  /clear                drop every saved conversation
  exit, quit            leave`

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to the config file")
	notebookID := flag.String("notebook", "", "notebook to open on start")
	width := flag.Int("wrap", 0, "wrap answers at this width instead of streaming them")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init("warn", cfg.Log.Format); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetOutput(os.Stderr)

	store, _, err := storage.New(cfg.Storage.Type, cfg.Storage.DataDir, cfg.Storage.CacheSize)
	if err == nil {
		err = store.Init()
	}
	if err != nil {
		fmt.Printf("Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	nb := notebook.NewContext()
	chat := service.NewChatService(
		backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, cfg.Backend.StreamTimeout),
		store, nb,
		service.ChatOptions{
			HandshakeTimeout: cfg.Chat.HandshakeTimeout,
			Language:         cfg.Chat.Language,
			TitleLength:      cfg.Chat.TitleLength,
		},
	)
	defer chat.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *notebookID != "" {
		openNotebook(ctx, chat, nb, *notebookID)
	}
	fmt.Println(help)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input = strings.TrimSpace(input)
		switch {
		case input == "":
			continue
		case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
			fmt.Println("Goodbye!")
			return
		case input == "/clear":
			if err := chat.ClearAll(); err != nil {
				fmt.Printf("Clear failed: %v\n", err)
			}
			continue
		case strings.HasPrefix(input, "/open "):
			openNotebook(ctx, chat, nb, strings.TrimSpace(strings.TrimPrefix(input, "/open ")))
			continue
		}

		if err := ask(ctx, chat, input, *width); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func openNotebook(ctx context.Context, chat *service.ChatService, nb *notebook.Context, id string) {
	nb.Open(id)
	conv, err := chat.OpenNotebook(ctx, id, "")
	if err != nil {
		fmt.Printf("Could not open notebook %s: %v\n", id, err)
		return
	}
	fmt.Printf("Notebook %s: %q, %d messages\n", id, conv.Title, len(conv.Messages))
}

// ask prints the answer as it streams in, or in one wrapped block once it
// is complete when width is set.
func ask(ctx context.Context, chat *service.ChatService, input string, width int) error {
	chunks, err := chat.Send(ctx, input)
	if err != nil {
		return err
	}

	fmt.Print("Assistant: ")
	var printed, final string
	for chunk := range chunks {
		final = chunk.Content
		if width > 0 {
			continue
		}
		fmt.Print(streamDelta(printed, chunk.Content))
		printed = chunk.Content
	}
	if width > 0 {
		fmt.Print("\n" + wordwrap.String(final, width))
	}
	fmt.Println()
	return nil
}

// streamDelta returns what to print to move the terminal from printed to
// content. A reply that was replaced, e.g. by a transport error, is printed
// again in full on a new line.
func streamDelta(printed, content string) string {
	if strings.HasPrefix(content, printed) {
		return content[len(printed):]
	}
	return "\n" + content
}
