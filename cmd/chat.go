package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/controller"
	"github.com/iksnae/repo-pilot/internal/conversation"
	"github.com/iksnae/repo-pilot/internal/export"
	"github.com/iksnae/repo-pilot/internal/ingest"
	"github.com/spf13/cobra"
)

var chatAsk string

var starterQuestions = []string{
	"What does this repository do?",
	"How is the code organized?",
	"Where is the entry point and what happens on startup?",
}

const chatHelp = `Commands:
  /history          show the conversation so far
  /delete <n>       delete entry n of the history
  /clear            delete the whole conversation
  /export [file]    export the conversation as Markdown
  /import <file>    load a conversation exported as Markdown
  /quit             leave (Ctrl-D works too)
Ctrl-C stops the answer being streamed.`

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat <github-url>",
	Short: "Start a conversation about a repository",
	Long: `Ingest a repository (or reuse its cached corpus) and chat about it.

Every question is sent together with the full source corpus and the most
recent part of the conversation. Messages typed while an answer is still
streaming are queued and sent in order. The conversation is saved per
repository and restored the next time you chat about it.

Use --ask for a single question without the interactive prompt.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateChat(); err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		cache, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer closeCache(cache)

		orchestrator, err := newOrchestrator(cache)
		if err != nil {
			return err
		}
		engine, err := newEngine(cache)
		if err != nil {
			return err
		}
		ctrl := controller.New(orchestrator, engine, controller.Options{MaxCorpusTokens: cfg.CorpusTokenBudget()})
		defer ctrl.Close()

		corpus, err := selectRepository(ctx, ctrl, args[0])
		if err != nil {
			return err
		}
		status := ctrl.Status()
		printCorpusSummary(*status.Repo, status.Info, corpus)
		fmt.Println()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt)
		defer signal.Stop(sigs)
		go func() {
			for range sigs {
				if engine.Snapshot().PendingForReply {
					engine.Stop()
					continue
				}
				cancel()
				return
			}
		}()

		out := cmd.OutOrStdout()
		if chatAsk != "" {
			return askOnce(ctx, ctrl, chatAsk, out)
		}
		return runChat(ctx, ctrl, cmd.InOrStdin(), out)
	},
}

// selectRepository starts ingesting rawURL and waits for a usable corpus
func selectRepository(ctx context.Context, ctrl *controller.Controller, rawURL string) (*internal.SourceCorpus, error) {
	progress := newIngestProgress(ctx)
	ctrl.OnStatus(func(s controller.Status) {
		if s.State == ingest.Idle {
			return
		}
		if s.State == ingest.DownloadingArchive && s.Received > 0 {
			progress.line.Update(internal.FetchingMessage(s.Received))
		} else if msg := stateMessage(s.State); msg != "" {
			progress.line.Update(msg)
		}
	})
	defer ctrl.OnStatus(nil)

	if err := ctrl.SetURL(ctx, rawURL); err != nil {
		progress.stop(err)
		return nil, err
	}
	corpus, err := ctrl.Wait(ctx)
	if err != nil {
		progress.stop(err)
		return nil, err
	}
	if corpus.Failed() {
		progress.stop(errors.New(corpus.Error))
		return nil, fmt.Errorf("cannot chat about %s: %s", corpus.ID, corpus.Error)
	}
	progress.stop(nil)
	return corpus, nil
}

// askOnce sends a single question and fails if the exchange failed
func askOnce(ctx context.Context, ctrl *controller.Controller, question string, out io.Writer) error {
	printer := newReplyPrinter(out)
	ctrl.Engine().OnChange(printer.onChange)
	defer ctrl.Engine().OnChange(nil)

	if _, err := ctrl.Send(ctx, question); err != nil {
		return err
	}
	entries := ctrl.Engine().Snapshot().Entries
	if n := len(entries); n > 0 && entries[n-1].IsNote() {
		return errors.New(entries[n-1].Note)
	}
	return nil
}

// runChat reads questions and commands from in until EOF, /quit or ctx is done
func runChat(ctx context.Context, ctrl *controller.Controller, in io.Reader, out io.Writer) error {
	engine := ctrl.Engine()
	printer := newReplyPrinter(out)
	engine.OnChange(printer.onChange)
	defer engine.OnChange(nil)

	snap := engine.Snapshot()
	if len(snap.Entries) > 0 {
		for i, entry := range snap.Entries {
			displayEntryTo(out, i+1, entry, len(snap.Entries))
		}
	} else {
		fmt.Fprintln(out, sessionMetaStyle.Render("Try asking:"))
		for _, q := range starterQuestions {
			fmt.Fprintf(out, "  • %s\n", q)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, timestampStyle.Render("Type /help for commands."))

	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
	}()

	var sends sync.WaitGroup
	defer sends.Wait()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := runChatCommand(ctx, ctrl, line, out)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("✗ "+err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		sends.Add(1)
		go func(text string) {
			defer sends.Done()
			if _, err := ctrl.Send(ctx, text); err != nil {
				fmt.Fprintln(out, errorStyle.Render("✗ "+err.Error()))
			}
		}(line)
	}
}

// runChatCommand executes a slash command and reports whether to quit
func runChatCommand(ctx context.Context, ctrl *controller.Controller, line string, out io.Writer) (bool, error) {
	engine := ctrl.Engine()
	fields := strings.Fields(line)
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Fprintln(out, chatHelp)

	case "/history":
		entries := engine.Snapshot().Entries
		if len(entries) == 0 {
			fmt.Fprintln(out, sessionMetaStyle.Render("No conversation yet"))
		}
		for i, entry := range entries {
			displayEntryTo(out, i+1, entry, len(entries))
		}

	case "/delete":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return false, fmt.Errorf("usage: /delete <n>")
		}
		if err := engine.DeletePair(ctx, n-1); err != nil {
			return false, err
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Deleted entry %d", n)))

	case "/clear":
		if err := engine.Clear(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(out, successStyle.Render("✓ Conversation cleared"))

	case "/export":
		doc, err := ctrl.Document()
		if err != nil {
			return false, err
		}
		path := arg
		if path == "" {
			path = defaultExportName(*ctrl.Status().Repo, (&export.MarkdownExporter{}).Extension())
		}
		if err := os.WriteFile(path, []byte(export.RenderMarkdown(doc).Content), 0644); err != nil {
			return false, &internal.ExportError{Format: "md", Path: path, Err: err}
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Exported %d pair(s) to %s", len(doc.Entries), path)))

	case "/import":
		if arg == "" {
			return false, fmt.Errorf("usage: /import <file>")
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return false, err
		}
		imported, err := ctrl.ImportMarkdown(ctx, string(data))
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Imported %d pair(s) from %s", len(imported.Entries), arg)))

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
	return false, nil
}

// replyPrinter writes the streamed answer of the in-flight pair as it grows
type replyPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	active  bool
	printed int
}

func newReplyPrinter(w io.Writer) *replyPrinter {
	return &replyPrinter{w: w}
}

func (p *replyPrinter) onChange(s conversation.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.PendingForReply {
		if !p.active {
			p.active = true
			p.printed = 0
			fmt.Fprintln(p.w, assistantMessageStyle.Render("🤖 Repo Pilot"))
		}
		if n := len(s.Entries); n > 0 {
			if model := s.Entries[n-1].Model; model != nil && len(model.Content) > p.printed {
				fmt.Fprint(p.w, model.Content[p.printed:])
				p.printed = len(model.Content)
			}
		}
		return
	}

	if !p.active {
		return
	}
	p.active = false
	fmt.Fprint(p.w, "\n\n")
	if n := len(s.Entries); n > 0 && s.Entries[n-1].IsNote() {
		fmt.Fprintln(p.w, warningStyle.Render("⚠ "+s.Entries[n-1].Note))
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatAsk, "ask", "", "Ask a single question and exit")
}
