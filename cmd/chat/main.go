package main

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-chat/internal/config"
	"github.com/zhouzirui/z-chat/internal/logging"
	"github.com/zhouzirui/z-chat/internal/model/chat"
	"github.com/zhouzirui/z-chat/internal/render"
	"github.com/zhouzirui/z-chat/internal/service/chatclient"
	"github.com/zhouzirui/z-chat/internal/service/session"
)

type chatFlags struct {
	baseURL    string
	userID     string
	timeout    time.Duration
	serialize  bool
	transcript string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &chatFlags{}

	cmd := &cobra.Command{
		Use:           "z-chat",
		Short:         "Chat with the z-chat reply server from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Setup(cmd.ErrOrStderr(), flags.logLevel, false)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := godotenv.Load(); err != nil {
				log.Debug().Err(err).Msg("no .env file loaded, using system environment only")
			}

			cfg, err := config.Load()
			if err != nil {
				return errors.Wrap(err, "failed to load configuration")
			}
			applyFlags(cmd, flags, &cfg.Client)

			if err := run(ctx, cfg.Client, flags.transcript, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("chat session failed")
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.baseURL, "base-url", "", "reply server base URL, overrides CHAT_API_BASE_URL")
	cmd.Flags().StringVar(&flags.userID, "user-id", "", "session identity, a random UUID when empty")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "HTTP timeout per exchange, 0 means none")
	cmd.Flags().BoolVar(&flags.serialize, "serialize", false, "send one message at a time in submission order")
	cmd.Flags().StringVar(&flags.transcript, "transcript", "", "write the final transcript to this YAML file on exit")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	return cmd
}

func applyFlags(cmd *cobra.Command, flags *chatFlags, cfg *config.ClientConfig) {
	f := cmd.Flags()
	if f.Changed("base-url") {
		cfg.BaseURL = flags.baseURL
	}
	if f.Changed("user-id") {
		cfg.UserID = strings.TrimSpace(flags.userID)
	}
	if f.Changed("timeout") {
		cfg.Timeout = flags.timeout
	}
	if f.Changed("serialize") {
		cfg.Serialize = flags.serialize
	}
}

func run(ctx context.Context, cfg config.ClientConfig, transcriptPath string, in io.Reader, out io.Writer) error {
	client, err := chatclient.New(cfg.BaseURL, chatclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	if err != nil {
		return err
	}

	identity := chat.SessionIdentity(cfg.UserID)
	if identity == "" {
		identity = chat.SessionIdentity(uuid.NewString())
	}

	printer := render.NewPrinter(out, nil)
	opts := []session.Option{
		session.WithLogger(log.Logger),
		session.WithAppendHook(printer.Notify),
	}
	if cfg.Serialize {
		opts = append(opts, session.WithSerializedExchanges())
	}

	ctrl := session.New(ctx, identity, client, opts...)
	printer.Bind(ctrl.Log())
	printer.Status("session %s → %s (type /quit to leave)", identity, client.Endpoint())

	interrupted := readLoop(ctx, in, ctrl, printer)
	if !interrupted {
		ctrl.Wait()
	}
	_ = ctrl.Close()
	printer.Flush()

	stats := ctrl.Stats()
	log.Debug().
		Uint64("submitted", stats.Submitted).
		Uint64("resolved", stats.Resolved).
		Uint64("failed", stats.Failed).
		Uint64("discarded", stats.Discarded).
		Msg("session finished")

	if transcriptPath == "" {
		return nil
	}
	err = render.WriteYAMLFile(transcriptPath, render.Transcript{
		Session:    identity.String(),
		Endpoint:   client.Endpoint(),
		ExportedAt: time.Now().UTC(),
		Turns:      ctrl.Snapshot(),
	})
	if err != nil {
		return err
	}
	printer.Status("transcript written to %s", transcriptPath)
	return nil
}

// readLoop submits every input line until EOF or /quit. It reports true when
// ctx ended the loop instead.
func readLoop(ctx context.Context, in io.Reader, ctrl *session.Controller, printer *render.Printer) bool {
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Warn().Err(err).Msg("failed to read input")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return true
		case line, ok := <-lines:
			if !ok {
				return false
			}
			switch strings.TrimSpace(line) {
			case "/quit", "/exit":
				return false
			case "/stats":
				s := ctrl.Stats()
				printer.Status("submitted=%d resolved=%d failed=%d in_flight=%d",
					s.Submitted, s.Resolved, s.Failed, s.InFlight)
			default:
				ctrl.Submit(line)
			}
		}
	}
}
