// Command voxprep runs one timed mock interview session from the terminal:
// it drives the call over the gateway, prints the live transcript and
// countdown, and hands the finished transcript off for feedback.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/voxprep/voxprep/internal/config"
	"github.com/voxprep/voxprep/internal/telemetry"
	"github.com/voxprep/voxprep/pkg/feedback"
	"github.com/voxprep/voxprep/pkg/interview"
	"github.com/voxprep/voxprep/pkg/interview/store"
	"github.com/voxprep/voxprep/pkg/interview/transport"
	"github.com/voxprep/voxprep/pkg/recovery"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "voxprep:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := flag.String("config", "", "path to config file")
	sessionID := flag.String("session", "", "interview session id (default: new id)")
	userID := flag.String("user", "", "user id")
	userName := flag.String("name", "", "user display name")
	questions := flag.String("questions", "", "semicolon-separated question plan")
	transportKind := flag.String("transport", "ws", "transport: ws or script")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := telemetry.InitLogger(telemetry.LogOptions{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	meter, metricsCleanup, err := telemetry.InitMetrics(ctx, "voxprep", "logs/voxprep_metrics.log")
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer metricsCleanup()

	metrics, err := telemetry.NewSessionMetrics(meter)
	if err != nil {
		return fmt.Errorf("init session metrics: %w", err)
	}

	if *userID == "" {
		return errors.New("-user is required")
	}
	if *sessionID == "" {
		*sessionID = uuid.NewString()
	}

	params := interview.Params{
		SessionID: *sessionID,
		UserID:    *userID,
		UserName:  *userName,
		Questions: splitQuestions(*questions),
	}

	progressStore, storeCleanup, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer storeCleanup()

	feedbackSvc, err := buildFeedback(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var recoverer interview.Recoverer
	if cfg.Recovery.Endpoint != "" {
		recoverer = recovery.NewHTTPRecoverer(cfg.Recovery.Endpoint, nil)
	} else if feedbackSvc != nil {
		recoverer = recovery.DirectRecoverer{Feedback: feedbackSvc}
	}

	trans, err := buildTransport(cfg, *transportKind, logger)
	if err != nil {
		return err
	}

	session := interview.NewSession(cfg.SessionConfig(), params, interview.Deps{
		Transport: trans,
		Store:     progressStore,
		Feedback:  feedbackSvc,
		Recoverer: recoverer,
		Logger:    logger,
	})
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		return err
	}

	if handled, err := offerRecovery(ctx, session); err != nil {
		return err
	} else if handled {
		return nil
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nEnding interview...")
		session.EndSession()
	}()

	fmt.Printf("Starting interview %s (%d questions, %s budget)\n",
		params.SessionID, session.TotalQuestions(),
		interview.FormatClock(session.RemainingSeconds()))
	session.StartSession()

	return consumeEvents(ctx, session, metrics, feedbackSvc != nil)
}

// offerRecovery checks for a resumable snapshot and, when one exists, asks
// whether to generate feedback from it. Returns true when the run is done.
func offerRecovery(ctx context.Context, session *interview.Session) (bool, error) {
	snap, ok, err := session.CheckRecovery(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	fmt.Printf("Found an unfinished interview from %s (%d/%d questions answered).\n",
		snap.SavedAt.Format(time.Kitchen), snap.AnsweredCount, snap.TotalQuestions)
	fmt.Print("Generate feedback from it? [y/N] ")

	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(line)) == "y" {
		if err := session.AcceptRecovery(ctx); err != nil {
			return false, fmt.Errorf("recovery failed: %w", err)
		}
		fmt.Println("Feedback generated from the saved interview.")
		return true, nil
	}

	if err := session.DeclineRecovery(ctx); err != nil {
		return false, err
	}
	fmt.Println("Saved interview discarded.")
	return false, nil
}

// consumeEvents renders the event stream until the session resolves.
func consumeEvents(ctx context.Context, session *interview.Session, metrics *telemetry.SessionMetrics, wantFeedback bool) error {
	finished := false
	for ev := range session.Events() {
		metrics.Observe(ctx, ev)

		switch e := ev.(type) {
		case *interview.StatusChangedEvent:
			fmt.Printf("[%s]\n", e.To)
		case *interview.TimerTickEvent:
			if e.RemainingSeconds%30 == 0 && e.RemainingSeconds > 0 {
				fmt.Printf("  %s remaining\n", interview.FormatClock(e.RemainingSeconds))
			}
		case *interview.TimerWarningEvent:
			fmt.Printf("  ** %s remaining **\n", interview.FormatClock(e.RemainingSeconds))
		case *interview.TranscriptAppendedEvent:
			fmt.Printf("%s: %s\n", e.Entry.Role, e.Entry.Content)
		case *interview.HealthChangedEvent:
			fmt.Printf("  (connection: %s)\n", e.Health)
		case *interview.RetryScheduledEvent:
			fmt.Printf("  (retrying connection, attempt %d/%d)\n", e.Attempt, e.MaxRetries)
		case *interview.ConnectFailedEvent:
			fmt.Printf("Could not connect after %d attempts.\n", e.Attempts)
			return errors.New("connection failed")
		case *interview.NoticeEvent:
			fmt.Printf("  [%s] %s\n", e.Severity, e.Message)
		case *interview.SessionEndedEvent:
			fmt.Printf("Interview ended (%s), %d questions answered.\n", e.Reason, e.AnsweredCount)
			if !wantFeedback || len(session.Transcript()) == 0 {
				return nil
			}
			finished = true
		case *interview.FeedbackReadyEvent:
			fmt.Printf("Feedback ready: %s\n", e.FeedbackID)
			return nil
		case *interview.ErrorEvent:
			if finished && e.Kind == interview.ErrKindFeedback {
				fmt.Println("Feedback generation failed; your progress is saved for recovery.")
				return nil
			}
			fmt.Printf("  (error: %s)\n", e.Message)
		}
	}
	return nil
}

func splitQuestions(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func buildStore(cfg *config.Config) (interview.ProgressStore, func(), error) {
	switch cfg.Store.Kind {
	case "sqlite":
		s, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		ttl := time.Duration(cfg.Session.RecoveryWindowMinutes) * time.Minute
		return store.NewRedis(client, ttl), func() { client.Close() }, nil
	case "memory":
		return store.NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}
}

func buildFeedback(ctx context.Context, cfg *config.Config, logger *slog.Logger) (interview.FeedbackService, error) {
	if cfg.Feedback.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; feedback generation disabled")
		return nil, nil
	}
	assessments, err := feedback.OpenSQLite(cfg.Feedback.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open assessment store: %w", err)
	}
	opts := []feedback.GeminiOption{feedback.WithLogger(logger)}
	if cfg.Feedback.Model != "" {
		opts = append(opts, feedback.WithModel(cfg.Feedback.Model))
	}
	return feedback.NewGemini(ctx, cfg.Feedback.APIKey, assessments, opts...)
}

func buildTransport(cfg *config.Config, kind string, logger *slog.Logger) (interview.Transport, error) {
	switch kind {
	case "ws":
		opts := []transport.Option{transport.WithLogger(logger)}
		if cfg.Gateway.Token != "" {
			opts = append(opts, transport.WithToken(cfg.Gateway.Token))
		}
		return transport.NewWS(cfg.Gateway.Endpoint, opts...), nil
	case "script":
		return demoScript(), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}

// demoScript replays a short canned interview for offline runs.
func demoScript() *transport.ScriptTransport {
	t := transport.NewScript([]transport.ScriptStep{
		{Delay: 500 * time.Millisecond, Event: interview.SpeechStarted{}},
		{Delay: time.Second, Event: interview.TranscriptReceived{
			Role: interview.RoleAssistant, IsFinal: true,
			Text: "Welcome! Tell me about a project you are proud of.",
		}},
		{Event: interview.SpeechEnded{}},
		{Delay: 3 * time.Second, Event: interview.TranscriptReceived{
			Role: interview.RoleUser, IsFinal: true,
			Text: "I built a crash-recovery layer for our session service.",
		}},
		{Delay: 2 * time.Second, Event: interview.TranscriptReceived{
			Role: interview.RoleAssistant, IsFinal: true,
			Text: "What was the hardest tradeoff you made on it?",
		}},
		{Delay: 3 * time.Second, Event: interview.TranscriptReceived{
			Role: interview.RoleUser, IsFinal: true,
			Text: "Choosing last-write-wins over merge on restore.",
		}},
	})
	t.EndAfter = true
	return t
}
