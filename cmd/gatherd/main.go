package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edugather/gatherd/internal/chat"
	"github.com/edugather/gatherd/internal/config"
	"github.com/edugather/gatherd/internal/diag"
	"github.com/edugather/gatherd/internal/meeting"
	"github.com/edugather/gatherd/internal/realtime"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "gatherd",
	Short:   "EduGather realtime client: channel sync bridge and meeting watchdog",
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().
		Timestamp().
		Str("session_id", uuid.NewString()).
		Logger()

	userID := cfg.UserID
	if userID == "" && cfg.Token != "" {
		userID, err = realtime.UserIDFromToken(cfg.Token)
		if err != nil {
			return fmt.Errorf("resolving user id: %w", err)
		}
	}
	if userID == "" {
		return errors.New("GATHER_USER_ID or GATHER_TOKEN is required")
	}
	if cfg.ChannelID == "" {
		return errors.New("GATHER_CHANNEL_ID is required")
	}

	conn, err := realtime.Dial(ctx, cfg.ServerURL, realtime.HelloPayload{
		Type:      realtime.ScopeChannel,
		ChannelID: cfg.ChannelID,
		UserID:    userID,
	}, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info().Str("server", cfg.ServerURL).Str("channel_id", cfg.ChannelID).Msg("connected")

	store := chat.NewStore()
	view := chat.NewView()

	bridge := realtime.NewBridge(conn, cfg.ChannelID, store, view, logger)
	bridge.Attach()
	defer bridge.Detach()

	tracker := meeting.NewTracker(logger)
	bindMeetingEvents(conn, tracker, cfg.MaxMeetingDuration, logger)

	diagSrv := &http.Server{Addr: cfg.DiagAddr, Handler: diag.NewRouter(tracker)}
	go func() {
		logger.Info().Str("addr", cfg.DiagAddr).Msg("diagnostics listening")
		if err := diagSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("diagnostics server failed")
		}
	}()
	defer diagSrv.Close()

	if err := conn.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("shutting down")
	return nil
}

// bindMeetingEvents arms the watchdog when a meeting's setup completes and
// disarms it when the meeting ends early. The deadline is start time plus
// the configured maximum duration.
func bindMeetingEvents(conn *realtime.Conn, tracker *meeting.Tracker, maxDuration time.Duration, logger zerolog.Logger) {
	conn.On(realtime.EventMeetingStarted, func(payload json.RawMessage) {
		var p realtime.MeetingStartedPayload
		if err := json.Unmarshal(payload, &p); err != nil || p.MeetingID == "" {
			logger.Warn().Msg("malformed meetingStarted payload, dropping")
			return
		}
		start := p.StartTime
		if start.IsZero() {
			start = time.Now()
		}
		tracker.Track(p.MeetingID, start, maxDuration, conn, nil)
	})

	conn.On(realtime.EventMeetingEnded, func(payload json.RawMessage) {
		var p realtime.MeetingEndedPayload
		if err := json.Unmarshal(payload, &p); err != nil || p.MeetingID == "" {
			return
		}
		tracker.Release(p.MeetingID)
	})
}
