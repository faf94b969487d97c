package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/eduadmin/apiserver/internal/logger"
	"github.com/eduadmin/apiserver/internal/mq"
	"github.com/eduadmin/apiserver/types"
	"github.com/spf13/cobra"
)

// eventsCmd tails student lifecycle events from the configured broker.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print student lifecycle events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := mq.NewBackend(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if backend == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer backend.Close()

		events := mq.NewStudentEvents(backend, cfg.Students.EventsChannel)
		logger.Info().Str("channel", cfg.Students.EventsChannel).Msg("waiting for student events")
		err = events.Subscribe(ctx, func(_ context.Context, event types.StudentEvent) error {
			entry := logger.Info().
				Str("type", event.Type).
				Int("student_id", event.StudentID).
				Time("occurred_at", event.OccurredAt)
			if event.ActorID != nil {
				entry = entry.Int("actor_id", *event.ActorID)
			}
			if event.Status != nil {
				entry = entry.Bool("status", *event.Status)
			}
			entry.Msg("student event")
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
