// Command result-consumer follows the result topic and logs every recorded
// Kraepelin result, for downstream reporting that does not query the API.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/SAP-F-2025/psychotest-service/internal/config"
	"github.com/SAP-F-2025/psychotest-service/internal/events"
	"github.com/SAP-F-2025/psychotest-service/internal/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.NewDefaultLogger().Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLoggerForEnvironment(cfg.Environment)
	slogger := utils.ToSlogLogger(logger)

	subscriber, err := cfg.Events.CreateResultSubscriber(slogger)
	if err != nil {
		logger.LogError(err, "failed to create subscriber")
		os.Exit(1)
	}
	defer subscriber.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("consuming results", "topic", cfg.Events.ResultTopic)
	err = events.ConsumeResults(ctx, subscriber, cfg.Events.ResultTopic, slogger, func(ctx context.Context, event events.ResultRecordedEvent) error {
		logger.InfoContext(ctx, "Result recorded",
			"result_id", event.ResultID,
			"session_id", event.SessionID,
			"user_id", event.UserID,
			"correct", event.CorrectAnswers,
			"wrong", event.WrongAnswers,
			"unanswered", event.Unanswered,
			"overall", event.Metrics.Overall,
			"fatigue", event.Metrics.Fatigue)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.LogError(err, "consumer stopped")
		os.Exit(1)
	}
}
