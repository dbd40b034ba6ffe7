package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/atlas/backend/internal/config"
	"github.com/OFFIS-RIT/atlas/backend/internal/metrics"
	"github.com/OFFIS-RIT/atlas/backend/internal/queue"
	"github.com/OFFIS-RIT/atlas/backend/internal/storage"
	"github.com/OFFIS-RIT/atlas/backend/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"
	oai "github.com/OFFIS-RIT/atlas/backend/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/atlas/backend/pkg/ai/openai"
	"github.com/OFFIS-RIT/atlas/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger/console"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store/factory"
	pgstore "github.com/OFFIS-RIT/atlas/backend/pkg/store/pgx"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	cfg := config.Load()
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: cfg.Debug,
	})
	logger.Init(consoleLogger)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	// Init s3 document source
	s3Client := storage.NewS3Client(ctx)
	source := storage.NewDocumentSource(s3Client, cfg.S3DocPrefix, cfg.S3ClaimsPrefix)

	// AI client
	var aiClient ai.CorpusAIClient
	switch cfg.AIAdapter {
	case "ollama":
		client, err := oai.NewCorpusOllamaClient(oai.NewCorpusOllamaClientParams{
			EmbeddingModel: cfg.EmbedModel,
			LabelModel:     cfg.LabelModel,
			BaseURL:        util.GetEnv("AI_CHAT_URL"),
			ApiKey:         util.GetEnv("AI_CHAT_KEY"),
			TimeoutMin:     int64(cfg.AITimeoutMin),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		aiClient = client
	default:
		aiClient = gai.NewCorpusOpenAIClient(gai.NewCorpusOpenAIClientParams{
			EmbeddingModel: cfg.EmbedModel,
			LabelModel:     cfg.LabelModel,
			EmbeddingURL:   util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey:   util.GetEnv("AI_EMBED_KEY"),
			ChatURL:        util.GetEnv("AI_CHAT_URL"),
			ChatKey:        util.GetEnv("AI_CHAT_KEY"),
			TimeoutMin:     int64(cfg.AITimeoutMin),
		})
	}

	// Storage backend
	storageClient, err := factory.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Unable to open storage", "backend", cfg.Backend, "err", err)
	}
	defer storageClient.Close()

	// Job locks need shared state, which only the postgres backend has.
	// Single-replica sqlite deployments run without a locker.
	var locker *leaselock.Client
	if pgStorage, ok := storageClient.(*pgstore.CorpusDBStorage); ok {
		locker = leaselock.New(pgStorage.Pool())
	}

	processor, err := queue.NewProcessor(cfg, source, aiClient, storageClient, locker)
	if err != nil {
		logger.Fatal("Unable to build processor", "err", err)
	}

	if cfg.MetricsAddr != "" {
		go metrics.Serve(cfg.MetricsAddr)
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	logger.Info("Listening for messages")

	// Single consumer channel with prefetch=1 so only one job runs at a
	// time across all queues.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				processingErr := processor.Handle(ctx, qm.queueName, qm.msg.Body)

				// On error send to retry or dead-letter, otherwise ack
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					queue.HandleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				aiMetrics := aiClient.GetMetrics()
				aiDuration := time.Duration(aiMetrics.DurationMs) * time.Millisecond
				aiHours := int(aiDuration.Hours())
				aiMinutes := int(aiDuration.Minutes()) % 60
				aiSeconds := int(aiDuration.Seconds()) % 60
				logger.Info(
					"AI Metrics",
					"input_tokens", aiMetrics.InputTokens,
					"output_tokens", aiMetrics.OutputTokens,
					"total_tokens", aiMetrics.TotalTokens,
					"duration", fmt.Sprintf("%02d:%02d:%02d", aiHours, aiMinutes, aiSeconds),
				)

				processingDuration := time.Since(startTime)
				hours := int(processingDuration.Hours())
				minutes := int(processingDuration.Minutes()) % 60
				seconds := int(processingDuration.Seconds()) % 60
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
				)
				logger.Info("Waiting for next message")
				aiClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}
