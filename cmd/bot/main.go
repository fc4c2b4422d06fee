package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/toddbirchard/chatango-async/chatango"
	"github.com/toddbirchard/chatango-async/shared/config"
	"github.com/toddbirchard/chatango-async/shared/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Errorf("Failed to load config: %v", err)
		return
	}

	log := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.Log.Environment,
	})
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []chatango.ClientOption{
		chatango.WithClientLogger(log.Entry("client")),
	}
	if cfg.Chatango.UsePM {
		opts = append(opts, chatango.WithPM())
	}
	client := chatango.NewClient(cfg.Chatango.Username, cfg.Chatango.Password, opts...)

	client.On(chatango.EventConnect, func(args ...interface{}) {
		if room, ok := args[0].(*chatango.Room); ok {
			log.Infof("Connected to %s", room.Name())
		}
	})
	client.On(chatango.EventMessage, func(args ...interface{}) {
		switch msg := args[0].(type) {
		case *chatango.Message:
			log.WithFields(map[string]interface{}{
				"room": msg.Room.Name(),
				"user": msg.User.ShowName(),
			}).Info(msg.Body)
		case *chatango.PMMessage:
			log.WithFields(map[string]interface{}{
				"room": "<PM>",
				"user": msg.User.ShowName(),
			}).Info(msg.Body)
		}
	})
	client.On(chatango.EventRoomDenied, func(args ...interface{}) {
		if room, ok := args[0].(*chatango.Room); ok {
			log.Errorf("Access denied to %s", room.Name())
		}
	})

	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		client.Stop()
	}()

	if err := client.Run(ctx, cfg.Chatango.Rooms...); err != nil {
		log.Errorf("Client exited: %v", err)
	}
}
