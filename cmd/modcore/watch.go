package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nutsandbolts/modcore/platform/discord"

	"github.com/bwmarrin/discordgo"
	cli "github.com/urfave/cli/v2"
)

var watchCmd = &cli.Command{
	Name:  "watch",
	Usage: "connect to the discord gateway and run every new message through the engine",
	Flags: engineFlags,
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context
		logger := slog.Default().With("component", "watch")

		token := cctx.String("discord-token")
		if token == "" {
			return fmt.Errorf("watch needs a discord token (--discord-token)")
		}

		shutdown, err := configOTEL("modcore")
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		defer shutdown()

		session, err := newDiscordSession(token)
		if err != nil {
			return err
		}
		session.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentDirectMessages | discordgo.IntentMessageContent

		eng, err := configEngine(cctx, logger, session)
		if err != nil {
			return err
		}
		session.AddHandler(discord.MessageHandler(eng))

		if err := session.Open(); err != nil {
			return fmt.Errorf("opening discord gateway: %w", err)
		}
		defer func() {
			if err := session.Close(); err != nil {
				logger.Error("failed to close discord session", "err", err)
			}
		}()
		logger.Info("watching discord messages")

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ctx.Done():
		case sig := <-signals:
			logger.Info("received shutdown signal", "signal", sig)
		}
		return nil
	},
}
