package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Seednode/pong/client"
	"github.com/gdamore/tcell"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Play connects to the relay and runs a terminal client until the player
// quits or the connection drops.
func Play(ctx context.Context, cfg *Config) error {
	level := zerolog.InfoLevel
	if cfg.verbose {
		level = zerolog.DebugLevel
	}

	out := &lumberjack.Logger{
		Filename:   cfg.logFile,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	}
	defer out.Close()

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()

	c, err := client.Dial(ctx, client.Options{
		URL:    cfg.server,
		FPS:    cfg.fps,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		_ = c.Close()
		return fmt.Errorf("open terminal: %w", err)
	}

	term, err := client.NewTerminal(screen)
	if err != nil {
		_ = c.Close()
		return err
	}
	defer term.Close()

	logger.Info().Str("server", cfg.server).Str("version", releaseVersion).Msg("playing")

	err = c.Run(ctx, term)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, client.ErrClosed):
		return errors.New("relay closed the connection")
	}
	return err
}
