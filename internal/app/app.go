// Package app assembles the filesystem, haunting engine, rewriter, ghost
// agent and the stores built on top of them.
package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hpungsan/shadowscript/internal/config"
	"github.com/hpungsan/shadowscript/internal/deadmail"
	"github.com/hpungsan/shadowscript/internal/ghost"
	"github.com/hpungsan/shadowscript/internal/ghostpaint"
	"github.com/hpungsan/shadowscript/internal/haunt"
	"github.com/hpungsan/shadowscript/internal/logging"
	"github.com/hpungsan/shadowscript/internal/rewriter"
	"github.com/hpungsan/shadowscript/internal/storage"
	"github.com/hpungsan/shadowscript/internal/vfs"
)

// App holds every long-lived component.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	FS       *vfs.FS
	Haunt    *haunt.Engine
	Rewriter *rewriter.Rewriter
	Ghost    *ghost.Agent
	Mail     *deadmail.Store
	Paint    *ghostpaint.Store

	kv     storage.KV
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Open wires the components against the configured storage backend under
// baseDir. The filesystem is seeded on first boot.
func Open(ctx context.Context, cfg *config.Config, baseDir string, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger = logging.OrNop(logger)

	kv, err := storage.Open(cfg, baseDir)
	if err != nil {
		return nil, err
	}

	fs, err := vfs.New(ctx, kv, append(vfs.OptionsFromConfig(cfg), vfs.WithLogger(logger))...)
	if err != nil {
		kv.Close()
		return nil, err
	}

	first, err := vfs.IsFirstBoot(ctx, fs)
	if err == nil && first {
		err = vfs.Seed(ctx, fs)
		if err == nil {
			logger.Info("seeded filesystem on first boot")
		}
	}
	if err != nil {
		fs.Close(ctx)
		kv.Close()
		return nil, err
	}

	engine := haunt.New(fs, haunt.WithLogger(logger))
	if err := engine.AutoRegister(cfg.HauntPatterns); err != nil {
		fs.Close(ctx)
		kv.Close()
		return nil, err
	}
	if n, err := engine.RegisterMatching(ctx, fs, cfg.HauntPatterns); err != nil {
		logger.Warn("haunt registration incomplete", zap.Error(err))
	} else {
		logger.Debug("haunted existing files", zap.Int("count", n))
	}

	rw := rewriter.New(append(rewriter.OptionsFromConfig(cfg), rewriter.WithLogger(logger))...)

	personality := ghost.Playful
	if cfg.GhostPersonality != "" {
		if personality, err = ghost.ParsePersonality(cfg.GhostPersonality); err != nil {
			personality = ghost.Playful
		}
	}
	agent := ghost.NewAgent(rw, engine, ghost.WithPersonality(personality), ghost.WithLogger(logger))

	return &App{
		Config:   cfg,
		Logger:   logger,
		FS:       fs,
		Haunt:    engine,
		Rewriter: rw,
		Ghost:    agent,
		Mail:     deadmail.NewStore(fs, logger),
		Paint:    ghostpaint.NewStore(fs, ghostpaint.WithLogger(logger)),
		kv:       kv,
	}, nil
}

// StartBackground starts random haunting, ghost chatter and artwork
// corruption. The ghost greets first. Ghost messages are sent to out when it
// is non-nil and logged otherwise. Everything stops on Close or when ctx is
// done.
func (a *App) StartBackground(ctx context.Context, out chan<- ghost.Message) error {
	ctx, cancel := context.WithCancel(ctx)
	minHaunt, maxHaunt := a.Config.MutationInterval()
	if err := a.Haunt.StartRandomMutations(ctx, minHaunt, maxHaunt); err != nil {
		cancel()
		return err
	}
	a.cancel = cancel

	msgs := make(chan ghost.Message)
	minGhost, maxGhost := a.Config.GhostInterval()
	minPaint, maxPaint := a.Config.PaintInterval()
	a.wg.Add(3)
	go func() {
		defer a.wg.Done()
		select {
		case msgs <- a.Ghost.Speak(ctx, ghost.Greeting):
		case <-ctx.Done():
			return
		}
		_ = a.Ghost.Run(ctx, minGhost, maxGhost, msgs)
	}()
	go func() {
		defer a.wg.Done()
		_ = a.Paint.RunCorruption(ctx, minPaint, maxPaint)
	}()
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-msgs:
				if out == nil {
					a.Logger.Info("ghost", zap.String("personality", string(m.Personality)), zap.String("message", m.Content))
					continue
				}
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return nil
}

// Close stops background work, flushes pending filesystem writes and closes
// storage. The flush error, if any, is returned.
func (a *App) Close(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	a.Haunt.Close()
	err := a.FS.Close(ctx)
	if cerr := a.kv.Close(); err == nil {
		err = cerr
	}
	return err
}
