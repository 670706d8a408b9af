package vfs

import (
	"context"

	"go.uber.org/zap"
)

const welcomeText = `╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   Welcome to SHADOWSCRIPT OS                              ║
║                                                           ║
║   A haunted retro computing experience where the dead     ║
║   code comes alive...                                     ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝

GETTING STARTED
===============

Available Commands:
  help       - Display this help message
  ls         - List files in current directory
  cd <path>  - Change directory
  cat <file> - Display file contents
  clear      - Clear the terminal screen

Applications:
  ghostpaint - Launch the GhostPaint pixel art editor
  deadmail   - Launch the DeadMail email client

Special Commands:
  haunt      - Summon the ghost agent
  mutate     - Trigger file mutations (use with caution!)

TIPS
====
- The ghost agent is always watching and may interact with you
- Files may mutate on their own... it's part of the experience
- Save your work frequently in GhostPaint and DeadMail
- Type 'help' anytime to see available commands

Enjoy your stay in the shadows...

👻 The Ghost Agent
`

const aboutText = "SHADOWSCRIPT OS v1.0.0\n\nA haunted operating system built for Kiroween.\n\nBeware: Files may change on their own...\n"

// Well-known directories created on first boot.
const (
	HomeDir       = "/home"
	DeadMailDir   = "/deadmail"
	GhostPaintDir = "/ghostpaint"
)

// IsFirstBoot reports whether the filesystem has not been seeded yet.
func IsFirstBoot(ctx context.Context, fs *FS) (bool, error) {
	ok, err := fs.Exists(ctx, HomeDir)
	if err != nil {
		return true, err
	}
	return !ok, nil
}

// Seed creates the default layout unless /home already exists.
func Seed(ctx context.Context, fs *FS) error {
	first, err := IsFirstBoot(ctx, fs)
	if err != nil || !first {
		return err
	}

	for _, dir := range []string{HomeDir, DeadMailDir, GhostPaintDir} {
		if err := fs.CreateDirectory(ctx, dir); err != nil {
			return err
		}
	}
	files := []struct{ path, content string }{
		{HomeDir + "/welcome.txt", welcomeText},
		{HomeDir + "/about.txt", aboutText},
		{DeadMailDir + "/.inbox", "[]"},
		{GhostPaintDir + "/.artworks", "[]"},
	}
	for _, file := range files {
		if err := fs.CreateFile(ctx, file.path, file.content); err != nil {
			return err
		}
	}

	fs.logger.Info("filesystem seeded", zap.Int("files", len(files)))
	return nil
}
