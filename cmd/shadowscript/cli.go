package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/shadowscript/internal/app"
	"github.com/hpungsan/shadowscript/internal/deadmail"
	"github.com/hpungsan/shadowscript/internal/errors"
	"github.com/hpungsan/shadowscript/internal/ghost"
	"github.com/hpungsan/shadowscript/internal/ghostpaint"
	"github.com/hpungsan/shadowscript/internal/snapshot"
	"github.com/hpungsan/shadowscript/internal/vfs"
	"github.com/hpungsan/shadowscript/internal/web"
)

// newCLIApp creates the CLI application with all commands. a may be nil when
// only help or version output is needed.
func newCLIApp(a *app.App) *cli.App {
	cliApp := &cli.App{
		Name:    "shadowscript",
		Usage:   "Haunted virtual filesystem",
		Version: Version,
		Commands: []*cli.Command{
			lsCmd(a),
			catCmd(a),
			writeCmd(a),
			mkdirCmd(a),
			rmCmd(a),
			statCmd(a),
			treeCmd(a),
			globCmd(a),
			hauntCmd(a),
			rewriteCmd(a),
			ghostCmd(a),
			mailCmd(a),
			paintCmd(a),
			exportCmd(a),
			importCmd(a),
			serveCmd(a),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	cliApp.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return cliApp
}

// Filesystem

func lsCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List a directory",
		ArgsUsage: "[path]",
		Action: func(c *cli.Context) error {
			path := argOr(c, "/")
			entries, err := a.FS.ListDirectory(c.Context, path)
			if err != nil {
				return outputError(err)
			}
			if entries == nil {
				entries = []vfs.Entry{}
			}
			return outputJSON(c, map[string]any{"path": vfs.Clean(path), "entries": entries})
		},
	}
}

func catCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "Print a file",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("path is required"))
			}
			content, err := a.FS.ReadFile(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			_, err = io.WriteString(c.App.Writer, content)
			return err
		},
	}
}

func writeCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "write",
		Usage:     "Create or replace a file (reads content from stdin unless --content is given)",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "File content"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("path is required"))
			}
			path := c.Args().First()

			content := c.String("content")
			if !c.IsSet("content") {
				if !stdinHasData(c.App.Reader) {
					return outputError(errors.NewInvalidRequest("content must be piped via stdin or passed with --content"))
				}
				var err error
				if content, err = readStdin(c.App.Reader, a.FS.Quota()); err != nil {
					return outputError(err)
				}
			}

			exists, err := a.FS.Exists(c.Context, path)
			if err != nil {
				return outputError(err)
			}
			if exists {
				err = a.FS.UpdateFile(c.Context, path, content)
			} else {
				err = a.FS.CreateFile(c.Context, path, content)
			}
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"path": vfs.Clean(path), "created": !exists, "size": len(content)})
		},
	}
}

func mkdirCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "mkdir",
		Usage:     "Create a directory",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "parents", Aliases: []string{"p"}, Usage: "Create missing parent directories"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("path is required"))
			}
			path := vfs.Clean(c.Args().First())
			dirs := []string{path}
			if c.Bool("parents") {
				dirs = ancestors(path)
			}
			for _, dir := range dirs {
				exists, err := a.FS.Exists(c.Context, dir)
				if err != nil {
					return outputError(err)
				}
				if exists && dir != path {
					continue
				}
				if err := a.FS.CreateDirectory(c.Context, dir); err != nil {
					if c.Bool("parents") && errors.Is(err, errors.ErrAlreadyExists) {
						continue
					}
					return outputError(err)
				}
			}
			return outputJSON(c, map[string]any{"path": path})
		},
	}
}

func rmCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a file or a directory with everything below it",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("path is required"))
			}
			path := c.Args().First()
			if err := a.FS.DeleteFile(c.Context, path); err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"path": vfs.Clean(path), "deleted": true})
		},
	}
}

func statCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "stat",
		Usage:     "Show metadata for a path",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("path is required"))
			}
			entry, err := a.FS.Stat(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, entry)
		},
	}
}

func treeCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "Print every path below a directory",
		ArgsUsage: "[path]",
		Action: func(c *cli.Context) error {
			root := vfs.Clean(argOr(c, "/"))
			entry, err := a.FS.Stat(c.Context, root)
			if err != nil {
				return outputError(err)
			}
			if entry.Type != vfs.TypeDirectory {
				return outputError(errors.NewWrongType(root, "directory"))
			}
			prefix := strings.TrimSuffix(root, "/") + "/"
			fmt.Fprintln(c.App.Writer, root)
			return a.FS.Walk(c.Context, func(e vfs.Entry) error {
				if !strings.HasPrefix(e.Path, prefix) {
					return nil
				}
				depth := strings.Count(strings.TrimPrefix(e.Path, prefix), "/")
				name := e.Name
				if e.Type == vfs.TypeDirectory {
					name += "/"
				}
				_, err := fmt.Fprintf(c.App.Writer, "%s%s\n", strings.Repeat("  ", depth+1), name)
				return err
			})
		},
	}
}

func globCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "glob",
		Usage:     "List files matching a pattern such as '/home/**/*.txt'",
		ArgsUsage: "<pattern>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("pattern is required"))
			}
			paths, err := a.FS.Glob(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			if paths == nil {
				paths = []string{}
			}
			return outputJSON(c, map[string]any{"pattern": c.Args().First(), "paths": paths})
		},
	}
}

// Haunting and messages

func hauntCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "haunt",
		Usage: "Mutate haunted files",
		Subcommands: []*cli.Command{
			{
				Name:      "trigger",
				Usage:     "Apply one random mutation to a file",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "register", Usage: "Register the file first if it is not haunted"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return outputError(errors.NewInvalidRequest("path is required"))
					}
					path := c.Args().First()
					if c.Bool("register") {
						a.Haunt.RegisterFile(path)
					}
					kind, err := a.Haunt.TriggerMutation(c.Context, path)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"path": vfs.Clean(path), "type": kind})
				},
			},
			{
				Name:  "files",
				Usage: "List haunted files",
				Action: func(c *cli.Context) error {
					files := a.Haunt.RegisteredFiles()
					if files == nil {
						files = []string{}
					}
					return outputJSON(c, map[string]any{"registered": files})
				},
			},
		},
	}
}

func rewriteCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "rewrite",
		Usage:     "Rewrite a message in the ghost's voice",
		ArgsUsage: "<message>",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "intensity", Aliases: []string{"i"}, Usage: "Rewrite intensity in [0,1] (random when omitted)"},
		},
		Action: func(c *cli.Context) error {
			msg := strings.Join(c.Args().Slice(), " ")
			var out string
			if c.IsSet("intensity") {
				out = a.Rewriter.RewriteAt(msg, c.Float64("intensity"))
			} else {
				out = a.Rewriter.Rewrite(msg)
			}
			return outputJSON(c, map[string]any{"original": msg, "rewritten": out})
		},
	}
}

func ghostCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "ghost",
		Usage: "Talk to the ghost",
		Subcommands: []*cli.Command{
			{
				Name:      "speak",
				Usage:     "Have the ghost say something (a random line when no message is given)",
				ArgsUsage: "[message]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "personality", Aliases: []string{"p"}, Usage: "mischievous|ominous|playful"},
				},
				Action: func(c *cli.Context) error {
					if p := c.String("personality"); p != "" {
						personality, err := ghost.ParsePersonality(p)
						if err != nil {
							return outputError(errors.NewInvalidRequest(err.Error()))
						}
						a.Ghost.SetPersonality(personality)
					}
					var msg ghost.Message
					if c.NArg() == 0 {
						msg = a.Ghost.SpeakRandom(c.Context)
					} else {
						msg = a.Ghost.Speak(c.Context, strings.Join(c.Args().Slice(), " "))
					}
					return outputJSON(c, msg)
				},
			},
			{
				Name:      "command",
				Usage:     "Tell the ghost about a command and hear its answer",
				ArgsUsage: "<command>",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return outputError(errors.NewInvalidRequest("command is required"))
					}
					return outputJSON(c, a.Ghost.RespondToCommand(c.Context, strings.Join(c.Args().Slice(), " ")))
				},
			},
		},
	}
}

// Applications

func mailCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "mail",
		Usage: "DeadMail client",
		Subcommands: []*cli.Command{
			{
				Name:  "send",
				Usage: "Send an email (reads the body from stdin unless --body is given)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Required: true, Usage: "Recipient"},
					&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Required: true, Usage: "Subject"},
					&cli.StringFlag{Name: "from", Usage: "Sender (default user@shadowscript.os)"},
					&cli.StringFlag{Name: "body", Aliases: []string{"b"}, Usage: "Body"},
				},
				Action: func(c *cli.Context) error {
					body := c.String("body")
					if !c.IsSet("body") && stdinHasData(c.App.Reader) {
						var err error
						if body, err = readStdin(c.App.Reader, a.FS.Quota()); err != nil {
							return outputError(err)
						}
					}
					email, err := a.Mail.Send(c.Context, deadmail.SendInput{
						From:    c.String("from"),
						To:      c.String("to"),
						Subject: c.String("subject"),
						Body:    body,
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, email)
				},
			},
			{
				Name:  "inbox",
				Usage: "List emails, newest first",
				Action: func(c *cli.Context) error {
					emails, err := a.Mail.Inbox(c.Context)
					if err != nil {
						return outputError(err)
					}
					unread := deadmail.Unread(emails)
					if emails == nil {
						emails = []deadmail.Email{}
					}
					return outputJSON(c, map[string]any{"emails": emails, "unread": unread})
				},
			},
			{
				Name:      "open",
				Usage:     "Show an email and mark it read",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					email, err := a.Mail.Open(c.Context, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, email)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete an email",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if err := a.Mail.Delete(c.Context, id); err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"id": id, "deleted": true})
				},
			},
		},
	}
}

func paintCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "paint",
		Usage: "GhostPaint artworks",
		Subcommands: []*cli.Command{
			{
				Name:  "save",
				Usage: "Save a canvas read from stdin as JSON ({\"width\":..,\"height\":..,\"pixels\":[[..]]})",
				Action: func(c *cli.Context) error {
					if !stdinHasData(c.App.Reader) {
						return outputError(errors.NewInvalidRequest("canvas JSON must be piped via stdin"))
					}
					data, err := readStdin(c.App.Reader, a.FS.Quota())
					if err != nil {
						return outputError(err)
					}
					var canvas ghostpaint.Canvas
					if err := sonic.ConfigStd.UnmarshalFromString(data, &canvas); err != nil {
						return outputError(errors.NewInvalidRequest("invalid canvas JSON: " + err.Error()))
					}
					path, err := a.Paint.Save(c.Context, &canvas)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"path": path})
				},
			},
			{
				Name:  "list",
				Usage: "List saved artworks, newest first",
				Action: func(c *cli.Context) error {
					entries, err := a.Paint.List(c.Context)
					if err != nil {
						return outputError(err)
					}
					if entries == nil {
						entries = []vfs.Entry{}
					}
					return outputJSON(c, map[string]any{"artworks": entries})
				},
			},
			{
				Name:      "show",
				Usage:     "Print an artwork (the latest when no path is given)",
				ArgsUsage: "[path]",
				Action: func(c *cli.Context) error {
					var (
						art *ghostpaint.Artwork
						err error
					)
					if c.NArg() == 0 {
						art, err = a.Paint.LoadLatest(c.Context)
					} else {
						art, err = a.Paint.Load(c.Context, c.Args().First())
					}
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, art)
				},
			},
		},
	}
}

// Snapshots and serving

func exportCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the filesystem to a snapshot file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.shadowscript/exports/<name>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Label for the default file name"},
		},
		Action: func(c *cli.Context) error {
			out, err := snapshot.Export(c.Context, a.FS, a.Config, snapshot.ExportInput{
				Path: c.String("path"),
				Name: c.String("name"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

func importCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Replace the filesystem with a snapshot file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Snapshot file path"},
		},
		Action: func(c *cli.Context) error {
			out, err := snapshot.Import(c.Context, a.FS, a.Config, snapshot.ImportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

func serveCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web viewer with the ghost and the haunting active",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default from config, 127.0.0.1:8666)"},
			&cli.BoolFlag{Name: "calm", Usage: "Do not start random mutations and ghost chatter"},
		},
		Action: func(c *cli.Context) error {
			addr := c.String("addr")
			if addr == "" {
				addr = a.Config.WebAddr
			}
			srv, err := web.NewServer(a, Version, addr)
			if err != nil {
				return outputError(err)
			}
			if !c.Bool("calm") {
				if err := a.StartBackground(c.Context, nil); err != nil {
					return outputError(err)
				}
			}
			return web.Run(c.Context, srv, a.Logger)
		},
	}
}

// Helper functions

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return outputError(errors.NewInternal(err))
	}
	data = append(data, '\n')
	_, err = c.App.Writer.Write(data)
	return err
}

// outputError formats error for CLI.
func outputError(err error) error {
	var shadowErr *errors.ShadowError
	if stderrors.As(err, &shadowErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", shadowErr.Code, shadowErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// argOr returns the first argument, or def when there is none.
func argOr(c *cli.Context, def string) string {
	if c.NArg() == 0 {
		return def
	}
	return c.Args().First()
}

// ancestors returns every directory from the root's child down to path.
func ancestors(path string) []string {
	var dirs []string
	dir := "/"
	for _, part := range vfs.Split(path) {
		dir = vfs.Join(dir, part)
		dirs = append(dirs, dir)
	}
	return dirs
}

// stdinHasData returns true if r has piped data. Readers other than a
// terminal always count as piped.
func stdinHasData(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads r up to limit bytes.
func readStdin(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewQuotaExceeded(limit, int64(len(data)))
	}
	return string(data), nil
}
