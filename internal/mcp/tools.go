package mcp

import "github.com/mark3labs/mcp-go/mcp"

var (
	fsReadToolDef = mcp.NewTool("fs_read",
		mcp.WithDescription("Read a file from the virtual filesystem."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path, e.g. /home/welcome.txt")),
	)
	fsWriteToolDef = mcp.NewTool("fs_write",
		mcp.WithDescription("Create a file, or replace the content of an existing one."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the file")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New file content")),
	)
	fsMkdirToolDef = mcp.NewTool("fs_mkdir",
		mcp.WithDescription("Create a directory. The parent must exist."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the directory")),
	)
	fsDeleteToolDef = mcp.NewTool("fs_delete",
		mcp.WithDescription("Delete a file or a directory with everything under it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path to delete")),
	)
	fsListToolDef = mcp.NewTool("fs_list",
		mcp.WithDescription("List a directory, sorted by name."),
		mcp.WithString("path", mcp.Description("Directory path (default /)")),
	)
	fsStatToolDef = mcp.NewTool("fs_stat",
		mcp.WithDescription("Describe a single entry."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path")),
	)
	fsGlobToolDef = mcp.NewTool("fs_glob",
		mcp.WithDescription("Find files matching a doublestar pattern such as /home/**/*.txt."),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Doublestar pattern")),
	)
	fsFlushToolDef = mcp.NewTool("fs_flush",
		mcp.WithDescription("Persist pending filesystem changes now."),
	)

	hauntRegisterToolDef = mcp.NewTool("haunt_register",
		mcp.WithDescription("Register a file for haunting."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute file path")),
	)
	hauntUnregisterToolDef = mcp.NewTool("haunt_unregister",
		mcp.WithDescription("Stop haunting a file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute file path")),
	)
	hauntTriggerToolDef = mcp.NewTool("haunt_trigger",
		mcp.WithDescription("Apply one random mutation (corruption, replacement or insertion) to a registered file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Registered file path")),
	)
	hauntLogToolDef = mcp.NewTool("haunt_log",
		mcp.WithDescription("Show registered files and the mutation log."),
	)

	messageRewriteToolDef = mcp.NewTool("message_rewrite",
		mcp.WithDescription("Rewrite a message with spectral effects while keeping it readable."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Text to rewrite")),
		mcp.WithNumber("intensity", mcp.Description("0.0 to 1.0; omitted means random per call")),
	)

	ghostSpeakToolDef = mcp.NewTool("ghost_speak",
		mcp.WithDescription("Have the ghost say something. Without a message it picks one of its own."),
		mcp.WithString("message", mcp.Description("Text for the ghost to say")),
		mcp.WithString("personality", mcp.Description("playful, mischievous or ominous; changes the ghost's mood")),
	)
	ghostCommandToolDef = mcp.NewTool("ghost_command",
		mcp.WithDescription("Tell the ghost about a command that ran; it may answer and haunt a file."),
		mcp.WithString("command", mcp.Required(), mcp.Description("Command text")),
	)
	ghostHistoryToolDef = mcp.NewTool("ghost_history",
		mcp.WithDescription("Recent ghost messages, oldest first."),
	)

	mailSendToolDef = mcp.NewTool("mail_send",
		mcp.WithDescription("Send a DeadMail message."),
		mcp.WithString("to", mcp.Required(), mcp.Description("Recipient")),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Subject line")),
		mcp.WithString("body", mcp.Description("Message body")),
		mcp.WithString("from", mcp.Description("Sender (default user@shadowscript.os)")),
	)
	mailInboxToolDef = mcp.NewTool("mail_inbox",
		mcp.WithDescription("List DeadMail messages, newest first."),
	)
	mailOpenToolDef = mcp.NewTool("mail_open",
		mcp.WithDescription("Open a DeadMail message and mark it read."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Message ID")),
	)
	mailDeleteToolDef = mcp.NewTool("mail_delete",
		mcp.WithDescription("Delete a DeadMail message."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Message ID")),
	)

	paintSaveToolDef = mcp.NewTool("paint_save",
		mcp.WithDescription("Save a GhostPaint canvas. pixels is a list of rows of colors (#RRGGBB or transparent)."),
		mcp.WithNumber("width", mcp.Required(), mcp.Description("Canvas width")),
		mcp.WithNumber("height", mcp.Required(), mcp.Description("Canvas height")),
		mcp.WithArray("pixels", mcp.Description("Rows of colors; omitted means a blank canvas")),
	)
	paintLatestToolDef = mcp.NewTool("paint_latest",
		mcp.WithDescription("Load the most recently saved GhostPaint artwork."),
	)

	snapshotExportToolDef = mcp.NewTool("snapshot_export",
		mcp.WithDescription("Export the whole filesystem to a .jsonl snapshot on the host."),
		mcp.WithString("path", mcp.Description("Destination (default ~/.shadowscript/exports/<name>-<timestamp>.jsonl)")),
		mcp.WithString("name", mcp.Description("Label used in the default file name")),
	)
	snapshotImportToolDef = mcp.NewTool("snapshot_import",
		mcp.WithDescription("Replace the filesystem with a .jsonl snapshot from the host."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Snapshot path")),
	)
)
