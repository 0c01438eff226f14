package i18n

// EnMessages English message catalog
var EnMessages = map[string]string{
	// TUI - Editor
	"editor.title_placeholder":   "Untitled",
	"editor.content_placeholder": "Start writing...",
	"editor.empty":               "No open tabs. Press %s to create one.",
	"tab.untitled":               "Untitled",

	// TUI - Status bar
	"status.saved":         "Saved",
	"status.unsaved":       "Unsaved changes",
	"status.save_failed":   "Save failed, will retry: %s",
	"status.stats":         "%d words · %d lines · %d chars · %d tokens",
	"status.exported":      "Exported to %s",
	"status.export_failed": "Export failed: %s",
	"status.imported":      "Imported %q",
	"status.import_failed": "Import failed: %s",
	"status.inbox":         "Imported %q from inbox",
	"status.copied":        "Copied note to clipboard",
	"status.copy_failed":   "Clipboard unavailable: %s",
	"status.last_tab":      "The last tab cannot be closed",
	"status.close_failed":  "Close failed: %s",
	"status.preview_on":    "Markdown preview on",
	"status.preview_off":   "Markdown preview off",

	// TUI - Close confirmation
	"confirm.close_title": "Close Tab?",
	"confirm.close_body":  "Are you sure you want to close this tab? Any unsaved changes will be automatically saved.",
	"confirm.close_hint":  "y close · n cancel",

	// TUI - Settings menu
	"settings.title":          "Settings",
	"settings.import":         "Import Note",
	"settings.export_current": "Export Current",
	"settings.export_all":     "Export All Notes",
	"settings.copy":           "Copy to Clipboard",
	"settings.preview":        "Toggle Preview",
	"prompt.import":           "Import file: ",

	// TUI - Help line
	"help.short": "ctrl+t new · ctrl+w close · ctrl+←/→ switch · ctrl+shift+←/→ move · tab focus · ctrl+s save · ctrl+r preview · ctrl+g settings · ctrl+q quit",

	// REPL
	"repl.welcome":         "tabnotes: %d tab(s) open. Type /help for commands.",
	"repl.unknown_command": "Unknown command: %s (try /help)",
	"repl.usage":           "Usage: %s",
	"repl.no_active":       "No active tab",
	"repl.created":         "Opened new tab %s",
	"repl.switched":        "Switched to %s",
	"repl.closed":          "Closed %s",
	"repl.moved":           "Moved tab %d to %d",
	"repl.saved":           "Saved %s",
	"repl.updated":         "Updated %s",
	"repl.notes_empty":     "No saved notes",
	"repl.lang_set":        "Language set to %s",
	"repl.bye":             "Bye.",
	"repl.help": `Commands:
  /new                  open an empty tab
  /tabs                 list open tabs
  /switch <n|id>        activate a tab
  /title <text>         set the active tab's title
  /set <text>           replace the active tab's content
  /append <text>        append a line to the active tab
  /show                 print the active tab
  /close [n|id]         close a tab (saves first)
  /move <from> <to>     reorder tabs (1-based)
  /notes                list saved notes
  /open <note-id>       open a saved note
  /save                 save the active tab now
  /export [all]         export the active tab or all notes
  /import <path>        import a text file as a new tab
  /stats                word and token counts of the active tab
  /lang <en|zh-CN>      switch language for this project
  /exit                 save everything and quit`,

	// Errors
	"error.not_found": "Not found: %s",
	"error.generic":   "Error: %s",
}
