// Package repl 基于斜杠命令的行式笔记界面。
// Package repl is a line-oriented slash-command interface over the tab manager.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/mattn/go-runewidth"

	"tabnotes/internal/config"
	"tabnotes/internal/i18n"
	"tabnotes/internal/stats"
	"tabnotes/internal/tabs"
	"tabnotes/internal/transfer"
)

// ANSI colors for prompt
const (
	ansiReset = "\x1b[0m"
	ansiDim   = "\x1b[90m"
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
)

var commandNames = []string{
	"/new", "/tabs", "/switch", "/title", "/set", "/append", "/show", "/close",
	"/move", "/notes", "/open", "/save", "/export", "/import", "/stats", "/lang",
	"/help", "/exit",
}

// Options REPL 配置 / Options configures a Loop
type Options struct {
	ExportDir  string
	ProjectDir string
	Out        io.Writer
	Stats      *stats.Counter
	Color      bool
}

// Loop 持有 REPL 状态：管理器、输出与语言
// Loop holds REPL state: the manager, output writer and locale.
type Loop struct {
	manager    *tabs.Manager
	counter    *stats.Counter
	exportDir  string
	projectDir string
	out        io.Writer
	color      bool
	locale     *i18n.I18n
}

func NewLoop(manager *tabs.Manager, opts Options) *Loop {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	counter := opts.Stats
	if counter == nil {
		counter = stats.NewCounter(stats.DefaultEncoding)
	}
	return &Loop{
		manager:    manager,
		counter:    counter,
		exportDir:  opts.ExportDir,
		projectDir: opts.ProjectDir,
		out:        out,
		color:      opts.Color && useColor(),
		locale:     i18n.Global(),
	}
}

// Run 读取并执行命令直到 /exit、EOF 或 ctx 取消；退出前保存所有未保存的标签
// Run reads and executes commands until /exit, EOF or ctx cancellation, then flushes dirty tabs.
func (l *Loop) Run(ctx context.Context, input LineInput) error {
	fmt.Fprintln(l.out, l.locale.T("repl.welcome", len(l.manager.Tabs())))
	for {
		if ctx.Err() != nil {
			return l.manager.Flush(context.WithoutCancel(ctx))
		}
		line, err := input.ReadLine(l.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				fmt.Fprintln(l.out, l.locale.T("repl.bye"))
				return l.manager.Flush(ctx)
			}
			return err
		}
		quit, err := l.Execute(ctx, line)
		if err != nil {
			l.printErr(err)
		}
		if quit {
			fmt.Fprintln(l.out, l.locale.T("repl.bye"))
			return l.manager.Flush(ctx)
		}
	}
}

// prompt 形如 "[2/3] Todo*> " / prompt looks like "[2/3] Todo*> "
func (l *Loop) prompt() string {
	list, idx := l.manager.Snapshot()
	if idx < 0 {
		return "[0/0]> "
	}
	tab := list[idx]
	title := runewidth.Truncate(tab.DisplayTitle(), 24, "…")
	if tab.HasUnsavedChanges {
		title += "*"
	}
	p := fmt.Sprintf("[%d/%d] %s> ", idx+1, len(list), title)
	if l.color {
		return ansiGreen + p + ansiReset
	}
	return p
}

func (l *Loop) printErr(err error) {
	if l.color {
		fmt.Fprintf(l.out, "%s%s%s\n", ansiRed, l.locale.T("error.generic", err.Error()), ansiReset)
		return
	}
	fmt.Fprintln(l.out, l.locale.T("error.generic", err.Error()))
}

// Execute 执行一行输入；非斜杠开头的文本追加到当前标签
// Execute runs one input line; text not starting with "/" is appended to the active tab.
func (l *Loop) Execute(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, l.appendActive(line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "/new":
		tab := l.manager.CreateTab()
		fmt.Fprintln(l.out, l.locale.T("repl.created", tab.ID))
	case "/tabs":
		l.printTabs()
	case "/switch":
		if arg == "" {
			return false, l.usage("/switch <n|id>")
		}
		id, err := l.resolveTab(arg)
		if err != nil {
			return false, err
		}
		if err := l.manager.SwitchTab(id); err != nil {
			return false, err
		}
		tab, _ := l.manager.Tab(id)
		fmt.Fprintln(l.out, l.locale.T("repl.switched", tab.DisplayTitle()))
	case "/title":
		return false, l.updateActive(func(tab tabs.Tab) tabs.TabUpdate {
			return tabs.TabUpdate{Title: &arg}
		})
	case "/set":
		content := unescape(arg)
		return false, l.updateActive(func(tab tabs.Tab) tabs.TabUpdate {
			return tabs.TabUpdate{Content: &content}
		})
	case "/append":
		if arg == "" {
			return false, l.usage("/append <text>")
		}
		return false, l.appendActive(arg)
	case "/show":
		tab, ok := l.manager.ActiveTab()
		if !ok {
			return false, errors.New(l.locale.T("repl.no_active"))
		}
		fmt.Fprintln(l.out, transfer.FormatNote(tab.DisplayTitle(), tab.Content))
	case "/close":
		id := l.manager.ActiveTabID()
		if arg != "" {
			var err error
			if id, err = l.resolveTab(arg); err != nil {
				return false, err
			}
		}
		if id == "" {
			return false, errors.New(l.locale.T("repl.no_active"))
		}
		tab, _ := l.manager.Tab(id)
		if err := l.manager.CloseTab(ctx, id); err != nil {
			return false, err
		}
		fmt.Fprintln(l.out, l.locale.T("repl.closed", tab.DisplayTitle()))
	case "/move":
		from, to, ok := parsePair(arg)
		if !ok {
			return false, l.usage("/move <from> <to>")
		}
		if err := l.manager.ReorderTabs(from-1, to-1); err != nil {
			return false, err
		}
		fmt.Fprintln(l.out, l.locale.T("repl.moved", from, to))
	case "/notes":
		l.printNotes()
	case "/open":
		if arg == "" {
			return false, l.usage("/open <note-id>")
		}
		tab, err := l.manager.OpenNote(arg)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(l.out, l.locale.T("repl.switched", tab.DisplayTitle()))
	case "/save":
		id := l.manager.ActiveTabID()
		if id == "" {
			return false, errors.New(l.locale.T("repl.no_active"))
		}
		if err := l.manager.SaveTab(ctx, id); err != nil {
			return false, err
		}
		tab, _ := l.manager.Tab(id)
		fmt.Fprintln(l.out, l.locale.T("repl.saved", tab.DisplayTitle()))
	case "/export":
		return false, l.export(arg)
	case "/import":
		if arg == "" {
			return false, l.usage("/import <path>")
		}
		content, err := transfer.ReadFile(arg)
		if err != nil {
			return false, err
		}
		tab := l.manager.ImportNote(content, arg)
		fmt.Fprintln(l.out, l.locale.T("status.imported", tab.Title))
	case "/stats":
		tab, ok := l.manager.ActiveTab()
		if !ok {
			return false, errors.New(l.locale.T("repl.no_active"))
		}
		s := l.counter.Compute(tab.Content)
		fmt.Fprintln(l.out, l.locale.T("status.stats", s.Words, s.Lines, s.Chars, s.Tokens))
	case "/lang":
		if arg == "" || !i18n.IsSupported(arg) {
			return false, l.usage("/lang <" + strings.Join(i18n.Supported(), "|") + ">")
		}
		if err := config.WriteUILang(l.projectDir, arg); err != nil {
			return false, err
		}
		i18n.Init(arg)
		l.locale = i18n.Global()
		fmt.Fprintln(l.out, l.locale.T("repl.lang_set", l.locale.Locale()))
	case "/help":
		fmt.Fprintln(l.out, l.locale.T("repl.help"))
	case "/exit", "/quit":
		return true, nil
	default:
		return false, errors.New(l.locale.T("repl.unknown_command", cmd))
	}
	return false, nil
}

func (l *Loop) usage(text string) error {
	return errors.New(l.locale.T("repl.usage", text))
}

func (l *Loop) updateActive(build func(tabs.Tab) tabs.TabUpdate) error {
	tab, ok := l.manager.ActiveTab()
	if !ok {
		return errors.New(l.locale.T("repl.no_active"))
	}
	if err := l.manager.UpdateTab(tab.ID, build(tab)); err != nil {
		return err
	}
	updated, _ := l.manager.Tab(tab.ID)
	fmt.Fprintln(l.out, l.locale.T("repl.updated", updated.DisplayTitle()))
	return nil
}

func (l *Loop) appendActive(text string) error {
	tab, ok := l.manager.ActiveTab()
	if !ok {
		return errors.New(l.locale.T("repl.no_active"))
	}
	content := unescape(text)
	if tab.Content != "" {
		content = tab.Content + "\n" + content
	}
	return l.manager.UpdateTab(tab.ID, tabs.TabUpdate{Content: &content})
}

func (l *Loop) export(arg string) error {
	var (
		path string
		err  error
	)
	if strings.EqualFold(arg, "all") {
		path, err = transfer.ExportAll(l.exportDir, l.manager.Notes())
	} else {
		tab, ok := l.manager.ActiveTab()
		if !ok {
			return errors.New(l.locale.T("repl.no_active"))
		}
		path, err = transfer.ExportNote(l.exportDir, tab.Title, tab.Content)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(l.out, l.locale.T("status.exported", path))
	return nil
}

// resolveTab 参数可以是 1 起始的序号或标签 ID / arg is a 1-based position or a tab id
func (l *Loop) resolveTab(arg string) (string, error) {
	list := l.manager.Tabs()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(list) {
			return "", fmt.Errorf("%w: %d", tabs.ErrIndexOutOfRange, n)
		}
		return list[n-1].ID, nil
	}
	for _, t := range list {
		if t.ID == arg {
			return t.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", tabs.ErrTabNotFound, arg)
}

func (l *Loop) printTabs() {
	active := l.manager.ActiveTabID()
	for i, t := range l.manager.Tabs() {
		marker := " "
		if t.ID == active {
			marker = "*"
		}
		state := ""
		switch {
		case t.SaveErr != "":
			state = " !"
		case t.HasUnsavedChanges:
			state = " ●"
		}
		fmt.Fprintf(l.out, "%s %d. %s%s  %s\n", marker, i+1, t.DisplayTitle(), state, l.dim(t.ID))
	}
}

func (l *Loop) printNotes() {
	notes := l.manager.Notes()
	if len(notes) == 0 {
		fmt.Fprintln(l.out, l.locale.T("repl.notes_empty"))
		return
	}
	for _, n := range notes {
		fmt.Fprintf(l.out, "%s  %s  %s\n", n.ID, n.DisplayTitle(), l.dim(n.UpdatedAt.Local().Format(time.DateTime)))
	}
}

func (l *Loop) dim(s string) string {
	if l.color {
		return ansiDim + s + ansiReset
	}
	return s
}

func parsePair(arg string) (int, int, bool) {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		return 0, 0, false
	}
	a, err1 := strconv.Atoi(fields[0])
	b, err2 := strconv.Atoi(fields[1])
	return a, b, err1 == nil && err2 == nil
}

// unescape 将字面量 "\n" 转为换行 / unescape turns a literal "\n" into a newline
func unescape(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

func useColor() bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(os.Getenv("TERM"))) != "dumb"
}
