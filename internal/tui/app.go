package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tabnotes/internal/i18n"
	"tabnotes/internal/inbox"
	"tabnotes/internal/stats"
	"tabnotes/internal/tabs"
	"tabnotes/internal/transfer"
)

type mode int

const (
	modeEdit mode = iota
	modeConfirmClose
	modeSettings
	modeImport
)

type focusField int

const (
	focusContent focusField = iota
	focusTitle
)

type settingsAction int

const (
	actionImport settingsAction = iota
	actionExportCurrent
	actionExportAll
	actionCopy
	actionPreview
)

var settingsItems = []struct {
	action settingsAction
	key    string
}{
	{actionImport, "settings.import"},
	{actionExportCurrent, "settings.export_current"},
	{actionExportAll, "settings.export_all"},
	{actionCopy, "settings.copy"},
	{actionPreview, "settings.preview"},
}

// --- Tea Messages ---

// ManagerChangedMsg 管理器状态变化（编辑、保存、收件箱导入）
// ManagerChangedMsg signals that the tab manager's state changed
type ManagerChangedMsg struct{}

// InboxImportedMsg 收件箱导入了一个文件
// InboxImportedMsg reports a file imported from the inbox
type InboxImportedMsg struct{ Title string }

type savedMsg struct{ err error }

type closedMsg struct {
	id  string
	err error
}

type exportedMsg struct {
	path string
	err  error
}

type importedMsg struct {
	title string
	err   error
}

// Options TUI 配置 / Options configures the TUI
type Options struct {
	ExportDir string
	Preview   bool
	Logger    *slog.Logger
	// Clipboard 为空时使用系统剪贴板 / Clipboard defaults to the system clipboard
	Clipboard func(string) error
}

// App Bubble Tea 主 Model
// App is the main Bubble Tea model
type App struct {
	// 布局 / Layout
	width  int
	height int

	manager   *tabs.Manager
	counter   *stats.Counter
	ctx       context.Context
	exportDir string
	logger    *slog.Logger
	copyText  func(string) error

	// 输入 / Input
	title       textinput.Model
	content     textarea.Model
	importInput textinput.Model
	focus       focusField
	boundID     string

	// 状态 / State
	mode         mode
	menuCursor   int
	pendingClose string
	preview      bool
	status       string
	statusErr    bool

	// 配置 / Config
	theme  Theme
	keys   KeyMap
	locale *i18n.I18n
}

// NewApp 创建 TUI 应用；manager 需已 Load
// NewApp creates the TUI over a loaded manager
func NewApp(ctx context.Context, manager *tabs.Manager, counter *stats.Counter, opts Options) App {
	locale := i18n.Global()

	ti := textinput.New()
	ti.Placeholder = locale.T("editor.title_placeholder")
	ti.Prompt = ""
	ti.CharLimit = 256

	ta := textarea.New()
	ta.Placeholder = locale.T("editor.content_placeholder")
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.Focus()

	imp := textinput.New()
	imp.Prompt = locale.T("prompt.import")
	imp.CharLimit = 4096

	if counter == nil {
		counter = stats.NewCounter(stats.DefaultEncoding)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	copyText := opts.Clipboard
	if copyText == nil {
		copyText = clipboard.WriteAll
	}

	a := App{
		manager:     manager,
		counter:     counter,
		ctx:         ctx,
		exportDir:   opts.ExportDir,
		logger:      logger,
		copyText:    copyText,
		title:       ti,
		content:     ta,
		importInput: imp,
		preview:     opts.Preview,
		theme:       DarkTheme(),
		keys:        DefaultKeyMap(),
		locale:      locale,
	}
	a.bindActive()
	return a
}

func (a App) Init() tea.Cmd {
	return textarea.Blink
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.relayout()
		return a, nil

	case ManagerChangedMsg:
		a.bindActive()
		return a, nil

	case InboxImportedMsg:
		a.setStatus(a.locale.T("status.inbox", msg.Title), false)
		a.bindActive()
		return a, nil

	case savedMsg:
		if msg.err != nil {
			a.setStatus(a.locale.T("status.save_failed", msg.err.Error()), true)
		} else {
			a.setStatus(a.locale.T("status.saved"), false)
		}
		return a, nil

	case closedMsg:
		if msg.err != nil {
			a.setStatus(a.locale.T("status.close_failed", msg.err.Error()), true)
		} else {
			a.status = ""
		}
		a.bindActive()
		return a, nil

	case exportedMsg:
		if msg.err != nil {
			a.setStatus(a.locale.T("status.export_failed", msg.err.Error()), true)
		} else {
			a.setStatus(a.locale.T("status.exported", msg.path), false)
		}
		return a, nil

	case importedMsg:
		if msg.err != nil {
			a.setStatus(a.locale.T("status.import_failed", msg.err.Error()), true)
		} else {
			a.setStatus(a.locale.T("status.imported", msg.title), false)
		}
		a.bindActive()
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Quit) {
			return a, tea.Quit
		}
		switch a.mode {
		case modeConfirmClose:
			return a.updateConfirm(msg)
		case modeSettings:
			return a.updateSettings(msg)
		case modeImport:
			return a.updateImport(msg)
		}
		if next, cmd, handled := a.handleEditKey(msg); handled {
			return next, cmd
		}
	}

	if a.mode == modeImport {
		var cmd tea.Cmd
		a.importInput, cmd = a.importInput.Update(msg)
		return a, cmd
	}
	if a.mode != modeEdit || a.boundID == "" {
		return a, nil
	}
	return a.updateInputs(msg)
}

// handleEditKey 编辑模式下的全局快捷键
// handleEditKey handles global shortcuts in edit mode
func (a App) handleEditKey(msg tea.KeyMsg) (App, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, a.keys.NewTab):
		a.manager.CreateTab()
		a.bindActive()
		a.setFocus(focusTitle)
		return a, nil, true

	case key.Matches(msg, a.keys.CloseTab):
		if a.boundID == "" {
			return a, nil, true
		}
		if len(a.manager.Tabs()) <= 1 {
			a.setStatus(a.locale.T("status.last_tab"), true)
			return a, nil, true
		}
		a.pendingClose = a.boundID
		a.mode = modeConfirmClose
		return a, nil, true

	case key.Matches(msg, a.keys.NextTab):
		a.switchBy(1)
		return a, nil, true

	case key.Matches(msg, a.keys.PrevTab):
		a.switchBy(-1)
		return a, nil, true

	case key.Matches(msg, a.keys.MoveLeft):
		a.moveBy(-1)
		return a, nil, true

	case key.Matches(msg, a.keys.MoveRight):
		a.moveBy(1)
		return a, nil, true

	case key.Matches(msg, a.keys.Focus):
		if a.focus == focusTitle {
			a.setFocus(focusContent)
		} else {
			a.setFocus(focusTitle)
		}
		return a, nil, true

	case key.Matches(msg, a.keys.Save):
		return a, a.saveCmd(a.boundID), true

	case key.Matches(msg, a.keys.Preview):
		a.togglePreview()
		return a, nil, true

	case key.Matches(msg, a.keys.Settings):
		a.mode = modeSettings
		a.menuCursor = 0
		return a, nil, true
	}
	return a, nil, false
}

// updateInputs 将按键交给标题/内容输入框，并把变化写回管理器
// updateInputs forwards msg to the focused input and pushes edits to the manager
func (a App) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if a.focus == focusTitle {
		if km, ok := msg.(tea.KeyMsg); ok && km.Type == tea.KeyEnter {
			a.setFocus(focusContent)
			return a, nil
		}
		a.title, cmd = a.title.Update(msg)
	} else if !a.preview {
		a.content, cmd = a.content.Update(msg)
	}

	tab, ok := a.manager.Tab(a.boundID)
	if !ok {
		return a, cmd
	}
	var u tabs.TabUpdate
	if v := a.title.Value(); v != tab.Title {
		u.Title = &v
	}
	if v := a.content.Value(); v != tab.Content {
		u.Content = &v
	}
	if u.Title != nil || u.Content != nil {
		if err := a.manager.UpdateTab(a.boundID, u); err != nil && !errors.Is(err, tabs.ErrTabNotFound) {
			a.logger.Error("update tab failed", "tab", a.boundID, "error", err)
		}
		a.status = ""
	}
	return a, cmd
}

func (a App) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Confirm):
		id := a.pendingClose
		a.pendingClose = ""
		a.mode = modeEdit
		return a, a.closeCmd(id)
	case key.Matches(msg, a.keys.Cancel):
		a.pendingClose = ""
		a.mode = modeEdit
	}
	return a, nil
}

func (a App) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Cancel), key.Matches(msg, a.keys.Settings):
		a.mode = modeEdit
		return a, nil
	case key.Matches(msg, a.keys.MenuUp):
		if a.menuCursor > 0 {
			a.menuCursor--
		}
		return a, nil
	case key.Matches(msg, a.keys.MenuDown):
		if a.menuCursor < len(settingsItems)-1 {
			a.menuCursor++
		}
		return a, nil
	case key.Matches(msg, a.keys.MenuSelect):
		a.mode = modeEdit
		return a.runAction(settingsItems[a.menuCursor].action)
	}
	return a, nil
}

func (a App) runAction(action settingsAction) (tea.Model, tea.Cmd) {
	switch action {
	case actionImport:
		a.mode = modeImport
		a.importInput.SetValue("")
		return a, a.importInput.Focus()

	case actionExportCurrent:
		tab, ok := a.manager.Tab(a.boundID)
		if !ok {
			return a, nil
		}
		dir := a.exportDir
		return a, func() tea.Msg {
			path, err := transfer.ExportNote(dir, tab.Title, tab.Content)
			return exportedMsg{path: path, err: err}
		}

	case actionExportAll:
		notes := a.manager.Notes()
		dir := a.exportDir
		return a, func() tea.Msg {
			path, err := transfer.ExportAll(dir, notes)
			return exportedMsg{path: path, err: err}
		}

	case actionCopy:
		if err := a.copyText(a.content.Value()); err != nil {
			a.setStatus(a.locale.T("status.copy_failed", err.Error()), true)
		} else {
			a.setStatus(a.locale.T("status.copied"), false)
		}

	case actionPreview:
		a.togglePreview()
	}
	return a, nil
}

func (a App) updateImport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.mode = modeEdit
		a.importInput.Blur()
		return a, nil
	case tea.KeyEnter:
		path := strings.TrimSpace(a.importInput.Value())
		a.mode = modeEdit
		a.importInput.Blur()
		if path == "" {
			return a, nil
		}
		return a, a.importCmd(path)
	}
	var cmd tea.Cmd
	a.importInput, cmd = a.importInput.Update(msg)
	return a, cmd
}

// --- Commands ---

func (a App) saveCmd(id string) tea.Cmd {
	if id == "" {
		return nil
	}
	m, ctx := a.manager, a.ctx
	return func() tea.Msg {
		return savedMsg{err: m.SaveTab(ctx, id)}
	}
}

func (a App) closeCmd(id string) tea.Cmd {
	m, ctx := a.manager, a.ctx
	return func() tea.Msg {
		return closedMsg{id: id, err: m.CloseTab(ctx, id)}
	}
}

func (a App) importCmd(path string) tea.Cmd {
	m := a.manager
	return func() tea.Msg {
		content, err := transfer.ReadFile(path)
		if err != nil {
			return importedMsg{err: err}
		}
		tab := m.ImportNote(content, path)
		return importedMsg{title: tab.Title}
	}
}

// --- 内部方法 / Internal methods ---

// bindActive 将输入框与管理器的当前标签同步；切换标签时重新载入内容
// bindActive syncs the inputs with the manager's active tab, reloading them on a switch
func (a *App) bindActive() {
	tab, ok := a.manager.ActiveTab()
	if !ok {
		a.boundID = ""
		a.title.SetValue("")
		a.content.SetValue("")
		return
	}
	if tab.ID == a.boundID {
		return
	}
	a.boundID = tab.ID
	a.title.SetValue(tab.Title)
	a.content.SetValue(tab.Content)
}

func (a *App) switchBy(delta int) {
	list, idx := a.manager.Snapshot()
	if len(list) < 2 {
		return
	}
	next := (idx + delta + len(list)) % len(list)
	if err := a.manager.SwitchTab(list[next].ID); err == nil {
		a.bindActive()
	}
}

func (a *App) moveBy(delta int) {
	idx := a.manager.ActiveIndex()
	if idx < 0 {
		return
	}
	if err := a.manager.ReorderTabs(idx, idx+delta); err != nil && !errors.Is(err, tabs.ErrIndexOutOfRange) {
		a.logger.Error("reorder failed", "error", err)
	}
}

func (a *App) setFocus(f focusField) {
	a.focus = f
	if f == focusTitle {
		a.content.Blur()
		a.title.Focus()
		return
	}
	a.title.Blur()
	a.content.Focus()
}

func (a *App) togglePreview() {
	a.preview = !a.preview
	if a.preview {
		a.setStatus(a.locale.T("status.preview_on"), false)
	} else {
		a.setStatus(a.locale.T("status.preview_off"), false)
	}
}

func (a *App) setStatus(text string, isErr bool) {
	a.status = text
	a.statusErr = isErr
}

func (a *App) relayout() {
	a.title.Width = a.width - 2
	a.content.SetWidth(a.width)
	a.content.SetHeight(a.editorHeight())
	a.importInput.Width = a.width - lipgloss.Width(a.importInput.Prompt) - 6
}

func (a App) editorHeight() int {
	// 标签栏 1、标题 2、状态栏 1、帮助 1 / tab strip, title with border, status, help
	h := a.height - 5
	if h < 3 {
		h = 3
	}
	return h
}

func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	strip := RenderTabStrip(a.manager.Tabs(), a.manager.ActiveTabID(), a.width, a.theme)

	var body string
	switch {
	case a.boundID == "":
		body = a.theme.MutedStyle.Render(a.locale.T("editor.empty", a.keys.NewTab.Help().Key))
	case a.mode == modeConfirmClose:
		body = a.renderDialog(a.renderConfirm())
	case a.mode == modeSettings:
		body = a.renderDialog(a.renderSettings())
	case a.mode == modeImport:
		body = a.renderDialog(a.importInput.View())
	case a.preview:
		body = lipgloss.NewStyle().Height(a.editorHeight()).Render(RenderMarkdown(a.content.Value(), a.width))
	default:
		body = a.theme.EditorStyle.Render(a.content.View())
	}

	title := a.theme.TitleInputStyle.Width(a.width).Render(a.title.View())
	parts := []string{strip, title, body, a.renderStatusBar(a.width), a.theme.MutedStyle.Render(a.locale.T("help.short"))}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// --- 渲染方法 / Render methods ---

func (a App) renderDialog(content string) string {
	box := a.theme.DialogStyle.Render(content)
	return lipgloss.Place(a.width, a.editorHeight(), lipgloss.Center, lipgloss.Center, box)
}

func (a App) renderConfirm() string {
	return strings.Join([]string{
		a.theme.DialogTitleStyle.Render(a.locale.T("confirm.close_title")),
		"",
		lipgloss.NewStyle().Width(48).Render(a.locale.T("confirm.close_body")),
		"",
		a.theme.MutedStyle.Render(a.locale.T("confirm.close_hint")),
	}, "\n")
}

func (a App) renderSettings() string {
	lines := []string{a.theme.DialogTitleStyle.Render(a.locale.T("settings.title")), ""}
	for i, item := range settingsItems {
		style := a.theme.MenuItemStyle
		if i == a.menuCursor {
			style = a.theme.MenuSelectedStyle
		}
		lines = append(lines, style.Render(a.locale.T(item.key)))
	}
	return strings.Join(lines, "\n")
}

func (a App) renderStatusBar(width int) string {
	var left string
	tab, ok := a.manager.Tab(a.boundID)
	switch {
	case a.status != "" && a.statusErr:
		left = a.theme.ErrorStyle.Render(a.status)
	case a.status != "":
		left = a.status
	case ok && tab.SaveErr != "":
		left = a.theme.ErrorStyle.Render(a.locale.T("status.save_failed", tab.SaveErr))
	case ok && tab.HasUnsavedChanges:
		left = a.locale.T("status.unsaved")
	case ok:
		left = a.theme.SuccessStyle.Render(a.locale.T("status.saved"))
	}

	var right string
	if ok {
		s := a.counter.Compute(tab.Content)
		right = a.locale.T("status.stats", s.Words, s.Lines, s.Chars, s.Tokens)
	}

	left = " " + left
	right += " "
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return a.theme.StatusBarStyle.Width(width).Render(bar)
}

// Deps TUI 运行所需组件 / Deps are the components the TUI runs on
type Deps struct {
	Manager *tabs.Manager
	Stats   *stats.Counter
	// Inbox 可为空 / Inbox may be nil
	Inbox *inbox.Watcher
}

// Run 启动 Bubble Tea TUI，直到用户退出
// Run starts the Bubble Tea TUI and blocks until the user quits
func Run(ctx context.Context, deps Deps, opts Options) error {
	if deps.Manager == nil {
		return fmt.Errorf("tui: manager is nil")
	}
	app := NewApp(ctx, deps.Manager, deps.Stats, opts)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	// 回调可能在 Update 内同步触发，Send 必须异步
	// callbacks may fire synchronously inside Update, so Send must not block it
	deps.Manager.SetOnChange(func() { go p.Send(ManagerChangedMsg{}) })
	defer deps.Manager.SetOnChange(nil)
	if deps.Inbox != nil {
		deps.Inbox.SetOnImport(func(tab tabs.Tab, _ string) { go p.Send(InboxImportedMsg{Title: tab.DisplayTitle()}) })
		defer deps.Inbox.SetOnImport(nil)
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
