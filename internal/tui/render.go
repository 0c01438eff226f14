package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"tabnotes/internal/tabs"
)

// MaxTabTitleWidth 标签标题最大显示宽度（终端单元格）
// MaxTabTitleWidth is the widest a tab title may render, in terminal cells
const MaxTabTitleWidth = 20

// RenderMarkdown 使用 Glamour 渲染 markdown 文本
// RenderMarkdown renders markdown text using Glamour
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

// TruncateTitle 按显示宽度截断标题，CJK 字符占两格
// TruncateTitle cuts a title to width display cells; wide runes count as two
func TruncateTitle(title string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(title, width, "…")
}

// renderTab 渲染单个标签：标题、未保存标记、失败标记与关闭按钮
// renderTab renders one tab label with its dirty/failed markers and close mark
func renderTab(tab tabs.Tab, active, closable bool, theme Theme) string {
	label := TruncateTitle(tab.DisplayTitle(), MaxTabTitleWidth)
	if tab.SaveErr != "" {
		label += " " + theme.ErrorStyle.Render("!")
	} else if tab.HasUnsavedChanges {
		label += " " + theme.DirtyMarkStyle.Render("●")
	}
	if closable {
		label += " " + theme.CloseMarkStyle.Render("×")
	}
	if active {
		return theme.ActiveTabStyle.Render(label)
	}
	return theme.InactiveTabStyle.Render(label)
}

// RenderTabStrip 渲染标签栏；超出宽度时从左侧隐藏标签，保证当前标签可见。
// 只有一个标签时不显示关闭按钮。
// RenderTabStrip renders the tab bar. When it overflows, tabs are hidden from the
// left so the active tab stays visible. The close mark only shows with more than
// one tab.
func RenderTabStrip(list []tabs.Tab, activeID string, width int, theme Theme) string {
	if len(list) == 0 {
		return ""
	}
	closable := len(list) > 1
	parts := make([]string, len(list))
	activeIdx := 0
	for i, tab := range list {
		active := tab.ID == activeID
		if active {
			activeIdx = i
		}
		parts[i] = renderTab(tab, active, closable, theme)
	}

	// 被隐藏时左侧留 1 格给 "‹" / one cell is kept for the "‹" marker once tabs are hidden
	overflows := func(start int) bool {
		w := lipgloss.Width(strings.Join(parts[start:activeIdx+1], ""))
		if start > 0 {
			w++
		}
		return w > width
	}
	start := 0
	if width > 0 {
		for start < activeIdx && overflows(start) {
			start++
		}
	}
	visible := parts[start:]
	if start > 0 {
		visible = append([]string{theme.MutedStyle.Render("‹")}, visible...)
	}
	strip := lipgloss.JoinHorizontal(lipgloss.Top, visible...)
	if width > 0 && lipgloss.Width(strip) > width {
		strip = lipgloss.NewStyle().MaxWidth(width).Render(strip)
	}
	return strip
}
