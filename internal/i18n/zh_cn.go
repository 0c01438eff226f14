package i18n

// ZhCNMessages 简体中文消息目录
// ZhCNMessages Simplified Chinese message catalog
var ZhCNMessages = map[string]string{
	// TUI - 编辑器
	"editor.title_placeholder":   "无标题",
	"editor.content_placeholder": "开始书写...",
	"editor.empty":               "没有打开的标签页，按 %s 新建。",
	"tab.untitled":               "无标题",

	// TUI - 状态栏
	"status.saved":         "已保存",
	"status.unsaved":       "有未保存的修改",
	"status.save_failed":   "保存失败，将重试：%s",
	"status.stats":         "%d 词 · %d 行 · %d 字符 · %d tokens",
	"status.exported":      "已导出到 %s",
	"status.export_failed": "导出失败：%s",
	"status.imported":      "已导入 %q",
	"status.import_failed": "导入失败：%s",
	"status.inbox":         "已从收件箱导入 %q",
	"status.copied":        "已复制到剪贴板",
	"status.copy_failed":   "剪贴板不可用：%s",
	"status.last_tab":      "最后一个标签页不能关闭",
	"status.close_failed":  "关闭失败：%s",
	"status.preview_on":    "Markdown 预览已开启",
	"status.preview_off":   "Markdown 预览已关闭",

	// TUI - 关闭确认
	"confirm.close_title": "关闭标签页？",
	"confirm.close_body":  "确定要关闭此标签页吗？未保存的修改会自动保存。",
	"confirm.close_hint":  "y 关闭 · n 取消",

	// TUI - 设置菜单
	"settings.title":          "设置",
	"settings.import":         "导入笔记",
	"settings.export_current": "导出当前笔记",
	"settings.export_all":     "导出全部笔记",
	"settings.copy":           "复制到剪贴板",
	"settings.preview":        "切换预览",
	"prompt.import":           "导入文件：",

	// TUI - 帮助
	"help.short": "ctrl+t 新建 · ctrl+w 关闭 · ctrl+←/→ 切换 · ctrl+shift+←/→ 移动 · tab 焦点 · ctrl+s 保存 · ctrl+r 预览 · ctrl+g 设置 · ctrl+q 退出",

	// REPL
	"repl.welcome":         "tabnotes：已打开 %d 个标签页。输入 /help 查看命令。",
	"repl.unknown_command": "未知命令：%s（输入 /help）",
	"repl.usage":           "用法：%s",
	"repl.no_active":       "没有当前标签页",
	"repl.created":         "已新建标签页 %s",
	"repl.switched":        "已切换到 %s",
	"repl.closed":          "已关闭 %s",
	"repl.moved":           "已将标签页 %d 移动到 %d",
	"repl.saved":           "已保存 %s",
	"repl.updated":         "已更新 %s",
	"repl.notes_empty":     "没有已保存的笔记",
	"repl.lang_set":        "语言已切换为 %s",
	"repl.bye":             "再见。",

	// 错误
	"error.not_found": "未找到：%s",
	"error.generic":   "错误：%s",
}
