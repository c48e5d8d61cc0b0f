package tui

import "strings"

// pageLayout splits the window into the document column on the left and the
// findings/chat/context stack on the right.
type pageLayout struct {
	windowWidth  int
	windowHeight int

	documentWidth  int
	documentHeight int
	sideWidth      int
	findingsHeight int
	chatHeight     int
	contextHeight  int
	composerHeight int
}

func newPageLayout() pageLayout {
	return pageLayout{
		documentWidth:  80,
		documentHeight: 20,
		sideWidth:      44,
		findingsHeight: 12,
		chatHeight:     10,
		contextHeight:  6,
		composerHeight: 1,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height

	inner := width - viewportHorizontalPadding
	if inner < 2*minViewportWidth {
		inner = 2 * minViewportWidth
	}
	l.documentWidth = inner * 3 / 5
	if l.documentWidth < minViewportWidth {
		l.documentWidth = minViewportWidth
	}
	l.sideWidth = inner - l.documentWidth
	if l.sideWidth < minViewportWidth {
		l.sideWidth = minViewportWidth
	}

	l.composerHeight = 1
	const chrome = 9
	usable := height - chrome - l.composerHeight
	if usable < 18 {
		usable = 18
	}
	l.documentHeight = usable
	l.findingsHeight = usable * 2 / 5
	if l.findingsHeight < 6 {
		l.findingsHeight = 6
	}
	l.chatHeight = usable * 2 / 5
	if l.chatHeight < 5 {
		l.chatHeight = 5
	}
	l.contextHeight = usable - l.findingsHeight - l.chatHeight
	if l.contextHeight < 4 {
		l.contextHeight = 4
	}
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}
