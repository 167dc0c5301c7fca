package terminal

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fjod/go_pos/internal/domain"
)

type lookupDoneMsg LookupOutcome

type submitDoneMsg SubmitOutcome

// Model is the bubbletea front end over a Session.
type Model struct {
	ctx      context.Context
	session  *Session
	code     string
	selected int
}

func NewModel(ctx context.Context, session *Session) Model {
	return Model{ctx: ctx, session: session}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case lookupDoneMsg:
		m.session.ApplyLookup(LookupOutcome(msg))
	case submitDoneMsg:
		m.session.ApplySubmit(SubmitOutcome(msg))
		m.clampSelection()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "enter":
		return m, m.lookupCmd(m.session.BeginLookup(m.code))
	case "tab":
		if added, _ := m.session.AddDisplayed(); added {
			m.code = ""
			m.selected = len(m.session.Lines()) - 1
		}
	case "up":
		if m.selected > 0 {
			m.selected--
		}
	case "down":
		if m.selected < len(m.session.Lines())-1 {
			m.selected++
		}
	case "right":
		m.changeQuantity(1)
	case "left":
		m.changeQuantity(-1)
	case "delete":
		if err := m.session.Remove(m.selected); err == nil {
			m.clampSelection()
		}
	case "ctrl+p":
		t, err := m.session.BeginSubmit()
		if err != nil {
			return m, nil
		}
		return m, m.submitCmd(t)
	case "backspace":
		if r := []rune(m.code); len(r) > 0 {
			m.code = string(r[:len(r)-1])
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.code += string(msg.Runes)
		}
	}
	return m, nil
}

func (m *Model) changeQuantity(delta int) {
	lines := m.session.Lines()
	if m.selected < 0 || m.selected >= len(lines) {
		return
	}
	_, _ = m.session.UpdateQuantity(m.selected, lines[m.selected].Quantity+delta)
}

func (m *Model) clampSelection() {
	n := len(m.session.Lines())
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m Model) lookupCmd(t LookupTicket) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		return lookupDoneMsg(s.ResolveLookup(ctx, t))
	}
}

func (m Model) submitCmd(t SubmitTicket) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		return submitDoneMsg(s.Submit(ctx, t))
	}
}

func (m Model) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "Tech POS")
	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "商品コード: %s_\n", m.code)
	if e := m.session.Error(); e != "" {
		fmt.Fprintf(b, "! %s\n", e)
	}
	if n := m.session.Notice(); n != "" {
		fmt.Fprintf(b, "✓ %s\n", n)
	}
	if m.session.Submitting() {
		fmt.Fprintln(b, "... 送信中")
	}

	if p, ok := m.session.Displayed(); ok {
		fmt.Fprintln(b, "")
		fmt.Fprintln(b, "商品情報")
		fmt.Fprintf(b, "  %s  (商品コード: %s)  %s円\n", p.Name, p.Code, FormatYen(p.Price))
		fmt.Fprintln(b, "  [tab] カートに追加")
	}

	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "購入リスト")
	lines := m.session.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(b, "  商品を追加してください")
	}
	for i, l := range lines {
		fmt.Fprintln(b, renderLine(l, i == m.selected))
	}
	if len(lines) > 0 {
		fmt.Fprintf(b, "合計金額: %s円\n", FormatYen(m.session.Total()))
	}

	fmt.Fprintln(b, "\nenter: 読み込み  tab: 追加  up/down: 選択  left/right: 数量  delete: 削除  ctrl+p: 購入する  esc: 終了")
	return b.String()
}

func renderLine(l domain.CartLine, selected bool) string {
	marker := " "
	if selected {
		marker = ">"
	}
	return fmt.Sprintf(" %s %s  単価: %s円  x%d  %s円", marker, l.Name, FormatYen(l.Price), l.Quantity, FormatYen(l.Subtotal()))
}
