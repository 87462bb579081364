package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.bytecodealliance.org/wit"
	"golang.org/x/term"

	"github.com/wippyai/com-runtime/gen"
	"github.com/wippyai/com-runtime/header"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	ifaceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	offsetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD580"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browserModel struct {
	err      error
	model    *gen.Model
	filename string
	opts     header.Options
	target   gen.Target
	ifaces   []ifaceInfo
	visible  []int
	filter   textinput.Model
	selected int
	state    browserState
}

type ifaceInfo struct {
	iface *gen.Interface
	name  string
	slots []slotInfo
}

type slotInfo struct {
	slot   gen.Slot
	result string
	params []paramInfo
}

type paramInfo struct {
	name    string
	typeStr string
}

type browserState int

const (
	stateSelectIface browserState = iota
	stateShowSlots
)

func newBrowserModel(filename string, opts header.Options, target gen.Target) *browserModel {
	ti := textinput.New()
	ti.Placeholder = "filter"
	ti.Prompt = "/ "
	ti.Width = 40
	ti.Focus()
	return &browserModel{
		filename: filename,
		opts:     opts,
		target:   target,
		filter:   ti,
		state:    stateSelectIface,
	}
}

type loadedMsg struct {
	err    error
	model  *gen.Model
	ifaces []ifaceInfo
}

func (m *browserModel) Init() tea.Cmd {
	return tea.Batch(m.loadHeader, textinput.Blink)
}

func (m *browserModel) loadHeader() tea.Msg {
	ns, err := header.ParseFile(m.filename, m.opts)
	if err != nil {
		return loadedMsg{err: err}
	}
	model, err := gen.Build(ns, m.target)
	if err != nil {
		return loadedMsg{err: err}
	}

	var ifaces []ifaceInfo
	for _, i := range model.Interfaces {
		ifaces = append(ifaces, ifaceInfo{
			iface: i,
			name:  qualifiedName(i),
			slots: describeSlots(i, m.target),
		})
	}
	return loadedMsg{model: model, ifaces: ifaces}
}

// describeSlots pairs the slots of i with their header signatures.
func describeSlots(i *gen.Interface, target gen.Target) []slotInfo {
	var chain []*gen.Interface
	for c := i; c != nil; c = c.Base {
		chain = append(chain, c)
	}
	var methods []header.Method
	for k := len(chain) - 1; k >= 0; k-- {
		declared := chain[k].Record.VirtualMethods
		if len(chain[k].Record.Bases) == 0 && len(declared) >= 3 {
			methods = append(methods, declared[:3]...)
			declared = declared[3:]
		}
		methods = append(methods, declared...)
	}

	// Roots mapped onto comruntime.IUnknown contribute no header methods, so
	// the declared methods align with the tail of the slot list.
	slots := i.Slots(target)
	skip := len(slots) - len(methods)
	out := make([]slotInfo, len(slots))
	for n, s := range slots {
		out[n].slot = s
		if n >= skip {
			out[n].result, out[n].params = describeMethod(methods[n-skip], target)
		}
	}
	return out
}

func describeMethod(hm header.Method, target gen.Target) (string, []paramInfo) {
	result := ""
	if !hm.Result.IsVoid() {
		result = typeLabel(hm.Result, target)
	}
	params := make([]paramInfo, len(hm.Arguments))
	for n, a := range hm.Arguments {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", n)
		}
		params[n] = paramInfo{name: name, typeStr: typeLabel(a.Type, target)}
	}
	return result, params
}

// typeLabel names scalars by their portable width and everything else by
// its C spelling.
func typeLabel(t header.Type, target gen.Target) string {
	long := target.LongSize
	if long == 0 {
		long = gen.HostTarget().LongSize
	}
	if w, ok := t.WithLong(long).Primitive(); ok {
		return witTypeStr(w)
	}
	return t.String()
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state == stateShowSlots || m.err != nil {
				return m, tea.Quit
			}

		case "up":
			if m.state == stateSelectIface && m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down":
			if m.state == stateSelectIface && m.selected < len(m.visible)-1 {
				m.selected++
			}
			return m, nil

		case "enter":
			switch m.state {
			case stateSelectIface:
				if len(m.visible) > 0 {
					m.state = stateShowSlots
					m.filter.Blur()
				}
			case stateShowSlots:
				m.state = stateSelectIface
				m.filter.Focus()
			}
			return m, nil

		case "esc":
			switch m.state {
			case stateShowSlots:
				m.state = stateSelectIface
				m.filter.Focus()
			case stateSelectIface:
				m.filter.SetValue("")
				m.applyFilter()
			}
			return m, nil
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.model = msg.model
		m.ifaces = msg.ifaces
		m.applyFilter()
		return m, nil
	}

	if m.state == stateSelectIface {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}
	return m, nil
}

func (m *browserModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for n, i := range m.ifaces {
		if needle == "" || strings.Contains(strings.ToLower(i.name), needle) {
			m.visible = append(m.visible, n)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *browserModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.model == nil {
		return "Parsing header..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("COM Bindings"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectIface:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("no interfaces match"))
			b.WriteString("\n")
		}
		for n, idx := range m.visible {
			line := m.formatIface(m.ifaces[idx])
			if n == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(fmt.Sprintf("%d interfaces, %d records • ↑/↓ select • enter slots • esc clear • ctrl+c quit",
			len(m.ifaces), len(m.model.Structs))))

	case stateShowSlots:
		info := m.ifaces[m.visible[m.selected]]
		b.WriteString(fmt.Sprintf("%s {%s}\n\n", ifaceStyle.Render(info.name), info.iface.IID))
		for _, s := range info.slots {
			b.WriteString(offsetStyle.Render(fmt.Sprintf("[%2d] +%-4d", s.slot.Index, s.slot.Offset)))
			b.WriteString(" ")
			b.WriteString(m.formatSlot(s))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
	}

	return b.String()
}

func (m *browserModel) formatIface(i ifaceInfo) string {
	base := "IUnknown"
	if i.iface.Base != nil {
		base = i.iface.Base.CName
	}
	return ifaceStyle.Render(i.name) + " : " + typeStyle.Render(base) +
		fmt.Sprintf(" (%d slots)", len(i.slots))
}

func (m *browserModel) formatSlot(s slotInfo) string {
	var params []string
	for _, p := range s.params {
		params = append(params, p.name+": "+typeStyle.Render(p.typeStr))
	}
	result := ""
	if s.result != "" {
		result = " -> " + typeStyle.Render(s.result)
	}
	return s.slot.Owner + "::" + ifaceStyle.Render(s.slot.Name) + "(" + strings.Join(params, ", ") + ")" + result
}

func witTypeStr(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	default:
		return fmt.Sprintf("%T", t)
	}
}

func runInteractive(filename string, opts header.Options, target gen.Target) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("interactive mode needs a terminal; use -list instead")
	}
	p := tea.NewProgram(newBrowserModel(filename, opts, target), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
