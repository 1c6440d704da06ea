package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookcraft-cli/internal/dnd"
	"bookcraft-cli/internal/editor"
	"bookcraft-cli/internal/logger"
	"bookcraft-cli/internal/model"
	"bookcraft-cli/internal/presence"
	"bookcraft-cli/internal/state"
	"bookcraft-cli/internal/widget"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const requestTimeout = 20 * time.Second

type pane int

const (
	paneBlocks pane = iota
	paneWidgets
)

type (
	alertsMsg   struct{}
	presenceMsg presence.Change

	swapDoneMsg struct {
		swap dnd.Swap
		err  error
	}
	opDoneMsg struct {
		op      string
		focusID string
		err     error
	}
)

type keyMap struct {
	Quit     key.Binding
	Tab      key.Binding
	Move     key.Binding
	Drop     key.Binding
	Cancel   key.Binding
	NewBlock key.Binding
	AddText  key.Binding
	Edit     key.Binding
	Delete   key.Binding
	Flush    key.Binding
	Reload   key.Binding
	Dismiss  key.Binding
	Help     key.Binding
	Preview  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "blocks/widgets")),
		Move:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move block")),
		Drop:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop/edit")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		NewBlock: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new block")),
		AddText:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add text widget")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Flush:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save now")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Dismiss:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss alert")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Preview:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview")),
	}
}

// Config wires the editor to an already loaded session.
type Config struct {
	Session      *editor.Session
	Presence     *presence.Client
	Alerts       *state.Alerts
	Selection    *state.Store[state.Selection, state.SelectionAction]
	Modal        *state.Store[state.Modal, state.ModalAction]
	ChapterTitle string
	Preview      bool
	Profile      string
	Logger       *logger.Logger
}

type appModel struct {
	sess   *editor.Session
	pres   *presence.Client
	alerts *state.Alerts
	sel    *state.Store[state.Selection, state.SelectionAction]
	modal  *state.Store[state.Modal, state.ModalAction]
	log    *logger.Logger
	sensor *dnd.Sensor
	keys   keyMap

	title   string
	preview bool

	width  int
	height int

	focus   pane
	blocks  list.Model
	widgets list.Model

	textarea    textarea.Model
	editingID   string
	editingType model.WidgetType

	layoutIdx int
	status    string
	busy      bool
}

func newAppModel(cfg Config) appModel {
	if cfg.Alerts == nil {
		cfg.Alerts = state.NewAlerts()
	}
	if cfg.Selection == nil {
		cfg.Selection = state.NewSelection()
	}
	if cfg.Modal == nil {
		cfg.Modal = state.NewModal()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	ta := textarea.New()
	ta.Placeholder = "Write…"
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetWidth(60)
	ta.SetHeight(10)

	m := appModel{
		sess:    cfg.Session,
		pres:    cfg.Presence,
		alerts:  cfg.Alerts,
		sel:     cfg.Selection,
		modal:   cfg.Modal,
		log:     cfg.Logger.With("component", "tui"),
		sensor:  dnd.NewSensor(),
		keys:    defaultKeys(),
		title:   cfg.ChapterTitle,
		preview: cfg.Preview,
		width:   100,
		height:  30,
		blocks:  newRowList(),
		widgets: newRowList(),

		textarea: ta,
	}
	m.sel.Dispatch(state.SelectionAction{Kind: state.SelectChapter, ID: m.sess.ChapterID()})
	m.refresh()
	m.resize()
	return m
}

func (m appModel) Init() tea.Cmd { return nil }

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case presenceMsg:
		m.refresh()
		return m, nil

	case alertsMsg:
		return m, nil

	case swapDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.alerts.Push(state.LevelError, "Reorder failed; order restored: "+msg.err.Error())
		} else {
			m.status = "Order saved"
		}
		m.refresh()
		selectByID(&m.blocks, msg.swap.From)
		m.syncSelection()
		return m, nil

	case opDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.alerts.Push(state.LevelError, msg.op+" failed: "+msg.err.Error())
		} else {
			m.status = msg.op + " done"
		}
		m.refresh()
		if msg.focusID != "" {
			if !selectByID(&m.blocks, msg.focusID) {
				selectByID(&m.widgets, msg.focusID)
			}
		}
		m.syncSelection()
		return m, nil

	case tea.KeyMsg:
		if m.modal.Get().Open() {
			return m.updateModal(msg)
		}
		if m.editingID != "" {
			return m.updateEditing(msg)
		}
		if m.sensor.Dragging() {
			return m.updateMoving(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m appModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Tab):
		if m.focus == paneBlocks {
			m.focus = paneWidgets
		} else {
			m.focus = paneBlocks
		}
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.modal.Dispatch(state.ModalAction{Kind: state.ModalHelp})
		return m, nil
	case key.Matches(msg, m.keys.Dismiss):
		if a, ok := m.alerts.Latest(); ok {
			m.alerts.Dismiss(a.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Preview):
		m.preview = !m.preview
		return m, nil
	case key.Matches(msg, m.keys.Flush):
		n := m.sess.Flush()
		m.status = fmt.Sprintf("Sent %s", plural(n, "pending edit"))
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m, m.reloadCmd()
	case key.Matches(msg, m.keys.NewBlock):
		m.layoutIdx = 0
		m.modal.Dispatch(state.ModalAction{Kind: state.ModalNewBlock})
		return m, nil
	}

	if m.focus == paneBlocks {
		switch {
		case key.Matches(msg, m.keys.Move):
			if id := m.selectedBlockID(); id != "" && m.sensor.Pick(id) {
				m.status = "Moving: pick a target and press enter"
				m.refresh()
			}
			return m, nil
		case key.Matches(msg, m.keys.AddText):
			return m, m.addTextCmd(m.selectedBlockID())
		case key.Matches(msg, m.keys.Delete):
			if id := m.selectedBlockID(); id != "" {
				m.modal.Dispatch(state.ModalAction{Kind: state.ModalConfirmDelete, Payload: "block:" + id})
			}
			return m, nil
		case key.Matches(msg, m.keys.Drop):
			m.focus = paneWidgets
			return m, nil
		}
		var cmd tea.Cmd
		m.blocks, cmd = m.blocks.Update(msg)
		m.syncSelection()
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Drop):
		return m.startEditing()
	case key.Matches(msg, m.keys.Delete):
		if id := m.selectedWidgetID(); id != "" {
			m.modal.Dispatch(state.ModalAction{Kind: state.ModalConfirmDelete, Payload: "widget:" + id})
		}
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		m.focus = paneBlocks
		return m, nil
	}
	var cmd tea.Cmd
	m.widgets, cmd = m.widgets.Update(msg)
	m.syncSelection()
	return m, cmd
}

// updateMoving drives a keyboard drag: the cursor picks the drop target.
func (m appModel) updateMoving(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.sensor.Cancel()
		m.status = "Move cancelled"
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Drop):
		sw, ok := m.sensor.Drop()
		m.refresh()
		if !ok {
			m.status = "Dropped in place"
			return m, nil
		}
		m.busy = true
		m.status = "Saving order…"
		return m, m.swapCmd(sw)
	case key.Matches(msg, m.keys.Quit):
		m.sensor.Cancel()
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.blocks, cmd = m.blocks.Update(msg)
	m.sensor.Over(m.selectedBlockID())
	m.refresh()
	return m, cmd
}

func (m appModel) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	md := m.modal.Get()
	closeModal := func() { m.modal.Dispatch(state.ModalAction{}) }

	switch md.Kind {
	case state.ModalNewBlock:
		layouts := model.Layouts()
		switch msg.String() {
		case "left", "h", "up", "k":
			m.layoutIdx = (m.layoutIdx + len(layouts) - 1) % len(layouts)
		case "right", "l", "down", "j", "tab":
			m.layoutIdx = (m.layoutIdx + 1) % len(layouts)
		case "enter":
			closeModal()
			m.busy = true
			return m, m.createBlockCmd(layouts[m.layoutIdx])
		case "esc", "q":
			closeModal()
		}
		return m, nil

	case state.ModalConfirmDelete:
		switch msg.String() {
		case "y", "enter":
			closeModal()
			kind, id, _ := strings.Cut(md.Payload, ":")
			m.busy = true
			return m, m.deleteCmd(kind, id)
		case "n", "esc", "q":
			closeModal()
		}
		return m, nil

	default:
		closeModal()
		return m, nil
	}
}

func (m appModel) startEditing() (tea.Model, tea.Cmd) {
	w, ok := m.sess.Widget(m.selectedWidgetID())
	if !ok {
		return m, nil
	}
	p, err := widget.Decode(w.Type, w.Data)
	if err != nil {
		m.alerts.Push(state.LevelWarning, "Cannot edit widget: "+err.Error())
		return m, nil
	}
	text, ok := widget.EditableText(p)
	if !ok {
		m.status = fmt.Sprintf("%s widgets are edited with `bookcraft widgets update`", w.Type)
		return m, nil
	}
	m.editingID = w.ID
	m.editingType = w.Type
	m.textarea.SetValue(text)
	m.status = "Editing: changes save automatically, esc to finish"
	return m, m.textarea.Focus()
}

// updateEditing forwards keys to the textarea and schedules a debounced save
// whenever the text changes.
func (m appModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Cancel) {
		m.textarea.Blur()
		m.editingID = ""
		m.status = ""
		m.refresh()
		return m, nil
	}
	before := m.textarea.Value()
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	after := m.textarea.Value()
	if after == before {
		return m, cmd
	}

	w, ok := m.sess.Widget(m.editingID)
	if !ok {
		m.editingID = ""
		m.alerts.Push(state.LevelWarning, "Widget no longer exists")
		return m, cmd
	}
	p, err := widget.Decode(w.Type, w.Data)
	if err == nil {
		p, err = widget.WithText(p, after)
	}
	if err == nil {
		err = m.sess.UpdateWidgetPayload(w.ID, p)
	}
	if err != nil {
		m.status = "Not saved: " + err.Error()
	} else {
		m.status = fmt.Sprintf("Editing (%s pending)", plural(m.sess.PendingWrites(), "write"))
	}
	return m, cmd
}

func (m *appModel) refresh() {
	blockID := m.sel.Get().BlockID
	widgetID := m.sel.Get().WidgetID
	if m.sensor.Dragging() {
		blockID = m.selectedBlockID()
	}

	chapterID := m.sess.ChapterID()
	var others map[string][]presence.Occupant
	if m.pres != nil {
		others = map[string][]presence.Occupant{}
		for _, o := range m.pres.Others(chapterID) {
			others[o.BlockID] = append(others[o.BlockID], o)
		}
	}

	ov := m.sensor.Overlay()
	target := m.sensor.Target()
	blocks := m.sess.Blocks()
	items := make([]list.Item, 0, len(blocks))
	for i, b := range blocks {
		items = append(items, blockItem{
			block:  b,
			pos:    i,
			others: others[b.ID],
			moving: ov.Active && ov.ID == b.ID,
			target: ov.Active && target == b.ID && target != ov.ID,
		})
	}
	m.blocks.SetItems(items)
	if !selectByID(&m.blocks, blockID) && len(items) > 0 && m.blocks.Index() >= len(items) {
		m.blocks.Select(len(items) - 1)
	}

	var witems []list.Item
	if b, ok := m.sess.Block(m.selectedBlockID()); ok {
		for _, w := range b.Widgets {
			witems = append(witems, widgetItem{widget: w})
		}
	}
	m.widgets.SetItems(witems)
	selectByID(&m.widgets, widgetID)
	m.syncSelection()
}

// syncSelection mirrors list cursors into the selection store and tells
// other editors which block this session is on.
func (m *appModel) syncSelection() {
	prev := m.sel.Get()
	blockID := m.selectedBlockID()
	if blockID != prev.BlockID {
		m.sel.Dispatch(state.SelectionAction{Kind: state.SelectBlock, ID: blockID})
		if m.pres != nil && blockID != "" {
			if err := m.pres.Focus(m.sess.ChapterID(), blockID); err != nil {
				m.log.Debug("presence focus failed", "error", err)
			}
		}
		var witems []list.Item
		if b, ok := m.sess.Block(blockID); ok {
			for _, w := range b.Widgets {
				witems = append(witems, widgetItem{widget: w})
			}
		}
		m.widgets.SetItems(witems)
		m.widgets.Select(0)
	}
	m.sel.Dispatch(state.SelectionAction{Kind: state.SelectWidget, ID: m.selectedWidgetID()})
}

func (m appModel) selectedBlockID() string {
	if it, ok := m.blocks.SelectedItem().(blockItem); ok {
		return it.block.ID
	}
	return ""
}

func (m appModel) selectedWidgetID() string {
	if it, ok := m.widgets.SelectedItem().(widgetItem); ok {
		return it.widget.ID
	}
	return ""
}

func (m *appModel) resize() {
	bodyH := max(m.height-4, 6)
	lw := max(m.width*2/5, 30)
	m.blocks.SetSize(lw, bodyH/2)
	m.widgets.SetSize(lw, bodyH-bodyH/2-1)
	m.textarea.SetWidth(max(m.width-lw-3, 20))
	m.textarea.SetHeight(max(bodyH-2, 3))
}

func (m appModel) swapCmd(sw dnd.Swap) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return swapDoneMsg{swap: sw, err: sess.SwapBlocks(ctx, sw.From, sw.To)}
	}
}

func (m appModel) createBlockCmd(layout model.LayoutType) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		b, err := sess.CreateBlock(ctx, layout)
		msg := opDoneMsg{op: "Create block", err: err}
		if b != nil {
			msg.focusID = b.ID
		}
		return msg
	}
}

func (m appModel) addTextCmd(blockID string) tea.Cmd {
	if blockID == "" {
		return nil
	}
	sess := m.sess
	return func() tea.Msg {
		b, ok := sess.Block(blockID)
		if !ok {
			return opDoneMsg{op: "Add widget", err: editor.ErrUnknownBlock}
		}
		row, col, ok := freeSlot(b)
		if !ok {
			return opDoneMsg{op: "Add widget", err: fmt.Errorf("every slot of the %s layout is used", b.Layout)}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		w, err := sess.AddWidget(ctx, blockID, widget.Text{Markdown: "New text"}, row, col)
		msg := opDoneMsg{op: "Add widget", err: err}
		if w != nil {
			msg.focusID = w.ID
		}
		return msg
	}
}

func (m appModel) deleteCmd(kind, id string) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		switch kind {
		case "block":
			return opDoneMsg{op: "Delete block", err: sess.RemoveBlock(ctx, id)}
		default:
			return opDoneMsg{op: "Delete widget", err: sess.RemoveWidget(ctx, id)}
		}
	}
}

func (m appModel) reloadCmd() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return opDoneMsg{op: "Reload", err: sess.Load(ctx, sess.ChapterID())}
	}
}

// freeSlot returns the first (row, col) of b's layout without a widget.
func freeSlot(b model.Block) (int, int, bool) {
	used := map[[2]int]bool{}
	for _, w := range b.Widgets {
		used[[2]int{w.Row, w.Column}] = true
	}
	rows, cols := b.Layout.Slots()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !used[[2]int{r, c}] {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

func (m appModel) View() string {
	bodyH := max(m.height-4, 6)

	title := m.title
	if title == "" {
		title = m.sess.ChapterID()
	}
	header := lipgloss.NewStyle().Bold(true).Render("bookcraft · " + title)
	if m.pres != nil {
		if others := m.pres.Others(m.sess.ChapterID()); len(others) > 0 {
			header += lipgloss.NewStyle().Foreground(colors.presence).Render("  also editing: " + presence.Label(others))
		}
	}
	if ov := m.sensor.Overlay(); ov.Active {
		header += "  " + lipgloss.NewStyle().
			Foreground(colors.accentFg).
			Background(colors.accent).
			Padding(0, 1).
			Render("⇅ moving "+shortID(ov.ID)+" → "+shortID(m.sensor.Target()))
	}

	left := m.leftPane()
	right := m.rightPane(bodyH)
	body := splitPanes(left, right, m.width, bodyH)

	if md := m.modal.Get(); md.Open() {
		body = m.renderModal(md, bodyH)
	}

	return strings.Join([]string{header, body, m.alertLine(), m.footer()}, "\n")
}

func (m appModel) leftPane() string {
	heading := func(s string, active bool) string {
		st := lipgloss.NewStyle().Bold(true)
		if !active {
			st = styleMuted()
		}
		return st.Render(s)
	}
	return strings.Join([]string{
		heading("Blocks", m.focus == paneBlocks),
		m.blocks.View(),
		heading("Widgets", m.focus == paneWidgets),
		m.widgets.View(),
	}, "\n")
}

func (m appModel) rightPane(height int) string {
	if m.editingID != "" {
		return lipgloss.NewStyle().Bold(true).Render("Editing "+string(m.editingType)) + "\n" + m.textarea.View()
	}
	if !m.preview {
		return ""
	}
	w, ok := m.sess.Widget(m.selectedWidgetID())
	if !ok {
		return styleMuted().Render("No widget selected.")
	}
	p, err := widget.Decode(w.Type, w.Data)
	if err != nil {
		return styleMuted().Render("Invalid payload: " + err.Error())
	}
	width := max(m.width-max(m.width*2/5, 30)-1, 20)
	return RenderMarkdown(widget.Markdown(p), width)
}

func (m appModel) renderModal(md state.Modal, height int) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colors.accent).
		Padding(1, 2)

	var content string
	switch md.Kind {
	case state.ModalNewBlock:
		var opts []string
		for i, l := range model.Layouts() {
			label := " " + string(l) + " "
			if i == m.layoutIdx {
				label = lipgloss.NewStyle().Foreground(colors.selectedFg).Background(colors.selectedBg).Bold(true).Render(label)
			}
			opts = append(opts, label)
		}
		content = "New block layout\n\n" + strings.Join(opts, " ") + "\n\n" + styleMuted().Render("←/→ choose   enter create   esc cancel")
	case state.ModalConfirmDelete:
		kind, id, _ := strings.Cut(md.Payload, ":")
		content = fmt.Sprintf("Delete %s %s?\n\n%s", kind, shortID(id), styleMuted().Render("y confirm   n cancel"))
	case state.ModalHelp:
		var lines []string
		for _, b := range []key.Binding{m.keys.Tab, m.keys.Move, m.keys.Drop, m.keys.Cancel, m.keys.NewBlock, m.keys.AddText, m.keys.Edit, m.keys.Delete, m.keys.Flush, m.keys.Reload, m.keys.Preview, m.keys.Dismiss, m.keys.Quit} {
			h := b.Help()
			lines = append(lines, fmt.Sprintf("%-6s %s", h.Key, h.Desc))
		}
		content = "Keys\n\n" + strings.Join(lines, "\n")
	}
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, box.Render(content))
}

func (m appModel) alertLine() string {
	a, ok := m.alerts.Latest()
	if !ok {
		if m.status != "" {
			return styleMuted().Render(m.status)
		}
		return ""
	}
	c := colors.info
	switch a.Level {
	case state.LevelSuccess:
		c = colors.success
	case state.LevelWarning:
		c = colors.warning
	case state.LevelError:
		c = colors.danger
	}
	return fitLine(lipgloss.NewStyle().Foreground(c).Render(a.Message), m.width)
}

func (m appModel) footer() string {
	hint := "tab: pane  m: move  n: new block  a: add text  e: edit  d: delete  s: save  ?: help  q: quit"
	if m.sensor.Dragging() {
		hint = "↑/↓: target  enter: drop (swap)  esc: cancel"
	} else if m.editingID != "" {
		hint = "esc: finish editing"
	}
	if m.busy {
		hint = "working…  " + hint
	}
	return styleMuted().Render(fitLine(hint, m.width))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}
