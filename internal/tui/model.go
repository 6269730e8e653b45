package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cragr/snow-incident-console/internal/console"
	"github.com/cragr/snow-incident-console/internal/models"
)

// mode identifies which part of the screen receives keystrokes.
type mode int

const (
	// modeList means navigation keys move the incident cursor.
	modeList mode = iota
	// modeSearch means keystrokes go to the search input.
	modeSearch
	// modeCreate means the create dialog is shown.
	modeCreate
	// modeEdit means the edit dialog is shown.
	modeEdit
	// modeConfirmDelete means the delete confirmation is shown.
	modeConfirmDelete
)

// Dialog field indexes.
const (
	fieldDescription = iota
	fieldImpact
	fieldUrgency
	createFieldCount
)

const (
	editFieldDescription = iota
	editFieldState
	editFieldImpact
	editFieldUrgency
	editFieldCount
)

// refreshedMsg is delivered when a store refresh completes, whether
// started by the model or by a workflow.
type refreshedMsg struct {
	err error
}

// RefreshedMsg wraps a refresh result for delivery through
// tea.Program.Send, for refreshes the workflows run on their own
// goroutines (the delayed refresh after a create).
func RefreshedMsg(err error) tea.Msg {
	return refreshedMsg{err: err}
}

// mutationResultMsg is sent when an asynchronous workflow call completes.
type mutationResultMsg struct {
	op      console.Operation
	deleted bool
	err     error
}

// Model is the top-level bubbletea model for the incident console.
type Model struct {
	console *console.Console
	store   *console.Store
	session console.Session
	theme   Theme
	keys    KeyMap

	width  int
	height int

	mode mode

	search      textinput.Model
	searchField console.SearchField
	cursor      int

	create      *console.CreateDialog
	edit        *console.EditDialog
	description textinput.Model
	focus       int

	pendingDelete models.Incident

	status        string
	statusIsError bool
	loading       bool
}

// New creates the console model.
func New(c *console.Console, session console.Session) Model {
	search := textinput.New()
	search.Prompt = ""
	search.Placeholder = "type to filter"

	description := textinput.New()
	description.Prompt = ""
	description.Placeholder = "Short description"
	description.CharLimit = 160

	return Model{
		console:     c,
		store:       c.Store(),
		session:     session,
		theme:       DefaultTheme,
		keys:        DefaultKeyMap,
		search:      search,
		searchField: console.FieldNumber,
		create:      console.NewCreateDialog(),
		edit:        console.NewEditDialog(),
		description: description,
		loading:     session.Authenticated(),
	}
}

// Init starts the initial fetch when the session is authenticated.
func (model Model) Init() tea.Cmd {
	if !model.session.Authenticated() {
		return nil
	}
	return model.refreshCmd()
}

func (model Model) refreshCmd() tea.Cmd {
	store := model.store
	return func() tea.Msg {
		return refreshedMsg{err: store.Refresh(context.Background())}
	}
}

// visible derives the displayed subset from the store on every call.
func (model Model) visible() []models.Incident {
	return console.Filter(model.store.Snapshot(), model.search.Value(), model.searchField)
}

func (model Model) selected() (models.Incident, bool) {
	incidents := model.visible()
	if model.cursor < 0 || model.cursor >= len(incidents) {
		return models.Incident{}, false
	}
	return incidents[model.cursor], true
}

func (model *Model) clampCursor() {
	count := len(model.visible())
	if model.cursor >= count {
		model.cursor = count - 1
	}
	if model.cursor < 0 {
		model.cursor = 0
	}
}

func (model *Model) setStatus(text string, isError bool) {
	model.status = text
	model.statusIsError = isError
}

// Update handles messages.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		return model, nil

	case refreshedMsg:
		model.loading = false
		if message.err != nil {
			model.setStatus(console.UserMessage(console.OpList, message.err), true)
		}
		model.clampCursor()
		return model, nil

	case mutationResultMsg:
		return model.handleMutationResult(message)

	case tea.KeyMsg:
		switch model.mode {
		case modeSearch:
			return model.updateSearch(message)
		case modeCreate:
			return model.updateCreate(message)
		case modeEdit:
			return model.updateEdit(message)
		case modeConfirmDelete:
			return model.updateConfirmDelete(message)
		default:
			return model.updateList(message)
		}
	}
	return model, nil
}

func (model Model) handleMutationResult(message mutationResultMsg) (tea.Model, tea.Cmd) {
	switch message.op {
	case console.OpCreate:
		model.create.Finish(message.err)
		if message.err == nil {
			model.mode = modeList
			model.description.Blur()
			model.setStatus("Incident created; list refreshes shortly", false)
		}
	case console.OpUpdate:
		model.edit.Finish(message.err)
		if message.err == nil {
			model.mode = modeList
			model.description.Blur()
			model.setStatus("Incident updated", false)
		}
	case console.OpDelete:
		if message.err != nil {
			model.setStatus(console.UserMessage(console.OpDelete, message.err), true)
		} else if message.deleted {
			model.setStatus("Incident deleted", false)
		}
	}
	model.clampCursor()
	return model, nil
}

func (model Model) updateList(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(message, model.keys.Quit) {
		return model, tea.Quit
	}
	if !model.session.Authenticated() {
		return model, nil
	}

	switch {
	case key.Matches(message, model.keys.Up):
		if model.cursor > 0 {
			model.cursor--
		}

	case key.Matches(message, model.keys.Down):
		if model.cursor < len(model.visible())-1 {
			model.cursor++
		}

	case key.Matches(message, model.keys.SearchActivate):
		model.mode = modeSearch
		return model, model.search.Focus()

	case key.Matches(message, model.keys.SearchField):
		model.searchField = model.searchField.Next()
		model.clampCursor()

	case key.Matches(message, model.keys.SearchClear):
		model.search.SetValue("")
		model.clampCursor()

	case key.Matches(message, model.keys.Create):
		model.create.Open(console.CreateDraft{})
		model.description.SetValue("")
		model.focus = fieldDescription
		model.mode = modeCreate
		return model, model.description.Focus()

	case key.Matches(message, model.keys.Edit):
		incident, ok := model.selected()
		if !ok {
			return model, nil
		}
		model.edit.Open(console.NewEditDraft(incident))
		model.description.SetValue(incident.ShortDescription)
		model.focus = editFieldDescription
		model.mode = modeEdit
		return model, model.description.Focus()

	case key.Matches(message, model.keys.Delete):
		incident, ok := model.selected()
		if !ok {
			return model, nil
		}
		model.pendingDelete = incident
		model.mode = modeConfirmDelete

	case key.Matches(message, model.keys.Refresh):
		model.loading = true
		return model, model.refreshCmd()
	}

	return model, nil
}

func (model Model) updateSearch(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyEsc:
		model.search.SetValue("")
		model.search.Blur()
		model.mode = modeList
		model.clampCursor()
		return model, nil
	case tea.KeyEnter:
		model.search.Blur()
		model.mode = modeList
		return model, nil
	}

	var cmd tea.Cmd
	model.search, cmd = model.search.Update(message)
	model.cursor = 0
	return model, cmd
}

func (model Model) updateCreate(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if model.create.State() == console.DialogSubmitting {
		return model, nil
	}

	switch {
	case key.Matches(message, model.keys.Cancel):
		model.create.Cancel()
		model.description.Blur()
		model.mode = modeList
		return model, nil

	case key.Matches(message, model.keys.Submit):
		model.create.Draft().ShortDescription = model.description.Value()
		draft, err := model.create.Begin()
		if err != nil {
			return model, nil
		}
		workflows := model.console
		return model, func() tea.Msg {
			_, err := workflows.Create(context.Background(), draft)
			return mutationResultMsg{op: console.OpCreate, err: err}
		}

	case key.Matches(message, model.keys.NextField), key.Matches(message, model.keys.PrevField):
		return model, model.moveFocus(message, createFieldCount)
	}

	draft := model.create.Draft()
	switch model.focus {
	case fieldDescription:
		var cmd tea.Cmd
		model.description, cmd = model.description.Update(message)
		draft.ShortDescription = model.description.Value()
		return model, cmd
	case fieldImpact:
		draft.Impact = cycleLevel(draft.Impact, model.direction(message))
	case fieldUrgency:
		draft.Urgency = cycleLevel(draft.Urgency, model.direction(message))
	}
	return model, nil
}

func (model Model) updateEdit(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if model.edit.State() == console.DialogSubmitting {
		return model, nil
	}

	switch {
	case key.Matches(message, model.keys.Cancel):
		model.edit.Cancel()
		model.description.Blur()
		model.mode = modeList
		return model, nil

	case key.Matches(message, model.keys.Submit):
		model.edit.Draft().ShortDescription = model.description.Value()
		draft, err := model.edit.Begin()
		if err != nil {
			return model, nil
		}
		workflows := model.console
		return model, func() tea.Msg {
			_, err := workflows.Edit(context.Background(), draft)
			return mutationResultMsg{op: console.OpUpdate, err: err}
		}

	case key.Matches(message, model.keys.NextField), key.Matches(message, model.keys.PrevField):
		return model, model.moveFocus(message, editFieldCount)
	}

	draft := model.edit.Draft()
	switch model.focus {
	case editFieldDescription:
		var cmd tea.Cmd
		model.description, cmd = model.description.Update(message)
		draft.ShortDescription = model.description.Value()
		return model, cmd
	case editFieldState:
		draft.State = cycleState(draft.State, model.direction(message))
	case editFieldImpact:
		draft.Impact = cycleLevel(draft.Impact, model.direction(message))
	case editFieldUrgency:
		draft.Urgency = cycleLevel(draft.Urgency, model.direction(message))
	}
	return model, nil
}

func (model Model) updateConfirmDelete(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Confirm):
		model.mode = modeList
		sysID := model.pendingDelete.SysID
		model.pendingDelete = models.Incident{}
		workflows := model.console
		return model, func() tea.Msg {
			// The modal already asked the question.
			answered := console.ConfirmFunc(func(string) bool { return true })
			deleted, err := workflows.Delete(context.Background(), sysID, answered)
			return mutationResultMsg{op: console.OpDelete, deleted: deleted, err: err}
		}

	case key.Matches(message, model.keys.Decline):
		model.mode = modeList
		model.pendingDelete = models.Incident{}
	}
	return model, nil
}

// moveFocus advances the dialog focus and moves the text cursor in or out
// of the description input.
func (model *Model) moveFocus(message tea.KeyMsg, count int) tea.Cmd {
	if key.Matches(message, model.keys.NextField) {
		model.focus = (model.focus + 1) % count
	} else {
		model.focus = (model.focus + count - 1) % count
	}
	if model.focus == 0 {
		return model.description.Focus()
	}
	model.description.Blur()
	return nil
}

// direction maps left/right to -1/+1 for select fields, 0 otherwise.
func (model Model) direction(message tea.KeyMsg) int {
	switch {
	case key.Matches(message, model.keys.Increase):
		return 1
	case key.Matches(message, model.keys.Decrease):
		return -1
	}
	return 0
}

// cycleLevel steps an impact or urgency value through 1..3. An unset
// value (0) starts at High going right and Low going left.
func cycleLevel(value, delta int) int {
	if delta == 0 {
		return value
	}
	if value == 0 {
		if delta > 0 {
			return models.LevelHigh
		}
		return models.LevelLow
	}
	span := models.LevelLow - models.LevelHigh + 1
	return ((value-models.LevelHigh+delta)%span+span)%span + models.LevelHigh
}

// cycleState steps through the state labels in workflow order.
func cycleState(state string, delta int) string {
	if delta == 0 {
		return state
	}
	index := -1
	for i, s := range models.States {
		if s == state {
			index = i
			break
		}
	}
	if index < 0 {
		return models.States[0]
	}
	count := len(models.States)
	return models.States[((index+delta)%count+count)%count]
}

// View renders the console.
func (model Model) View() string {
	header := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground).Render("Incident Records")

	if !model.session.Authenticated() {
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			"",
			"Please log in",
			model.helpLine("q quit"),
		)
	}

	var body string
	switch model.mode {
	case modeCreate:
		body = model.renderCreateDialog()
	case modeEdit:
		body = model.renderEditDialog()
	case modeConfirmDelete:
		body = model.renderConfirmDelete()
	default:
		body = model.renderList()
	}

	sections := []string{header, model.renderSearch(), "", body}
	if model.status != "" {
		color := model.theme.FaintText
		if model.statusIsError {
			color = model.theme.ErrorText
		}
		sections = append(sections, "", lipgloss.NewStyle().Foreground(color).Render(model.status))
	}
	sections = append(sections, model.helpLine("n new · e edit · d delete · / search · tab field · r refresh · q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model Model) helpLine(text string) string {
	return lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(text)
}

func (model Model) renderSearch() string {
	label := lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(fmt.Sprintf("Search [%s]: ", model.searchField.Label()))
	return label + model.search.View()
}

func (model Model) renderList() string {
	if model.loading && model.store.Version() == 0 {
		return lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("Loading incidents...")
	}

	incidents := model.visible()
	if len(incidents) == 0 {
		return lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("No incidents")
	}

	rows := make([]string, 0, len(incidents))
	for i, incident := range incidents {
		rows = append(rows, model.renderRow(incident, i == model.cursor))
	}
	return strings.Join(rows, "\n")
}

func (model Model) renderRow(incident models.Incident, selected bool) string {
	number := lipgloss.NewStyle().Width(12).Render(incident.Number)
	state := lipgloss.NewStyle().Width(13).Foreground(model.theme.StateColor(incident.State)).Render(incident.State)

	priorityText := "-"
	if incident.Priority > 0 {
		priorityText = fmt.Sprintf("P%d %s", incident.Priority, models.PriorityName(incident.Priority))
	}
	priority := lipgloss.NewStyle().Width(13).Foreground(model.theme.PriorityColor(incident.Priority)).Render(priorityText)

	row := number + state + priority + incident.ShortDescription
	if selected {
		return lipgloss.NewStyle().
			Background(model.theme.SelectedBackground).
			Foreground(model.theme.SelectedForeground).
			Render("> " + row)
	}
	return "  " + row
}

func (model Model) dialogBox(title string, lines []string, message string) string {
	content := append([]string{lipgloss.NewStyle().Bold(true).Render(title), ""}, lines...)
	if message != "" {
		content = append(content, "", lipgloss.NewStyle().Foreground(model.theme.ErrorText).Render(message))
	}
	content = append(content, "", model.helpLine("tab next field · ←/→ change · enter save · esc cancel"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(model.theme.BorderColor).
		Padding(0, 1).
		Render(strings.Join(content, "\n"))
}

func (model Model) fieldLine(label, value string, focused bool) string {
	marker := "  "
	if focused {
		marker = "> "
	}
	return marker + lipgloss.NewStyle().Width(14).Foreground(model.theme.FaintText).Render(label) + value
}

func levelText(value int) string {
	if value == 0 {
		return "<select>"
	}
	return fmt.Sprintf("%s (%d)", models.LevelName(value), value)
}

func (model Model) renderCreateDialog() string {
	dialog := model.create
	title := "Create New Incident"
	if dialog.State() == console.DialogSubmitting {
		return model.dialogBox(title, []string{"Creating..."}, "")
	}
	draft := dialog.Draft()
	if draft == nil {
		return ""
	}
	lines := []string{
		model.fieldLine("Description", model.description.View(), model.focus == fieldDescription),
		model.fieldLine("Impact", levelText(draft.Impact), model.focus == fieldImpact),
		model.fieldLine("Urgency", levelText(draft.Urgency), model.focus == fieldUrgency),
	}
	return model.dialogBox(title, lines, dialog.Message())
}

func (model Model) renderEditDialog() string {
	dialog := model.edit
	title := "Edit Incident"
	if dialog.State() == console.DialogSubmitting {
		return model.dialogBox(title, []string{"Saving..."}, "")
	}
	draft := dialog.Draft()
	if draft == nil {
		return ""
	}

	priority := "unchanged"
	if draft.Impact != 0 && draft.Urgency != 0 {
		p := models.ComputePriority(draft.Impact, draft.Urgency)
		priority = fmt.Sprintf("%d - %s", p, models.PriorityName(p))
	}

	lines := []string{
		model.fieldLine("Description", model.description.View(), model.focus == editFieldDescription),
		model.fieldLine("State", draft.State, model.focus == editFieldState),
		model.fieldLine("Impact", levelText(draft.Impact), model.focus == editFieldImpact),
		model.fieldLine("Urgency", levelText(draft.Urgency), model.focus == editFieldUrgency),
		model.fieldLine("Priority", priority, false),
	}
	return model.dialogBox(title, lines, dialog.Message())
}

func (model Model) renderConfirmDelete() string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(model.theme.ErrorText).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n\n%s  %s\n\n%s",
			console.DeletePrompt,
			model.pendingDelete.Number,
			model.pendingDelete.ShortDescription,
			model.helpLine("y yes · n no"),
		))
}
