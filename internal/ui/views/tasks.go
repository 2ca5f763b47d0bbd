package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskmaster/internal/controller"
	"taskmaster/internal/db"
	"taskmaster/internal/models"
	"taskmaster/internal/query"
	"taskmaster/internal/ui/keys"
	"taskmaster/internal/ui/styles"
)

// timeFilterSetting is the settings key persisting the last selected
// time filter across sessions
const timeFilterSetting = "time_filter"

var timeFilters = []query.TimeFilter{
	query.FilterDay, query.FilterWeek, query.FilterMonth, query.FilterAll,
}

var viewModes = []controller.ViewMode{
	controller.ViewAll, controller.ViewPending, controller.ViewCompleted,
}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// run wraps a controller round trip into a bubbletea command
func run(op func() controller.Msg) tea.Cmd {
	return func() tea.Msg {
		return op()
	}
}

// TaskListView is the single main view: filter bar, view-mode tabs,
// task list, and the create/edit form
type TaskListView struct {
	db     *db.DB
	ctrl   *controller.Controller
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	cursor   int
	scrollY  int
	viewMode controller.ViewMode

	// Task creation/editing
	editing    bool
	editingID  int64 // 0 while creating
	titleInput textinput.Model
	descInput  textarea.Model
	dueInput   textinput.Model
	formFocus  int // 0=title, 1=description, 2=due date, 3=save
	formError  string

	// Delete confirmation
	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string

	notice *controller.Notice

	showHelpPopup bool
}

// NewTaskListView creates the main view over the given store
func NewTaskListView(database *db.DB) *TaskListView {
	s := styles.NewStyles()

	titleInput := textinput.New()
	titleInput.Placeholder = "Task title"
	titleInput.CharLimit = 200

	descInput := textarea.New()
	descInput.Placeholder = "Description (optional)"
	descInput.CharLimit = 1000
	descInput.SetWidth(50)
	descInput.SetHeight(3)
	descInput.ShowLineNumbers = false

	dueInput := textinput.New()
	dueInput.Placeholder = "YYYY-MM-DD (optional)"
	dueInput.CharLimit = 10

	return &TaskListView{
		db:         database,
		ctrl:       controller.New(database),
		styles:     s,
		keys:       keys.DefaultKeyMap(),
		viewMode:   controller.ViewAll,
		titleInput: titleInput,
		descInput:  descInput,
		dueInput:   dueInput,
	}
}

// Init restores the persisted time filter and issues the first load
func (v *TaskListView) Init() tea.Cmd {
	filter := query.FilterAll
	if saved, err := v.db.GetSetting(timeFilterSetting); err == nil && saved != "" {
		if parsed, err := query.ParseTimeFilter(saved); err == nil {
			filter = parsed
		}
	}
	return run(v.ctrl.Load(context.Background(), filter))
}

// Update handles messages
func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(v.width)
		v.descInput.SetWidth(clamp(contentWidth-10, 20, 50))
		return v, nil

	case controller.TasksLoaded, controller.TaskCreated,
		controller.TaskSaved, controller.TaskDeleted:
		if notice, ok := v.ctrl.Apply(msg); ok {
			v.notice = &notice
		}
		if visible := v.visibleTasks(); v.cursor >= len(visible) {
			v.cursor = max(0, len(visible)-1)
		}
		return v, nil

	case tea.KeyMsg:
		// Any key closes the help popup
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}

		if v.editing {
			return v.updateEditing(msg)
		}

		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := v.visibleTasks()

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(visible)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.startNewTask()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Edit):
		if len(visible) > 0 {
			v.startEditTask(visible[v.cursor])
			return v, textinput.Blink
		}
		return v, nil

	case key.Matches(msg, v.keys.Delete):
		if len(visible) > 0 {
			v.confirmingDelete = true
			v.deleteTargetID = visible[v.cursor].ID
			v.deleteTargetName = visible[v.cursor].Title
		}
		return v, nil

	case key.Matches(msg, v.keys.Toggle), key.Matches(msg, v.keys.Enter):
		if len(visible) > 0 {
			return v, run(v.ctrl.ToggleComplete(context.Background(), visible[v.cursor].ID))
		}
		return v, nil

	case key.Matches(msg, v.keys.TimeFilter):
		next := nextTimeFilter(v.ctrl.Filter())
		v.cursor = 0
		v.scrollY = 0
		// Best effort; the filter still applies for this session
		_ = v.db.SetSetting(timeFilterSetting, string(next))
		return v, run(v.ctrl.Load(context.Background(), next))

	case key.Matches(msg, v.keys.ViewMode):
		v.viewMode = nextViewMode(v.viewMode)
		v.cursor = 0
		v.scrollY = 0
		return v, nil

	case msg.String() == "?":
		v.showHelpPopup = true
		return v, nil
	}

	return v, nil
}

func (v *TaskListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		return v, run(v.ctrl.Remove(context.Background(), v.deleteTargetID))
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

func (v *TaskListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.closeForm()
		return v, nil

	case msg.String() == "ctrl+s":
		return v.saveForm()

	case key.Matches(msg, v.keys.Tab):
		v.formFocus = (v.formFocus + 1) % 4
		v.updateFormFocus()
		return v, nil

	case msg.String() == "shift+tab":
		v.formFocus = (v.formFocus + 3) % 4
		v.updateFormFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		// Enter on single-line inputs advances; on save it submits.
		// The description textarea keeps enter for newlines.
		switch v.formFocus {
		case 0, 2:
			v.formFocus++
			v.updateFormFocus()
			return v, nil
		case 3:
			return v.saveForm()
		}
	}

	var cmd tea.Cmd
	switch v.formFocus {
	case 0:
		v.titleInput, cmd = v.titleInput.Update(msg)
	case 1:
		v.descInput, cmd = v.descInput.Update(msg)
	case 2:
		v.dueInput, cmd = v.dueInput.Update(msg)
	}
	return v, cmd
}

func (v *TaskListView) startNewTask() {
	v.editing = true
	v.editingID = 0
	v.formFocus = 0
	v.formError = ""
	v.titleInput.Reset()
	v.descInput.Reset()
	v.dueInput.Reset()
	v.updateFormFocus()
}

func (v *TaskListView) startEditTask(task models.Task) {
	if !v.ctrl.StartEdit(task.ID) {
		return
	}
	v.editing = true
	v.editingID = task.ID
	v.formFocus = 0
	v.formError = ""
	v.titleInput.SetValue(task.Title)
	if task.Description != nil {
		v.descInput.SetValue(*task.Description)
	} else {
		v.descInput.Reset()
	}
	if task.DueDate != nil {
		v.dueInput.SetValue(task.DueDate.String())
	} else {
		v.dueInput.Reset()
	}
	v.updateFormFocus()
}

func (v *TaskListView) closeForm() {
	v.editing = false
	v.formError = ""
	v.ctrl.CancelEdit()
}

func (v *TaskListView) updateFormFocus() {
	v.titleInput.Blur()
	v.descInput.Blur()
	v.dueInput.Blur()

	switch v.formFocus {
	case 0:
		v.titleInput.Focus()
	case 1:
		v.descInput.Focus()
	case 2:
		v.dueInput.Focus()
	}
}

// saveForm validates the form locally and issues the create or update
// round trip. Local failures keep the form open without touching the
// store.
func (v *TaskListView) saveForm() (tea.Model, tea.Cmd) {
	title := strings.TrimSpace(v.titleInput.Value())
	if title == "" {
		v.formError = "Title must not be empty"
		return v, nil
	}

	var due *models.Date
	dueText := strings.TrimSpace(v.dueInput.Value())
	if dueText != "" {
		parsed, err := models.ParseDate(dueText)
		if err != nil {
			v.formError = "Due date must be YYYY-MM-DD"
			return v, nil
		}
		due = &parsed
	}

	desc := strings.TrimSpace(v.descInput.Value())

	if v.editingID == 0 {
		draft := models.TaskDraft{Title: title, DueDate: due}
		if desc != "" {
			draft.Description = &desc
		}
		v.closeForm()
		return v, run(v.ctrl.Add(context.Background(), draft))
	}

	id := v.editingID
	patch := v.buildPatch(id, title, desc, due)
	v.closeForm()
	if patch.IsZero() {
		return v, nil
	}
	return v, run(v.ctrl.Update(context.Background(), id, patch))
}

// buildPatch diffs the form values against the in-memory task so the
// update only carries the fields that actually changed
func (v *TaskListView) buildPatch(id int64, title, desc string, due *models.Date) models.TaskPatch {
	var patch models.TaskPatch

	var current *models.Task
	for _, t := range v.ctrl.Tasks() {
		if t.ID == id {
			current = &t
			break
		}
	}
	if current == nil {
		return patch
	}

	if title != current.Title {
		patch.Title = &title
	}

	switch {
	case desc == "" && current.Description != nil:
		patch.ClearDescription = true
	case desc != "" && (current.Description == nil || *current.Description != desc):
		patch.Description = &desc
	}

	switch {
	case due == nil && current.DueDate != nil:
		patch.ClearDueDate = true
	case due != nil && (current.DueDate == nil || *current.DueDate != *due):
		patch.DueDate = due
	}

	return patch
}

// visibleTasks applies the completion-state tab to the loaded tasks
func (v *TaskListView) visibleTasks() []models.Task {
	return v.ctrl.View(v.viewMode)
}

func (v *TaskListView) ensureVisible() {
	availableHeight := v.height - 12
	if availableHeight < 2 {
		availableHeight = 2
	}
	visibleItems := availableHeight / 2
	if visibleItems < 1 {
		visibleItems = 1
	}

	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visibleItems {
		v.scrollY = v.cursor - visibleItems + 1
	}
}

func nextTimeFilter(current query.TimeFilter) query.TimeFilter {
	for i, f := range timeFilters {
		if f == current {
			return timeFilters[(i+1)%len(timeFilters)]
		}
	}
	return query.FilterAll
}

func nextViewMode(current controller.ViewMode) controller.ViewMode {
	for i, m := range viewModes {
		if m == current {
			return viewModes[(i+1)%len(viewModes)]
		}
	}
	return controller.ViewAll
}

// View renders the view
func (v *TaskListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	if v.editing {
		return v.renderForm()
	}

	var b strings.Builder

	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(v.renderTaskList())
	b.WriteString("\n")
	b.WriteString(v.renderNotice())
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

var timeFilterLabels = map[query.TimeFilter]string{
	query.FilterDay:   "Today",
	query.FilterWeek:  "Week",
	query.FilterMonth: "Month",
	query.FilterAll:   "All",
}

var viewModeLabels = map[controller.ViewMode]string{
	controller.ViewAll:       "All",
	controller.ViewPending:   "Pending",
	controller.ViewCompleted: "Completed",
}

func (v *TaskListView) renderHeader() string {
	s := v.styles

	title := s.Title.Render("TaskMaster")

	var filterParts []string
	for _, f := range timeFilters {
		style := s.FilterInactive
		if f == v.ctrl.Filter() {
			style = s.FilterActive
		}
		filterParts = append(filterParts, style.Render(timeFilterLabels[f]))
	}
	filterBar := lipgloss.JoinHorizontal(lipgloss.Center, filterParts...)

	var tabParts []string
	for _, m := range viewModes {
		style := s.TabInactive
		if m == v.viewMode {
			style = s.TabActive
		}
		tabParts = append(tabParts, style.Render(viewModeLabels[m]))
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Center, tabParts...)

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		s.TitleMuted.Render("due: ")+filterBar,
		s.TitleMuted.Render("show: ")+tabs,
	)
}

func (v *TaskListView) renderTaskList() string {
	s := v.styles

	if v.ctrl.Loading() {
		return s.TitleMuted.Render("Loading tasks...")
	}

	visible := v.visibleTasks()
	if len(visible) == 0 {
		return s.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}

	availableHeight := v.height - 12
	if availableHeight < 2 {
		availableHeight = 2
	}
	visibleItems := availableHeight / 2
	if visibleItems < 1 {
		visibleItems = 1
	}

	var items []string
	endIdx := min(v.scrollY+visibleItems, len(visible))

	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderTaskItem(visible[i], i == v.cursor))
	}

	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *TaskListView) renderTaskItem(task models.Task, selected bool) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	width := max(contentWidth-4, 20)

	checkbox := "[ ]"
	if task.Completed {
		checkbox = s.Checkbox.Render("[✓]")
	}

	title := task.Title
	if task.Completed {
		title = s.DoneTitle.Render(title)
	}

	dueStr := ""
	if task.DueDate != nil {
		dueStyle := s.DueDate
		if !task.Completed && task.DueDate.Before(models.Today()) {
			dueStyle = s.Overdue
		}
		dueStr = "  " + dueStyle.Render("due "+task.DueDate.String())
	}

	detail := s.TitleMuted.Render("no description")
	if task.Description != nil && *task.Description != "" {
		detail = s.TitleMuted.Render(firstLine(*task.Description))
	}

	var lineStyle lipgloss.Style
	if selected {
		lineStyle = s.ListSelected.Width(width)
	} else {
		lineStyle = s.ListItem.Width(width)
	}

	titleLine := lineStyle.Render(checkbox + " " + title + dueStr)
	detailLine := lineStyle.Render("    " + detail)

	return lipgloss.JoinVertical(lipgloss.Left, titleLine, detailLine)
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

func (v *TaskListView) renderForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	formTitle := "New Task"
	if v.editingID != 0 {
		formTitle = "Edit Task"
	}

	titleStyle := s.Input
	descStyle := s.Input
	dueStyle := s.Input
	btnStyle := s.Button

	switch v.formFocus {
	case 0:
		titleStyle = s.InputFocused
	case 1:
		descStyle = s.InputFocused
	case 2:
		dueStyle = s.InputFocused
	case 3:
		btnStyle = s.ButtonFocused
	}

	inputWidth := clamp(contentWidth-6, 20, 50)

	errorLine := ""
	if v.formError != "" {
		errorLine = s.NoticeError.Render(v.formError)
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(formTitle),
		"",
		"Title:",
		titleStyle.Width(inputWidth).Render(v.titleInput.View()),
		"",
		"Description:",
		descStyle.Render(v.descInput.View()),
		"",
		"Due date:",
		dueStyle.Width(24).Render(v.dueInput.View()),
		"",
		btnStyle.Render(" Save "),
		errorLine,
		"",
		s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Task?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("\"%s\"", v.deleteTargetName)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderNotice() string {
	if v.notice == nil {
		return ""
	}
	if v.notice.Level == controller.LevelError {
		return v.styles.NoticeError.Render(v.notice.Text) + "\n"
	}
	return v.styles.NoticeSuccess.Render(v.notice.Text) + "\n"
}

func (v *TaskListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}

	return v.styles.Help.Render(
		fmt.Sprintf("%s done • %s new • %s edit • %s del • %s due filter • %s view • %s quit",
			v.styles.HelpKey.Render("space"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("e"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("f"),
			v.styles.HelpKey.Render("v"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *TaskListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("space") + "  toggle complete",
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("e") + "      edit task",
		s.HelpKey.Render("d") + "      delete task",
		s.HelpKey.Render("f") + "      cycle due-date filter",
		s.HelpKey.Render("v") + "      cycle all/pending/completed",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}
