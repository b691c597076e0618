package views

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskflow/internal/db"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/ui/keys"
	"github.com/tgienger/taskflow/internal/ui/styles"
)

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

// Edit form fields, in tab order
const (
	fieldTitle = iota
	fieldDescription
	fieldAssignee
	fieldSave
	fieldCount
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusWarn
	statusError
)

// statusFilters is the cycle order of the status filter; "" means all
var statusFilters = []string{"", string(models.StatusTodo), string(models.StatusDoing), string(models.StatusDone)}

// ShowUsers asks the app to switch to the user list
type ShowUsers struct{}

type errMsg struct{ error }

type tasksLoadedMsg struct {
	tasks []models.Task
}

type assigneesLoadedMsg struct {
	users []models.User
}

// TaskListView is the task board: a filtered list with forms to add, edit
// and delete tasks
type TaskListView struct {
	db     *db.DB
	tasks  []models.Task
	users  []models.User
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	cursor      int
	scrollY     int
	searching   bool
	searchInput textinput.Model
	statusIdx   int    // index into statusFilters
	assigneeID  *int64 // nil = all assignees

	// Task creation/editing
	editing      bool
	editingID    int64 // 0 for a new task
	editTitle    textinput.Model
	editDesc     textarea.Model
	editAssignee int // 0 = unassigned, i+1 = users[i]
	editFocusIdx int

	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string

	confirmingDone bool
	doneTargetID   int64
	doneTargetName string

	showHelpPopup bool

	statusText string
	statusKind statusKind
}

// NewTaskListView creates the task board
func NewTaskListView(database *db.DB) *TaskListView {
	search := textinput.New()
	search.Placeholder = "Search titles..."
	search.CharLimit = 100

	editTitle := textinput.New()
	editTitle.Placeholder = "Task title"
	editTitle.CharLimit = 200

	editDesc := textarea.New()
	editDesc.Placeholder = "Description"
	editDesc.CharLimit = 2000
	editDesc.SetWidth(50)
	editDesc.SetHeight(4)
	editDesc.ShowLineNumbers = false

	return &TaskListView{
		db:          database,
		styles:      styles.NewStyles(),
		keys:        keys.DefaultKeyMap(),
		searchInput: search,
		editTitle:   editTitle,
		editDesc:    editDesc,
	}
}

func (v *TaskListView) Init() tea.Cmd {
	return tea.Batch(v.loadTasks(), v.loadUsers)
}

func (v *TaskListView) filter() models.TaskFilter {
	return models.TaskFilter{
		Status:     statusFilters[v.statusIdx],
		AssigneeID: v.assigneeID,
		Query:      strings.TrimSpace(v.searchInput.Value()),
	}
}

// loadTasks snapshots the current filter so a later keystroke cannot change
// what an in-flight load queries
func (v *TaskListView) loadTasks() tea.Cmd {
	filter := v.filter()
	return func() tea.Msg {
		tasks, err := v.db.ListTasks(filter)
		if err != nil {
			return errMsg{err}
		}
		return tasksLoadedMsg{tasks: tasks}
	}
}

func (v *TaskListView) loadUsers() tea.Msg {
	users, err := v.db.ListUsers()
	if err != nil {
		return errMsg{err}
	}
	return assigneesLoadedMsg{users: users}
}

// Update handles messages
func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(v.width)
		v.editDesc.SetWidth(clamp(contentWidth-10, 20, 50))
		return v, nil

	case tasksLoadedMsg:
		v.tasks = msg.tasks
		if v.cursor >= len(v.tasks) {
			v.cursor = max(0, len(v.tasks)-1)
		}
		v.ensureVisible()
		return v, nil

	case assigneesLoadedMsg:
		v.users = msg.users
		if v.assigneeID != nil && v.userIndex(*v.assigneeID) < 0 {
			v.assigneeID = nil
			return v, v.loadTasks()
		}
		return v, nil

	case errMsg:
		v.setStatus(statusError, msg.Error())
		return v, nil

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}
		if v.confirmingDone {
			return v.updateConfirmDone(msg)
		}
		if v.editing {
			return v.updateEditing(msg)
		}
		if v.searching {
			return v.updateSearching(msg)
		}
		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Users):
		return v, func() tea.Msg { return ShowUsers{} }

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.tasks)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.startNewTask()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Edit), key.Matches(msg, v.keys.Enter):
		if task, ok := v.selected(); ok {
			v.startEditTask(task)
			return v, textinput.Blink
		}
		return v, nil

	case key.Matches(msg, v.keys.Delete):
		if task, ok := v.selected(); ok {
			v.confirmingDelete = true
			v.deleteTargetID = task.ID
			v.deleteTargetName = task.Title
		}
		return v, nil

	case key.Matches(msg, v.keys.Search):
		v.searching = true
		v.searchInput.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.StatusFilter):
		v.statusIdx = (v.statusIdx + 1) % len(statusFilters)
		v.resetCursor()
		return v, v.loadTasks()

	case key.Matches(msg, v.keys.AssigneeFilter):
		v.cycleAssigneeFilter()
		v.resetCursor()
		return v, v.loadTasks()

	case key.Matches(msg, v.keys.ClearFilters):
		v.statusIdx = 0
		v.assigneeID = nil
		v.searchInput.Reset()
		v.resetCursor()
		v.clearStatus()
		return v, v.loadTasks()

	case key.Matches(msg, v.keys.MarkTodo):
		return v, v.setTaskStatus(models.StatusTodo)

	case key.Matches(msg, v.keys.MarkDoing):
		return v, v.setTaskStatus(models.StatusDoing)

	case key.Matches(msg, v.keys.MarkDone):
		if task, ok := v.selected(); ok && task.Status != models.StatusDone {
			v.confirmingDone = true
			v.doneTargetID = task.ID
			v.doneTargetName = task.Title
		}
		return v, nil

	case msg.String() == "?":
		v.showHelpPopup = true
		return v, nil
	}

	return v, nil
}

// updateSearching feeds keys to the search box; the list follows as you type
func (v *TaskListView) updateSearching(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Enter):
		v.searching = false
		v.searchInput.Blur()
		return v, v.loadTasks()
	}

	var cmd tea.Cmd
	v.searchInput, cmd = v.searchInput.Update(msg)
	v.resetCursor()
	return v, tea.Batch(cmd, v.loadTasks())
}

func (v *TaskListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		deleted, err := v.db.DeleteTask(v.deleteTargetID)
		switch {
		case err != nil:
			v.setStatus(statusError, err.Error())
		case !deleted:
			v.setStatus(statusError, fmt.Sprintf("Task #%d no longer exists.", v.deleteTargetID))
		default:
			v.setStatus(statusInfo, fmt.Sprintf("Deleted \"%s\".", v.deleteTargetName))
		}
		return v, v.loadTasks()
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

func (v *TaskListView) updateConfirmDone(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDone = false
		return v, v.updateStatus(v.doneTargetID, models.StatusDone)
	case "n", "N", "esc":
		v.confirmingDone = false
		return v, nil
	}
	return v, nil
}

func (v *TaskListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.editing = false
		v.clearStatus()
		return v, nil

	case msg.String() == "ctrl+s":
		return v, v.saveTask()

	case key.Matches(msg, v.keys.Tab):
		v.editFocusIdx = (v.editFocusIdx + 1) % fieldCount
		v.updateEditFocus()
		return v, nil

	case msg.String() == "shift+tab":
		v.editFocusIdx = (v.editFocusIdx + fieldCount - 1) % fieldCount
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		switch v.editFocusIdx {
		case fieldTitle, fieldAssignee:
			v.editFocusIdx++
			v.updateEditFocus()
			return v, nil
		case fieldSave:
			return v, v.saveTask()
		}
		// The description textarea keeps enter for newlines.
	}

	if v.editFocusIdx == fieldAssignee {
		switch msg.String() {
		case "right", "l", " ":
			v.editAssignee = (v.editAssignee + 1) % (len(v.users) + 1)
		case "left", "h":
			v.editAssignee = (v.editAssignee + len(v.users)) % (len(v.users) + 1)
		}
		return v, nil
	}

	var cmd tea.Cmd
	switch v.editFocusIdx {
	case fieldTitle:
		v.editTitle, cmd = v.editTitle.Update(msg)
	case fieldDescription:
		v.editDesc, cmd = v.editDesc.Update(msg)
	}
	return v, cmd
}

func (v *TaskListView) selected() (models.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.tasks) {
		return models.Task{}, false
	}
	return v.tasks[v.cursor], true
}

func (v *TaskListView) userIndex(id int64) int {
	for i, u := range v.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

// cycleAssigneeFilter steps through all, then each user in id order
func (v *TaskListView) cycleAssigneeFilter() {
	next := 0
	if v.assigneeID != nil {
		next = v.userIndex(*v.assigneeID) + 1
	}
	if next >= len(v.users) {
		v.assigneeID = nil
		return
	}
	id := v.users[next].ID
	v.assigneeID = &id
}

func (v *TaskListView) resetCursor() {
	v.cursor = 0
	v.scrollY = 0
}

func (v *TaskListView) visibleItems() int {
	// Each task item is 2 lines + 1 margin
	return max((v.height-12)/3, 1)
}

func (v *TaskListView) ensureVisible() {
	visible := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
}

func (v *TaskListView) setStatus(kind statusKind, text string) {
	v.statusKind = kind
	v.statusText = text
}

func (v *TaskListView) clearStatus() {
	v.statusText = ""
}

func (v *TaskListView) setTaskStatus(status models.Status) tea.Cmd {
	task, ok := v.selected()
	if !ok || task.Status == status {
		return nil
	}
	return v.updateStatus(task.ID, status)
}

func (v *TaskListView) updateStatus(id int64, status models.Status) tea.Cmd {
	updated, err := v.db.UpdateTaskStatus(id, string(status))
	switch {
	case err != nil:
		v.setStatus(statusError, err.Error())
	case !updated:
		v.setStatus(statusError, fmt.Sprintf("Task #%d no longer exists.", id))
	default:
		v.setStatus(statusInfo, fmt.Sprintf("Task #%d marked %s.", id, status))
	}
	return v.loadTasks()
}

func (v *TaskListView) startNewTask() {
	v.editing = true
	v.editingID = 0
	v.editFocusIdx = fieldTitle
	v.editTitle.Reset()
	v.editDesc.Reset()
	v.editAssignee = 0
	v.clearStatus()
	v.updateEditFocus()
}

func (v *TaskListView) startEditTask(task models.Task) {
	v.editing = true
	v.editingID = task.ID
	v.editFocusIdx = fieldTitle
	v.editTitle.SetValue(task.Title)
	v.editDesc.SetValue(task.Description)
	v.editAssignee = 0
	if task.AssigneeID != nil {
		v.editAssignee = v.userIndex(*task.AssigneeID) + 1
	}
	v.clearStatus()
	v.updateEditFocus()
}

func (v *TaskListView) updateEditFocus() {
	v.editTitle.Blur()
	v.editDesc.Blur()

	switch v.editFocusIdx {
	case fieldTitle:
		v.editTitle.Focus()
	case fieldDescription:
		v.editDesc.Focus()
	}
}

func (v *TaskListView) chosenAssignee() *int64 {
	if v.editAssignee <= 0 || v.editAssignee > len(v.users) {
		return nil
	}
	id := v.users[v.editAssignee-1].ID
	return &id
}

func (v *TaskListView) saveTask() tea.Cmd {
	title := strings.TrimSpace(v.editTitle.Value())
	if title == "" {
		v.setStatus(statusError, "Title is required.")
		return nil
	}
	description := v.editDesc.Value()
	assigneeID := v.chosenAssignee()

	taskID := v.editingID
	if taskID == 0 {
		task, err := v.db.CreateTask(title, description, assigneeID)
		if err != nil {
			v.setStatus(statusError, err.Error())
			return nil
		}
		taskID = task.ID
		v.setStatus(statusInfo, fmt.Sprintf("Added task #%d.", taskID))
	} else {
		updated, err := v.db.UpdateTask(taskID, title, description, assigneeID)
		if err != nil {
			v.setStatus(statusError, err.Error())
			return nil
		}
		if !updated {
			v.editing = false
			v.setStatus(statusError, fmt.Sprintf("Task #%d no longer exists.", taskID))
			return v.loadTasks()
		}
		v.setStatus(statusInfo, fmt.Sprintf("Saved task #%d.", taskID))
	}

	// The assignee can vanish between picking and saving; the store keeps
	// the task but leaves it unassigned.
	if assigneeID != nil {
		task, err := v.db.GetTask(taskID)
		if err != nil && !errors.Is(err, db.ErrTaskNotFound) {
			v.setStatus(statusError, err.Error())
		} else if err == nil && task.AssigneeID == nil {
			v.setStatus(statusWarn, fmt.Sprintf("User #%d does not exist; task #%d saved unassigned.", *assigneeID, taskID))
		}
	}

	v.editing = false
	v.editTitle.Blur()
	v.editDesc.Blur()
	return tea.Batch(v.loadTasks(), v.loadUsers)
}

// View renders the view
func (v *TaskListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if v.confirmingDelete {
		return v.renderConfirm("Delete Task?", v.deleteTargetName)
	}
	if v.confirmingDone {
		return v.renderConfirm("Mark Task Done?", v.doneTargetName)
	}
	if v.editing {
		return v.renderEditForm()
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(v.renderTaskList())
	if line := v.renderStatusLine(); line != "" {
		b.WriteString("\n")
		b.WriteString(line)
	}
	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TaskListView) statusFilterLabel() string {
	if statusFilters[v.statusIdx] == "" {
		return "All"
	}
	return statusFilters[v.statusIdx]
}

func (v *TaskListView) assigneeFilterLabel() string {
	if v.assigneeID == nil {
		return "All"
	}
	if i := v.userIndex(*v.assigneeID); i >= 0 {
		return v.users[i].Name
	}
	return fmt.Sprintf("#%d", *v.assigneeID)
}

func (v *TaskListView) renderHeader() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	isNarrow := contentWidth < 60

	searchStyle := s.Input
	if v.searching {
		searchStyle = s.InputFocused
	}
	searchBox := searchStyle.Width(clamp(contentWidth-8, 10, 30)).Render(v.searchInput.View())

	statusBtn := s.Button.Render("Status: " + v.statusFilterLabel())
	assigneeBtn := s.Button.Render("Assignee: " + v.assigneeFilterLabel())

	var filters string
	if isNarrow {
		filters = lipgloss.JoinVertical(lipgloss.Left, searchBox, statusBtn, assigneeBtn)
	} else {
		filters = lipgloss.JoinHorizontal(lipgloss.Center, searchBox, "  ", statusBtn, "  ", assigneeBtn)
	}

	tabs := lipgloss.JoinHorizontal(lipgloss.Top,
		s.TabActive.Render("Tasks"),
		s.Tab.Render("Users (u)"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, tabs, "", filters)
}

func (v *TaskListView) renderTaskList() string {
	s := v.styles

	if len(v.tasks) == 0 {
		if v.filter() != (models.TaskFilter{}) {
			return s.TitleMuted.Render("No tasks match the filters. Press 'g' to clear them.")
		}
		return s.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}

	var items []string
	endIdx := min(v.scrollY+v.visibleItems(), len(v.tasks))
	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderTaskItem(v.tasks[i], i == v.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *TaskListView) renderTaskItem(task models.Task, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)

	lineStyle := s.ListItem.Width(width)
	if selected {
		lineStyle = s.ListSelected.Width(width)
	}

	assignee := "unassigned"
	if task.Assigned() {
		assignee = task.AssigneeName
	}
	detail := fmt.Sprintf("#%d • %s • %s", task.ID, assignee, task.CreatedAt.Local().Format(time.DateTime))

	title := lineStyle.Render(s.Status(task.Status).Render(string(task.Status)) + " " + task.Title)
	info := lineStyle.Render(s.TitleMuted.Render(detail))
	return lipgloss.JoinVertical(lipgloss.Left, title, info) + "\n"
}

func (v *TaskListView) renderStatusLine() string {
	if v.statusText == "" {
		return ""
	}
	switch v.statusKind {
	case statusError:
		return v.styles.ErrorLine.Render(v.statusText)
	case statusWarn:
		return v.styles.WarnLine.Render(v.statusText)
	}
	return v.styles.StatusLine.Render(v.statusText)
}

func (v *TaskListView) renderEditForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	formTitle := "New Task"
	if v.editingID != 0 {
		formTitle = fmt.Sprintf("Edit Task #%d", v.editingID)
	}

	titleStyle := s.Input
	descStyle := s.Input
	assigneeStyle := s.Input
	btnStyle := s.Button

	switch v.editFocusIdx {
	case fieldTitle:
		titleStyle = s.InputFocused
	case fieldDescription:
		descStyle = s.InputFocused
	case fieldAssignee:
		assigneeStyle = s.InputFocused
	case fieldSave:
		btnStyle = s.ButtonFocused
	}

	inputWidth := clamp(contentWidth-6, 20, 50)

	assignee := "Unassigned"
	if id := v.chosenAssignee(); id != nil {
		assignee = fmt.Sprintf("%s (#%d)", v.users[v.editAssignee-1].Name, *id)
	}

	parts := []string{
		s.Title.Render(formTitle),
		"",
		"Title:",
		titleStyle.Width(inputWidth).Render(v.editTitle.View()),
		"",
		"Description:",
		descStyle.Render(v.editDesc.View()),
		"",
		"Assignee:",
		assigneeStyle.Width(inputWidth).Render("◀ " + assignee + " ▶"),
		"",
		btnStyle.Render(" Save "),
	}
	if line := v.renderStatusLine(); line != "" {
		parts = append(parts, "", line)
	}
	parts = append(parts, "", s.TitleMuted.Render("Tab: next • ←/→: assignee • Ctrl+S: save • Esc: cancel"))

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}

	k := v.styles.HelpKey
	return v.styles.Help.Render(
		fmt.Sprintf("%s new • %s edit • %s del • %s status • %s search • %s status filter • %s assignee • %s clear • %s users • %s quit",
			k.Render("n"),
			k.Render("e"),
			k.Render("d"),
			k.Render("1/2/3"),
			k.Render("/"),
			k.Render("s"),
			k.Render("f"),
			k.Render("g"),
			k.Render("u"),
			k.Render("q"),
		),
	)
}

func (v *TaskListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("e/↵") + "    edit task",
		s.HelpKey.Render("d") + "      delete task",
		s.HelpKey.Render("1") + "      mark todo",
		s.HelpKey.Render("2") + "      mark doing",
		s.HelpKey.Render("3") + "      mark done",
		s.HelpKey.Render("/") + "      search titles",
		s.HelpKey.Render("s") + "      cycle status filter",
		s.HelpKey.Render("f") + "      cycle assignee filter",
		s.HelpKey.Render("g") + "      clear filters",
		s.HelpKey.Render("u") + "      users",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.FilterBar.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderConfirm(title, target string) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render(title),
		"",
		s.TitleMuted.Render(fmt.Sprintf("\"%s\"", target)),
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
