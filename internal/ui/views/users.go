package views

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskflow/internal/db"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/ui/keys"
	"github.com/tgienger/taskflow/internal/ui/styles"
)

type userItem struct {
	user models.User
}

func (i userItem) Title() string       { return i.user.Name }
func (i userItem) Description() string { return fmt.Sprintf("#%d", i.user.ID) }
func (i userItem) FilterValue() string { return i.user.Name }

type userDelegate struct {
	styles *styles.Styles
	width  int
}

func (d userDelegate) Height() int                               { return 1 }
func (d userDelegate) Spacing() int                              { return 0 }
func (d userDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d userDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	u, ok := item.(userItem)
	if !ok {
		return
	}

	style := d.styles.ListItem
	if index == m.Index() {
		style = d.styles.ListSelected
	}
	id := d.styles.TitleMuted.Render(u.Description())
	fmt.Fprint(w, style.Width(max(d.width-4, 20)).Render(u.Title()+"  "+id))
}

// ShowTasks asks the app to switch back to the task list
type ShowTasks struct{}

type usersLoadedMsg struct {
	users []models.User
}

// UserListView lists users and lets them be added or removed
type UserListView struct {
	db       *db.DB
	list     list.Model
	delegate *userDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int
	loaded   bool

	creating bool
	newName  textinput.Model

	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string

	errText string
}

func NewUserListView(database *db.DB) *UserListView {
	s := styles.NewStyles()

	newName := textinput.New()
	newName.Placeholder = "User name"
	newName.CharLimit = 100

	delegate := &userDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Users"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = s.Title

	return &UserListView{
		db:       database,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		newName:  newName,
	}
}

func (v *UserListView) Init() tea.Cmd {
	return v.loadUsers
}

func (v *UserListView) loadUsers() tea.Msg {
	users, err := v.db.ListUsers()
	if err != nil {
		return errMsg{err}
	}
	return usersLoadedMsg{users: users}
}

func (v *UserListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, max(msg.Height-8, 3))
		return v, nil

	case usersLoadedMsg:
		items := make([]list.Item, len(msg.users))
		for i, u := range msg.users {
			items[i] = userItem{user: u}
		}
		v.list.SetItems(items)
		v.loaded = true
		return v, nil

	case errMsg:
		v.errText = msg.Error()
		return v, nil

	case tea.KeyMsg:
		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}
		if v.creating {
			return v.updateCreating(msg)
		}

		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back), msg.String() == "t":
			return v, func() tea.Msg { return ShowTasks{} }
		case key.Matches(msg, v.keys.New):
			v.creating = true
			v.errText = ""
			v.newName.Reset()
			v.newName.Focus()
			return v, textinput.Blink
		case key.Matches(msg, v.keys.Delete):
			if item, ok := v.list.SelectedItem().(userItem); ok {
				v.confirmingDelete = true
				v.deleteTargetID = item.user.ID
				v.deleteTargetName = item.user.Name
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *UserListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		deleted, err := v.db.DeleteUser(v.deleteTargetID)
		switch {
		case err != nil:
			v.errText = err.Error()
			return v, nil
		case !deleted:
			v.errText = "User not found."
		}
		return v, v.loadUsers
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

func (v *UserListView) updateCreating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.creating = false
		v.newName.Blur()
		return v, nil

	case key.Matches(msg, v.keys.Enter), msg.String() == "ctrl+s":
		name := strings.TrimSpace(v.newName.Value())
		if name == "" {
			v.errText = "Name is required."
			return v, nil
		}
		if _, err := v.db.CreateUser(name); err != nil {
			if errors.Is(err, db.ErrUserExists) {
				v.errText = fmt.Sprintf("User '%s' already exists.", name)
			} else {
				v.errText = err.Error()
			}
			return v, nil
		}
		v.creating = false
		v.errText = ""
		v.newName.Blur()
		return v, v.loadUsers
	}

	var cmd tea.Cmd
	v.newName, cmd = v.newName.Update(msg)
	return v, cmd
}

// View renders the view
func (v *UserListView) View() string {
	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}
	if v.creating {
		return v.renderCreateForm()
	}
	if !v.loaded {
		return v.styles.TitleMuted.Render("Loading...")
	}

	var content string
	if len(v.list.Items()) == 0 {
		content = lipgloss.JoinVertical(lipgloss.Left,
			v.styles.Title.Render("Users"),
			"",
			v.styles.TitleMuted.Render("No users. Press 'n' to add one."),
		)
	} else {
		content = v.list.View()
	}
	if v.errText != "" {
		content += "\n" + v.styles.ErrorLine.Render(v.errText)
	}
	content += "\n" + v.renderHelp()
	return styles.CenterView(content, v.width, v.height)
}

func (v *UserListView) renderCreateForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	parts := []string{
		s.Title.Render("New User"),
		"",
		"Name:",
		s.InputFocused.Width(inputWidth).Render(v.newName.View()),
	}
	if v.errText != "" {
		parts = append(parts, "", s.ErrorLine.Render(v.errText))
	}
	parts = append(parts, "", s.TitleMuted.Render("↵/Ctrl+S: save • Esc: cancel"))

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *UserListView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render(fmt.Sprintf("Delete user \"%s\"?", v.deleteTargetName)),
		"",
		s.TitleMuted.Render("Deleting a user will unassign their tasks."),
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

func (v *UserListView) renderHelp() string {
	return v.styles.Help.Render(
		fmt.Sprintf("%s new • %s delete • %s tasks • %s quit",
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("esc/t"),
			v.styles.HelpKey.Render("q"),
		),
	)
}
