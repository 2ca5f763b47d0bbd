package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"taskmaster/internal/db"
	"taskmaster/internal/ui/views"
)

// App is the root model; it owns the single task list view
type App struct {
	taskList *views.TaskListView
	width    int
	height   int
}

// NewApp creates a new application
func NewApp(database *db.DB) *App {
	return &App{
		taskList: views.NewTaskListView(database),
	}
}

func (a *App) Init() tea.Cmd {
	return a.taskList.Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		a.width = size.Width
		a.height = size.Height
	}

	_, cmd := a.taskList.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	return a.taskList.View()
}
