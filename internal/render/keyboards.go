package render

import (
	"fmt"

	"taskbot/internal/domain/models"
	"taskbot/internal/taskapi"
)

func cb(action string, args ...any) string {
	data := action
	for _, arg := range args {
		data += fmt.Sprintf(":%v", arg)
	}
	return data
}

// CreatorMenu is the main draft menu: preview, pick a target, cancel.
func CreatorMenu() *models.Keyboard {
	kb := &models.Keyboard{}
	kb.Row(models.Button{Label: "👀 Preview task", Data: CbCheckTask})
	kb.Row(models.Button{Label: "📨 Send task", Data: CbGroupList})
	kb.Row(models.Button{Label: "❌ Cancel task", Data: CbCancelTask})
	return kb
}

// GroupChooser lists the creator's target groups, one per row.
func GroupChooser(groups []taskapi.Group) *models.Keyboard {
	kb := &models.Keyboard{}
	for _, g := range groups {
		kb.Row(models.Button{Label: g.Title, Data: cb(CbSendTask, g.GroupID)})
	}
	kb.Row(models.Button{Label: "Back to menu", Data: CbCreatorKb})
	return kb
}

// TakeTaskKeyboard is attached to a freshly published task.
func TakeTaskKeyboard(taskID int64) *models.Keyboard {
	kb := &models.Keyboard{}
	kb.Row(models.Button{Label: "Take task", Data: cb(CbTakeTask, taskID)})
	return kb
}

// TakenTaskKeyboard replaces the take button once an executor owns the task.
func TakenTaskKeyboard(taskID int64) *models.Keyboard {
	kb := &models.Keyboard{}
	kb.Row(
		models.Button{Label: "Complete ✅", Data: cb(CbCompleteTask, taskID)},
		models.Button{Label: "Drop ❌", Data: cb(CbCancelExecute, taskID)},
	)
	return kb
}

// AdminMenu is the top-level admin menu.
func AdminMenu() *models.Keyboard {
	kb := &models.Keyboard{}
	kb.Row(models.Button{Label: "Users", Data: CbManageUsers})
	kb.Row(models.Button{Label: "Groups", Data: CbManageGroups})
	kb.Row(models.Button{Label: "Tasks", Data: CbManageTasks})
	return kb
}

// UserList lists users for editing, paginated.
func UserList(users []taskapi.User, page int) *models.Keyboard {
	var rows [][]models.Button
	for _, u := range users {
		rows = append(rows, []models.Button{{
			Label: fmt.Sprintf("%s | %s", u.Name, u.Type),
			Data:  cb(CbEditUser, u.UserID),
		}})
	}
	kb := Paginate(rows, CbManageUsers, page)
	kb.Row(models.Button{Label: "Back", Data: CbAdminMenu})
	return kb
}

// ManageUser is the per-user card: ban toggle, role change, and group
// management for creators.
func ManageUser(user taskapi.User) *models.Keyboard {
	kb := &models.Keyboard{}
	if user.IsBanned {
		kb.Row(models.Button{Label: "Unban", Data: cb(CbUnbanUser, user.UserID)})
	} else {
		kb.Row(models.Button{Label: "Ban", Data: cb(CbBanUser, user.UserID)})
	}
	kb.Row(models.Button{Label: "Change role", Data: cb(CbChangeRole, user.UserID)})
	if user.Type == string(models.RoleCreator) {
		kb.Row(models.Button{Label: "Manage groups", Data: cb(CbUserGroups, user.UserID)})
	}
	kb.Row(models.Button{Label: "Back to user list", Data: CbManageUsers})
	return kb
}

// RoleChooser offers the assignable roles for a user.
func RoleChooser(userID int64) *models.Keyboard {
	kb := &models.Keyboard{}
	kb.Row(models.Button{Label: "Moderator", Data: cb(CbSetRole, userID, models.RoleManager)})
	kb.Row(models.Button{Label: "Task creator", Data: cb(CbSetRole, userID, models.RoleCreator)})
	kb.Row(models.Button{Label: "Task executor", Data: cb(CbSetRole, userID, models.RoleExecutor)})
	kb.Row(models.Button{Label: "Back", Data: cb(CbEditUser, userID)})
	return kb
}

// RegistrationApproval is sent to the administrator when a new user asks
// to register.
func RegistrationApproval(userID int64) *models.Keyboard {
	kb := &models.Keyboard{}
	kb.Row(models.Button{Label: "Moderator", Data: cb(CbApproveUser, userID, models.RoleManager)})
	kb.Row(models.Button{Label: "Task creator", Data: cb(CbApproveUser, userID, models.RoleCreator)})
	kb.Row(models.Button{Label: "Task executor", Data: cb(CbApproveUser, userID, models.RoleExecutor)})
	kb.Row(models.Button{Label: "Decline", Data: cb(CbDeclineUser, userID)})
	return kb
}

// GroupList lists all groups with their active state for toggling.
func GroupList(groups []taskapi.Group, page int) *models.Keyboard {
	var rows [][]models.Button
	for _, g := range groups {
		marker := "🟫"
		if g.IsActive {
			marker = "🟩"
		}
		rows = append(rows, []models.Button{{
			Label: fmt.Sprintf("%s %s", g.Title, marker),
			Data:  cb(CbToggleGroup, g.GroupID),
		}})
	}
	kb := Paginate(rows, CbManageGroups, page)
	kb.Row(models.Button{Label: "Back", Data: CbAdminMenu})
	return kb
}

// CreatorGroupList shows every group with a membership marker for one
// creator; tapping grants or revokes the group.
func CreatorGroupList(userID int64, all, owned []taskapi.Group) *models.Keyboard {
	ownedIDs := make(map[int64]bool, len(owned))
	for _, g := range owned {
		ownedIDs[g.GroupID] = true
	}

	kb := &models.Keyboard{}
	for _, g := range all {
		if ownedIDs[g.GroupID] {
			kb.Row(models.Button{Label: g.Title + " ✅", Data: cb(CbRevokeGroup, userID, g.GroupID)})
		} else {
			kb.Row(models.Button{Label: g.Title + " ❌", Data: cb(CbGrantGroup, userID, g.GroupID)})
		}
	}
	kb.Row(models.Button{Label: "Back", Data: cb(CbEditUser, userID)})
	return kb
}

// BackTo is a single navigation button.
func BackTo(label, action string) *models.Keyboard {
	kb := &models.Keyboard{}
	kb.Row(models.Button{Label: label, Data: action})
	return kb
}

// TasksMenu picks between the open and completed task lists.
func TasksMenu() *models.Keyboard {
	kb := &models.Keyboard{}
	kb.Row(models.Button{Label: "Uncompleted tasks", Data: CbTasksOpen})
	kb.Row(models.Button{Label: "Completed tasks", Data: CbTasksDone})
	kb.Row(models.Button{Label: "Back to menu", Data: CbAdminMenu})
	return kb
}

// TaskList lists tasks for inspection, paginated.
func TaskList(tasks []taskapi.Task, pageAction string, page int) *models.Keyboard {
	var rows [][]models.Button
	for _, task := range tasks {
		label := task.TaskMessage
		if runes := []rune(label); len(runes) > 24 {
			label = string(runes[:22]) + ".."
		}
		rows = append(rows, []models.Button{{
			Label: label,
			Data:  cb(CbTaskInfo, task.TaskID),
		}})
	}
	kb := Paginate(rows, pageAction, page)
	kb.Row(models.Button{Label: "Back to menu", Data: CbManageTasks})
	return kb
}
