package render

// Callback data the keyboards emit. Parameterized actions append
// colon-separated arguments, e.g. "send_task:-100200300".
const (
	CbCheckTask  = "check_task"
	CbCancelTask = "cancel_task"
	CbGroupList  = "get_groups_list"
	CbCreatorKb  = "main_creator_kb"
	CbSendTask   = "send_task" // :groupID

	CbTakeTask      = "take_task"      // :taskID
	CbCancelExecute = "cancel_execute" // :taskID
	CbCompleteTask  = "complete_task"  // :taskID

	CbAdminMenu     = "main_admin_keyboard"
	CbManageUsers   = "manage_users"
	CbManageTasks   = "manage_tasks"
	CbEditUser      = "edit_user"      // :userID
	CbChangeRole    = "change_role"    // :userID
	CbSetRole       = "set_role"       // :userID:role
	CbBanUser       = "ban_user"       // :userID
	CbUnbanUser     = "unban_user"     // :userID
	CbUserGroups    = "user_groups"    // :userID
	CbGrantGroup    = "grant_group"    // :userID:groupID
	CbRevokeGroup   = "revoke_group"   // :userID:groupID
	CbToggleGroup   = "toggle_group"   // :groupID
	CbManageGroups  = "manage_groups"
	CbTasksOpen     = "uncompleted_tasks"
	CbTasksDone     = "completed_tasks"
	CbTaskInfo      = "task_info" // :taskID
	CbApproveUser   = "approve_reg" // :userID:role
	CbDeclineUser   = "decline_reg" // :userID
	CbNoop          = "noop"
)
