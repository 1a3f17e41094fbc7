package handler

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskbot/internal/domain"
	"taskbot/internal/domain/models"
	"taskbot/internal/render"
)

// adminCallback is the management surface: users, roles, groups, task
// browsing and registration approval. Every mutation re-renders the view
// it was pressed on, so the card always reflects the stored state.
func (r *Router) adminCallback(ctx context.Context, q *tgbotapi.CallbackQuery, user models.User, action string, args []string) error {
	art := artifactOf(q.Message)

	switch action {
	case render.CbAdminMenu:
		return r.transport.Edit(ctx, art, domain.Outbound{
			Text:     r.messages.Format("admin.menu"),
			Keyboard: render.AdminMenu(),
		})

	case render.CbManageUsers:
		return r.renderUserList(ctx, art, pageOf(args))

	case render.CbEditUser:
		if len(args) == 0 {
			return nil
		}
		return r.renderUserCard(ctx, art, parseID(args[0]))

	case render.CbChangeRole:
		if len(args) == 0 {
			return nil
		}
		return r.transport.Edit(ctx, art, domain.Outbound{
			Text:     r.messages.Format("admin.pick_role"),
			Keyboard: render.RoleChooser(parseID(args[0])),
		})

	case render.CbSetRole:
		if len(args) < 2 {
			return nil
		}
		targetID := parseID(args[0])
		if err := r.api.UpdateUserType(ctx, targetID, args[1]); err != nil {
			return err
		}
		r.classifier.Invalidate(targetID)
		return r.renderUserCard(ctx, art, targetID)

	case render.CbBanUser:
		if len(args) == 0 {
			return nil
		}
		targetID := parseID(args[0])
		if err := r.api.BanUser(ctx, targetID); err != nil {
			return err
		}
		r.classifier.Invalidate(targetID)
		return r.renderUserCard(ctx, art, targetID)

	case render.CbUnbanUser:
		if len(args) == 0 {
			return nil
		}
		targetID := parseID(args[0])
		if err := r.api.UnbanUser(ctx, targetID); err != nil {
			return err
		}
		r.classifier.Invalidate(targetID)
		return r.renderUserCard(ctx, art, targetID)

	case render.CbUserGroups:
		if len(args) == 0 {
			return nil
		}
		return r.renderCreatorGroups(ctx, art, parseID(args[0]))

	case render.CbGrantGroup:
		if len(args) < 2 {
			return nil
		}
		targetID, groupID := parseID(args[0]), parseID(args[1])
		if err := r.api.AssignGroupToCreator(ctx, targetID, groupID); err != nil {
			return err
		}
		return r.renderCreatorGroups(ctx, art, targetID)

	case render.CbRevokeGroup:
		if len(args) < 2 {
			return nil
		}
		targetID, groupID := parseID(args[0]), parseID(args[1])
		if err := r.api.RemoveGroupFromCreator(ctx, targetID, groupID); err != nil {
			return err
		}
		return r.renderCreatorGroups(ctx, art, targetID)

	case render.CbManageGroups:
		return r.renderGroupList(ctx, art, pageOf(args))

	case render.CbToggleGroup:
		if len(args) == 0 {
			return nil
		}
		if err := r.toggleGroup(ctx, parseID(args[0])); err != nil {
			return err
		}
		return r.renderGroupList(ctx, art, 1)

	case render.CbManageTasks:
		return r.transport.Edit(ctx, art, domain.Outbound{
			Text:     r.messages.Format("admin.pick_tasks"),
			Keyboard: render.TasksMenu(),
		})

	case render.CbTasksOpen:
		tasks, err := r.api.IncompleteTasks(ctx)
		if err != nil {
			return err
		}
		return r.transport.Edit(ctx, art, domain.Outbound{
			Text:     r.messages.Format("admin.pick_task_uncompleted"),
			Keyboard: render.TaskList(tasks, render.CbTasksOpen, pageOf(args)),
		})

	case render.CbTasksDone:
		tasks, err := r.api.CompletedTasks(ctx)
		if err != nil {
			return err
		}
		return r.transport.Edit(ctx, art, domain.Outbound{
			Text:     r.messages.Format("admin.pick_task_completed"),
			Keyboard: render.TaskList(tasks, render.CbTasksDone, pageOf(args)),
		})

	case render.CbTaskInfo:
		if len(args) == 0 {
			return nil
		}
		return r.renderTaskCard(ctx, art, parseID(args[0]))

	case render.CbApproveUser:
		if len(args) < 2 {
			return nil
		}
		return r.approveRegistration(ctx, art, parseID(args[0]), args[1])

	case render.CbDeclineUser:
		if len(args) == 0 {
			return nil
		}
		return r.declineRegistration(ctx, art, parseID(args[0]))
	}

	r.logger.Debug("unknown callback action", "action", action)
	return nil
}

func (r *Router) renderUserList(ctx context.Context, art models.Artifact, page int) error {
	users, err := r.api.ListUsers(ctx)
	if err != nil {
		return err
	}
	return r.transport.Edit(ctx, art, domain.Outbound{
		Text:     r.messages.Format("admin.pick_user"),
		Keyboard: render.UserList(users, page),
	})
}

func (r *Router) renderUserCard(ctx context.Context, art models.Artifact, userID int64) error {
	rec, err := r.api.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if rec == nil {
		return r.renderUserList(ctx, art, 1)
	}
	return r.transport.Edit(ctx, art, domain.Outbound{
		Text:     r.messages.Format("admin.user_card", rec.Name, rec.UserName, rec.Type, rec.IsBanned),
		Keyboard: render.ManageUser(*rec),
	})
}

func (r *Router) renderCreatorGroups(ctx context.Context, art models.Artifact, userID int64) error {
	all, err := r.api.ListGroups(ctx)
	if err != nil {
		return err
	}
	owned, err := r.api.CreatorGroups(ctx, userID)
	if err != nil {
		return err
	}
	return r.transport.Edit(ctx, art, domain.Outbound{
		Text:     r.messages.Format("admin.creator_groups"),
		Keyboard: render.CreatorGroupList(userID, all, owned),
	})
}

func (r *Router) renderGroupList(ctx context.Context, art models.Artifact, page int) error {
	groups, err := r.api.ListGroups(ctx)
	if err != nil {
		return err
	}
	return r.transport.Edit(ctx, art, domain.Outbound{
		Text:     r.messages.Format("admin.groups"),
		Keyboard: render.GroupList(groups, page),
	})
}

func (r *Router) toggleGroup(ctx context.Context, groupID int64) error {
	groups, err := r.api.ListGroups(ctx)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if g.GroupID == groupID {
			return r.api.UpdateGroupStatus(ctx, groupID, !g.IsActive)
		}
	}
	return fmt.Errorf("group %d not registered", groupID)
}

func (r *Router) renderTaskCard(ctx context.Context, art models.Artifact, taskID int64) error {
	task, err := r.api.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return r.transport.Edit(ctx, art, domain.Outbound{
			Text:     r.messages.Format("admin.pick_tasks"),
			Keyboard: render.TasksMenu(),
		})
	}
	return r.transport.Edit(ctx, art, domain.Outbound{
		Text: r.messages.Format("admin.task_card",
			task.TaskID, task.CreatedAt, task.CreatorName,
			task.GroupTitle, task.GroupID, task.Status, task.TaskMessage,
		),
		Formatted: true,
		Keyboard:  render.BackTo("Back", render.CbManageTasks),
	})
}

func (r *Router) approveRegistration(ctx context.Context, art models.Artifact, userID int64, role string) error {
	if err := r.api.UpdateUserType(ctx, userID, role); err != nil {
		return err
	}
	r.classifier.Invalidate(userID)

	if _, err := r.transport.Send(ctx, userID, domain.Outbound{
		Text: r.messages.Format("start.approved", role),
	}); err != nil {
		r.logger.Warn("approval notification failed", "user_id", userID, "error", err)
	}
	return r.transport.Edit(ctx, art, domain.Outbound{
		Text: r.messages.Format("admin.role_changed", role),
	})
}

func (r *Router) declineRegistration(ctx context.Context, art models.Artifact, userID int64) error {
	if _, err := r.transport.Send(ctx, userID, domain.Outbound{
		Text: r.messages.Format("start.declined"),
	}); err != nil {
		r.logger.Warn("decline notification failed", "user_id", userID, "error", err)
	}
	return r.transport.Delete(ctx, art)
}
