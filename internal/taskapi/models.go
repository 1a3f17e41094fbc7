package taskapi

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Task statuses as the backend spells them.
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// User is a backend user record.
type User struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	UserName string `json:"user_name"`
	Type     string `json:"type"`
	IsBanned bool   `json:"is_banned"`
}

// Group is a chat registered as a task target.
type Group struct {
	GroupID  int64  `json:"group_id"`
	Title    string `json:"title"`
	IsActive bool   `json:"is_active"`
}

// Attachment is a file registered against a task.
type Attachment struct {
	AttachmentID int64  `json:"attachment_id"`
	TaskID       int64  `json:"task_id"`
	FileID       string `json:"file_id"`
	FileType     string `json:"file_type"`
	FileName     string `json:"file_name"`
}

// HistoryEntry is one status transition in a task's history.
type HistoryEntry struct {
	CreatedAt string `json:"created_at"`
	Status    string `json:"status"`
	Comment   string `json:"comment"`
	UserID    int64  `json:"user_id"`
	UserName  string `json:"user_name"`
}

// Task is a backend task record, full form.
type Task struct {
	TaskID      int64          `json:"task_id"`
	TaskMessage string         `json:"task_message"`
	Status      string         `json:"status"`
	CreatedBy   int64          `json:"created_by"`
	CreatorName string         `json:"creator_name"`
	CreatedAt   string         `json:"created_at"`
	GroupID     int64          `json:"group_id"`
	GroupTitle  string         `json:"group_title"`
	Attachments []Attachment   `json:"attachments"`
	History     []HistoryEntry `json:"history"`
	TakenBy     []User         `json:"taken_by"`
}

// createTaskRequest is the POST /tasks/ body.
type createTaskRequest struct {
	TaskMessage string `json:"task_message"`
	CreatedBy   int64  `json:"created_by"`
	GroupID     int64  `json:"group_id"`
}

func (r createTaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TaskMessage, validation.Required),
		validation.Field(&r.CreatedBy, validation.Required),
		validation.Field(&r.GroupID, validation.Required),
	)
}

// addAttachmentRequest is the POST /attachments/ body.
type addAttachmentRequest struct {
	TaskID   int64  `json:"task_id"`
	FileID   string `json:"file_id"`
	FileType string `json:"file_type"`
	FileName string `json:"file_name,omitempty"`
}

func (r addAttachmentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TaskID, validation.Required),
		validation.Field(&r.FileID, validation.Required),
		validation.Field(&r.FileType, validation.Required),
	)
}

// registerUserRequest is the POST /users/ body.
type registerUserRequest struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	UserName string `json:"user_name"`
}

func (r registerUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Type, validation.Required),
	)
}

// createGroupRequest is the POST /groups/ body.
type createGroupRequest struct {
	GroupID  int64  `json:"group_id"`
	Title    string `json:"title"`
	IsActive bool   `json:"is_active"`
}

func (r createGroupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.GroupID, validation.Required),
		validation.Field(&r.Title, validation.Required),
	)
}
