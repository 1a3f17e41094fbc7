// Package taskapi is the HTTP client for the task-management backend.
// Bodies are JSON; non-2xx responses carry {"detail": "..."} which the
// client surfaces as an APIError, except 404 which becomes a nil object
// (or domain.ErrNotFound where there is no object to return).
package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskbot/internal/domain"
	"taskbot/internal/domain/models"
)

const requestTimeout = 30 * time.Second

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("task api: %d %s", e.StatusCode, e.Detail)
}

// Client talks to the task-management backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// do runs one request. body (when non-nil) is encoded as JSON; out (when
// non-nil) receives the decoded response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail struct {
			Detail string `json:"detail"`
		}
		if derr := json.NewDecoder(resp.Body).Decode(&detail); derr != nil || detail.Detail == "" {
			detail.Detail = http.StatusText(resp.StatusCode)
		}
		c.logger.Debug("task api error",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"detail", detail.Detail,
		)
		return &APIError{StatusCode: resp.StatusCode, Detail: detail.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// isNotFound reports whether err is a backend 404.
func isNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Users

// GetUser returns the user record, or nil when the backend has none.
func (c *Client) GetUser(ctx context.Context, userID int64) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", userID), nil, nil, &user)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) RegisterUser(ctx context.Context, userID int64, name, userType, username string) (*User, error) {
	req := registerUserRequest{UserID: userID, Name: name, Type: userType, UserName: username}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	var user User
	if err := c.do(ctx, http.MethodPost, "/users/", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/users/all/list", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) UpdateUserType(ctx context.Context, userID int64, newType string) error {
	body := map[string]string{"new_type": newType}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d/type", userID), nil, body, nil)
}

func (c *Client) BanUser(ctx context.Context, userID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/ban", userID), nil, nil, nil)
}

func (c *Client) UnbanUser(ctx context.Context, userID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/unban", userID), nil, nil, nil)
}

// Groups

func (c *Client) CreateGroup(ctx context.Context, groupID int64, title string, isActive bool) error {
	req := createGroupRequest{GroupID: groupID, Title: title, IsActive: isActive}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/groups/", nil, req, nil)
}

func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := c.do(ctx, http.MethodGet, "/groups/", nil, nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *Client) ActiveGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := c.do(ctx, http.MethodGet, "/groups/active", nil, nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *Client) UpdateGroupStatus(ctx context.Context, groupID int64, isActive bool) error {
	body := map[string]bool{"is_active": isActive}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/groups/%d/status", groupID), nil, body, nil)
}

func (c *Client) CreatorGroups(ctx context.Context, userID int64) ([]Group, error) {
	var groups []Group
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/groups", userID), nil, nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *Client) AssignGroupToCreator(ctx context.Context, userID, groupID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/groups/%d", userID, groupID), nil, nil, nil)
}

func (c *Client) RemoveGroupFromCreator(ctx context.Context, userID, groupID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/groups/%d", userID, groupID), nil, nil, nil)
}

// Tasks

// CreateTask creates the draft record and returns the assigned task id.
// Part of the domain.TaskStore contract.
func (c *Client) CreateTask(ctx context.Context, text string, createdBy, groupID int64) (int64, error) {
	req := createTaskRequest{TaskMessage: text, CreatedBy: createdBy, GroupID: groupID}
	if err := req.Validate(); err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	var resp struct {
		TaskID int64 `json:"task_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/tasks/", nil, req, &resp); err != nil {
		return 0, err
	}
	return resp.TaskID, nil
}

// AddAttachment registers one attachment against a task. Part of the
// domain.TaskStore contract.
func (c *Client) AddAttachment(ctx context.Context, taskID int64, item models.ContentItem) error {
	req := addAttachmentRequest{
		TaskID:   taskID,
		FileID:   item.ContentRef,
		FileType: string(item.Kind),
		FileName: item.FileName,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("add attachment: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/attachments/", nil, req, nil)
}

// GetTask returns the full task record, or nil when the backend has none.
func (c *Client) GetTask(ctx context.Context, taskID int64) (*Task, error) {
	var task Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d/full", taskID), nil, nil, &task)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) TakeTask(ctx context.Context, taskID, userID int64) (*Task, error) {
	query := url.Values{"user_id": {fmt.Sprint(userID)}}
	var task Task
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/tasks/%d/take", taskID), query, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) CancelTask(ctx context.Context, taskID, userID int64, reason string) (*Task, error) {
	query := url.Values{"user_id": {fmt.Sprint(userID)}, "reason": {reason}}
	var task Task
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/tasks/%d/cancel", taskID), query, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) CompleteTask(ctx context.Context, taskID, userID int64, note string) (*Task, error) {
	query := url.Values{"user_id": {fmt.Sprint(userID)}}
	body := map[string]any{"completion_note": note, "attachments": []any{}}
	var task Task
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/tasks/%d/complete", taskID), query, body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) CompletedTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := c.do(ctx, http.MethodGet, "/tasks/completed", nil, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) IncompleteTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := c.do(ctx, http.MethodGet, "/tasks/incomplete", nil, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// compile-time check: the client satisfies the submission contract.
var _ domain.TaskStore = (*Client)(nil)
