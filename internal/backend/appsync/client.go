// Package appsync implements service.Backend over the AppSync GraphQL API.
package appsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"
	graphql "github.com/hasura/go-graphql-client"

	"todosync/internal/service"
)

const (
	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// maxErrorMessage bounds how much of a failed response is kept in errors.
	maxErrorMessage = 512
)

// TokenSource supplies the identity token sent with every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client implements service.Backend.
type Client struct {
	gql    *graphql.Client
	tokens TokenSource
}

// New creates a client for the GraphQL endpoint.
func New(graphqlURL string, tokens TokenSource) *Client {
	return NewWithHTTPClient(graphqlURL, tokens, http.DefaultClient)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(graphqlURL string, tokens TokenSource, httpClient *http.Client) *Client {
	return &Client{
		gql:    graphql.NewClient(graphqlURL, httpClient),
		tokens: tokens,
	}
}

// FetchAllLists returns every list the user can see.
func (c *Client) FetchAllLists(ctx context.Context, username string, includeTasks bool) ([]service.List, error) {
	var data struct {
		GetAllTodoLists []TodoList `json:"getAllTodoLists"`
	}
	err := c.do(ctx, "getAllTodoLists", getAllTodoListsQuery, map[string]any{
		"username":     username,
		"includeTodos": includeTasks,
	}, &data)
	if err != nil {
		return nil, err
	}

	lists := make([]service.List, 0, len(data.GetAllTodoLists))
	for _, l := range data.GetAllTodoLists {
		lists = append(lists, l.List())
	}
	return lists, nil
}

// CreateList creates a list owned by the user.
func (c *Client) CreateList(ctx context.Context, username string, in service.ListInput) (service.List, error) {
	var data struct {
		CreateTodoList *TodoList `json:"createTodoList"`
	}
	err := c.do(ctx, "createTodoList", createTodoListMutation, map[string]any{
		"username": username,
		"item": map[string]any{
			"listId":      in.ID,
			"title":       in.Title,
			"description": in.Description,
		},
	}, &data)
	if err != nil {
		return service.List{}, err
	}
	if data.CreateTodoList == nil || data.CreateTodoList.ListID == "" {
		return service.List{}, fmt.Errorf("createTodoList returned no list: %w", service.ErrBackend)
	}

	list := data.CreateTodoList.List()
	list.Role = service.RoleOwner
	return list, nil
}

// DeleteList deletes a list.
func (c *Client) DeleteList(ctx context.Context, username, listID string) (bool, error) {
	var data struct {
		DeleteTodoList *successResult `json:"deleteTodoList"`
	}
	err := c.do(ctx, "deleteTodoList", deleteTodoListMutation, map[string]any{
		"username": username,
		"listid":   listID,
	}, &data)
	return data.DeleteTodoList.ok(), err
}

// CreateTask creates a task and returns its ID.
func (c *Client) CreateTask(ctx context.Context, username, listID string, task service.Task) (string, error) {
	var data struct {
		CreateTodoItem *struct {
			ListID string `json:"listId"`
			TodoID string `json:"todoId"`
		} `json:"createTodoItem"`
	}
	err := c.do(ctx, "createTodoItem", createTodoMutation, map[string]any{
		"username": username,
		"listid":   listID,
		"item":     FromTask(task),
	}, &data)
	if err != nil {
		return "", err
	}
	if data.CreateTodoItem == nil || data.CreateTodoItem.TodoID == "" {
		return "", fmt.Errorf("createTodoItem returned no id: %w", service.ErrBackend)
	}
	return data.CreateTodoItem.TodoID, nil
}

// UpdateTask replaces the fields of a task.
func (c *Client) UpdateTask(ctx context.Context, username, listID, taskID string, task service.Task) (bool, error) {
	item := FromTask(task)
	item.TodoID = ""

	var data struct {
		UpdateTodoItem *successResult `json:"updateTodoItem"`
	}
	err := c.do(ctx, "updateTodoItem", updateTodoMutation, map[string]any{
		"username": username,
		"listid":   listID,
		"todoid":   taskID,
		"item":     item,
	}, &data)
	return data.UpdateTodoItem.ok(), err
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, username, listID, taskID string) (bool, error) {
	var data struct {
		DeleteTodoItem *successResult `json:"deleteTodoItem"`
	}
	err := c.do(ctx, "deleteTodoItem", deleteTodoMutation, map[string]any{
		"username": username,
		"listid":   listID,
		"todoid":   taskID,
	}, &data)
	return data.DeleteTodoItem.ok(), err
}

// ShareList grants roles on a list to other users.
func (c *Client) ShareList(ctx context.Context, username, listID string, grants []service.Grant) (bool, error) {
	items := make([]map[string]any, 0, len(grants))
	for _, g := range grants {
		items = append(items, map[string]any{"userId": g.UserID, "role": int(g.Role)})
	}

	var data struct {
		ShareTodoList *successResult `json:"shareTodoList"`
	}
	err := c.do(ctx, "shareTodoList", shareTodoListMutation, map[string]any{
		"username": username,
		"listid":   listID,
		"item":     items,
	}, &data)
	return data.ShareTodoList.ok(), err
}

type successResult struct {
	Success bool `json:"success"`
}

func (r *successResult) ok() bool {
	return r != nil && r.Success
}

// do runs one GraphQL operation and decodes its data into out.
func (c *Client) do(ctx context.Context, op, query string, vars map[string]any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	gql := c.gql.WithRequestModifier(func(r *http.Request) {
		r.Header.Set("Authorization", token)
	})

	glog.V(2).Infof("[gql]%s ->", op)
	data, err := gql.ExecRaw(ctx, query, vars)
	if err != nil {
		if ctx.Err() != nil {
			return wrapError(op, ctx.Err())
		}
		return classify(op, err)
	}
	glog.V(2).Infof("[gql]%s <- %d bytes", op, len(data))

	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%s: empty response: %w", op, service.ErrBackend)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: invalid data: %v: %w", op, err, service.ErrBackend)
	}
	return nil
}

// classify maps GraphQL and transport errors to service errors. A rejected
// or expired token surfaces either as an HTTP 401/403 or as an
// authorization message on the GraphQL error.
func classify(op string, err error) error {
	var errs graphql.Errors
	if !errors.As(err, &errs) {
		return wrapError(op, err)
	}

	msgs := make([]string, 0, len(errs))
	unauthorized := false
	for _, e := range errs {
		msgs = append(msgs, e.Message)
		if isAuthMessage(e.Message) {
			unauthorized = true
		}
	}
	msg := truncate(strings.Join(msgs, "; "))
	if unauthorized {
		return fmt.Errorf("%s: %s (run: todosync login): %w", op, msg, service.ErrNotAuthenticated)
	}
	return fmt.Errorf("%s: %s: %w", op, msg, service.ErrBackend)
}

func isAuthMessage(msg string) bool {
	for _, s := range []string{"401 Unauthorized", "403 Forbidden", "UnauthorizedException", "Not Authorized", "authorization header"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// wrapError wraps transport errors with user-friendly messages.
func wrapError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: request timed out: %w", op, service.ErrBackend)
	}
	return fmt.Errorf("%s: %v: %w", op, err, service.ErrBackend)
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorMessage {
		return s[:maxErrorMessage] + "..."
	}
	return s
}
