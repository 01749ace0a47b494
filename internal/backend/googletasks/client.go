// Package googletasks reads task lists from the Google Tasks API so they can
// be imported into todosync.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang/glog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"todosync/internal/service"
)

const (
	// PageSize is the number of lists or tasks per page.
	PageSize = 100

	// APITimeout bounds a whole FetchLists call.
	APITimeout = 30 * time.Second

	// Scope is the OAuth scope requested for import. Import never writes.
	Scope = tasks.TasksReadonlyScope

	statusCompleted = "completed"
)

// Client reads lists and tasks from Google Tasks.
type Client struct {
	svc *tasks.Service
}

// OAuthConfig parses Google OAuth client credentials (the JSON downloaded
// from the cloud console).
func OAuthConfig(clientJSON []byte) (*oauth2.Config, error) {
	oc, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid google_oauth_client.json: %w", err)
	}
	return oc, nil
}

// LoadToken reads a stored Google token. A token without a refresh token
// is unusable.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid google_token.json: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, errors.New("google_token.json has no refresh token")
	}
	return &tok, nil
}

// SaveToken saves a Google token to a file with mode 0600.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// New creates a client authorized with tok. The token is refreshed as
// needed.
func New(ctx context.Context, oauthConfig *oauth2.Config, tok *oauth2.Token) (*Client, error) {
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, tok))
	return NewWithHTTPClient(ctx, httpClient)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// FetchLists returns every task list with its tasks, in API order.
// Lists get the Google IDs; hidden and deleted tasks are skipped.
func (c *Client) FetchLists(ctx context.Context) ([]service.List, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result []service.List
	err := c.svc.Tasklists.List().MaxResults(PageSize).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, tl := range resp.Items {
			result = append(result, service.List{
				ID:    tl.Id,
				Role:  service.RoleOwner,
				Title: tl.Title,
			})
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}

	for i := range result {
		items, err := c.fetchTasks(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Tasks = items
		glog.V(1).Infof("[google]list %q: %d tasks", result[i].Title, len(items))
	}
	return result, nil
}

func (c *Client) fetchTasks(ctx context.Context, listID string) ([]service.Task, error) {
	var result []service.Task
	err := c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowDeleted(false).
		ShowHidden(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				if t.Deleted || t.Hidden {
					continue
				}
				result = append(result, convertTask(t))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// convertTask maps a Google task. Google stores due dates as midnight UTC
// and drops the time of day, so only the date is kept.
func convertTask(t *tasks.Task) service.Task {
	task := service.Task{
		ID:          t.Id,
		Name:        t.Title,
		Description: t.Notes,
		Status:      service.StatusNotStarted,
	}
	if t.Status == statusCompleted {
		task.Status = service.StatusCompleted
	}
	if t.Due != "" {
		if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
			local := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.Local)
			task.DueDate = &local
		} else {
			glog.Infof("[google]task %s: bad due date %q", t.Id, t.Due)
		}
	}
	return task
}

// wrapError classifies API errors.
func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("google tasks: request timed out: %w", service.ErrBackend)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("google token expired or revoked (run: todosync import-google --reauth): %w", service.ErrNotAuthenticated)
		}
		return fmt.Errorf("google tasks: %d %s: %w", apiErr.Code, apiErr.Message, service.ErrBackend)
	}
	return fmt.Errorf("google tasks: %v: %w", err, service.ErrBackend)
}
