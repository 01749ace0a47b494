package appsync

import (
	"time"

	"todosync/internal/service"
)

// TodoItem is a task as the backend encodes it. Subscription payloads carry
// ListID; nested list items do not.
type TodoItem struct {
	ListID      string `json:"listId,omitempty"`
	TodoID      string `json:"todoId,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DueDate     *int64 `json:"dueDate"` // epoch milliseconds
	Status      string `json:"status"`
}

// Task converts the item to a service task.
// Unknown status strings are kept verbatim.
func (it TodoItem) Task() service.Task {
	t := service.Task{
		ID:          it.TodoID,
		Name:        it.Name,
		Description: it.Description,
		Status:      service.Status(it.Status),
	}
	if st, err := service.ParseStatus(it.Status); err == nil {
		t.Status = st
	}
	if it.DueDate != nil {
		d := time.UnixMilli(*it.DueDate).UTC()
		t.DueDate = &d
	}
	return t
}

// FromTask converts a service task to its wire form.
func FromTask(t service.Task) TodoItem {
	it := TodoItem{
		TodoID:      t.ID,
		Name:        t.Name,
		Description: t.Description,
		Status:      string(t.Status),
	}
	if t.DueDate != nil {
		ms := t.DueDate.UnixMilli()
		it.DueDate = &ms
	}
	return it
}

// TodoList is a list with the caller's role and nested tasks.
type TodoList struct {
	ListID      string     `json:"listId"`
	Role        int        `json:"role"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Todos       []TodoItem `json:"todos"`
}

// List converts the wire list to a service list.
func (l TodoList) List() service.List {
	out := service.List{
		ID:          l.ListID,
		Role:        service.Role(l.Role),
		Title:       l.Title,
		Description: l.Description,
		Tasks:       make([]service.Task, 0, len(l.Todos)),
	}
	for _, it := range l.Todos {
		out.Tasks = append(out.Tasks, it.Task())
	}
	return out
}

// UserToListItem is a membership record.
type UserToListItem struct {
	UserID string `json:"userId"`
	Role   int    `json:"role"`
	ListID string `json:"listId"`
}

// todoFields are the task fields every query selects.
const todoFields = `name
dueDate
todoId
description
status`

const getAllTodoListsQuery = `query getAllTodoListsQuery($username: String!, $includeTodos: Boolean) {
  getAllTodoLists(username: $username, includeTodos: $includeTodos) {
    listId
    role
    title
    description
    todos {
      ` + todoFields + `
    }
  }
}`

const createTodoListMutation = `mutation createTodoListMutation($username: String!, $item: CreateTodoListInput!) {
  createTodoList(username: $username, item: $item) {
    listId
    title
    description
  }
}`

const deleteTodoListMutation = `mutation deleteTodoListMutation($username: String!, $listid: String!) {
  deleteTodoList(username: $username, listid: $listid) {
    success
  }
}`

const createTodoMutation = `mutation createTodoMutation($username: String!, $listid: String!, $item: CreateTodoItemInput!) {
  createTodoItem(username: $username, listid: $listid, item: $item) {
    listId
    todoId
  }
}`

const updateTodoMutation = `mutation updateTodoMutation($username: String!, $listid: String!, $todoid: String!, $item: UpdateTodoItemInput!) {
  updateTodoItem(username: $username, listid: $listid, todoid: $todoid, item: $item) {
    success
  }
}`

const deleteTodoMutation = `mutation deleteTodoMutation($username: String!, $listid: String!, $todoid: String!) {
  deleteTodoItem(username: $username, listid: $listid, todoid: $todoid) {
    success
  }
}`

const shareTodoListMutation = `mutation shareTodoListMutation($username: String!, $listid: String!, $item: [ShareTodoListInput]!) {
  shareTodoList(username: $username, listid: $listid, item: $item) {
    success
  }
}`

// TodoSubscription is the task change subscription document.
const TodoSubscription = `subscription TodoSubscription($input: String!) {
  onTodoItemChange(username: $input) {
    item {
      ` + todoFields + `
      listId
    }
    type
  }
}`

// UserToListSubscription is the membership change subscription document.
const UserToListSubscription = `subscription UserToListSubscription($input: String!) {
  onUserToListChange(username: $input) {
    item {
      userId
      role
      listId
    }
    type
  }
}`
