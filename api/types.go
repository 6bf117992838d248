package api

import "codeflow-api/domain"

const requestMaxSize = 64 * 1024 // 64 KiB

type errorResponse struct {
	Error string `json:"error"`
}

type userView struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type settingsRequest struct {
	Name string `json:"name"`
}

type projectRequest struct {
	Name string `json:"name"`
}

type activeProjectRequest struct {
	ID string `json:"id"`
}

type projectsResponse struct {
	Projects []domain.Project `json:"projects"`
	Active   string           `json:"active"`
}

// taskRequest carries the task form. Tags travel as the raw comma separated
// string and are parsed by the service.
type taskRequest struct {
	Title    string          `json:"title"`
	Desc     string          `json:"desc"`
	Priority domain.Priority `json:"priority"`
	Status   domain.Status   `json:"status"`
	Tags     string          `json:"tags"`
	Assignee string          `json:"assignee"`
	Due      string          `json:"due"`
}

// taskPatchRequest mirrors taskRequest with optional fields: absent fields
// leave the stored value untouched.
type taskPatchRequest struct {
	Title    *string          `json:"title"`
	Desc     *string          `json:"desc"`
	Priority *domain.Priority `json:"priority"`
	Status   *domain.Status   `json:"status"`
	Tags     *string          `json:"tags"`
	Assignee *string          `json:"assignee"`
	Due      *string          `json:"due"`
}

type moveRequest struct {
	Status domain.Status `json:"status"`
}

type dragStartRequest struct {
	TaskID string `json:"taskId"`
}

type dragDropRequest struct {
	Status domain.Status `json:"status"`
}
