package domain

// TaskPatch carries the fields of a task edit. A nil field leaves the stored
// value untouched; a set field always wins.
type TaskPatch struct {
	Title    *string   `json:"title,omitempty"`
	Desc     *string   `json:"desc,omitempty"`
	Priority *Priority `json:"priority,omitempty"`
	Status   *Status   `json:"status,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	Assignee *string   `json:"assignee,omitempty"`
	Due      *string   `json:"due,omitempty"`
	Project  *string   `json:"project,omitempty"`
}

// Apply merges the patch onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Desc != nil {
		t.Desc = *p.Desc
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
	if p.Due != nil {
		t.Due = *p.Due
	}
	if p.Project != nil {
		t.Project = *p.Project
	}
}
