package domain

// Project groups tasks on the board. Exactly one project is active at a
// time, tracked by a separate pointer value in storage.
type Project struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

var palette = [...]string{"#16a34a", "#2563eb", "#d97706", "#7c3aed", "#dc2626"}

// ProjectColor returns the display color for the nth created project,
// cycling through the fixed palette.
func ProjectColor(n int) string {
	if n < 0 {
		n = 0
	}
	return palette[n%len(palette)]
}
