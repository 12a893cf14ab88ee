package categories

import "time"

// Category represents a product category. Categories nest one level deep.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ParentID    *int64    `json:"parent_id,omitempty"`
	ParentName  string    `json:"parent_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FullPath renders "Parent > Child" for sub-categories.
func (c Category) FullPath() string {
	if c.ParentID != nil && c.ParentName != "" {
		return c.ParentName + " > " + c.Name
	}
	return c.Name
}

// IsTopLevel reports whether the category has no parent.
func (c Category) IsTopLevel() bool {
	return c.ParentID == nil
}

// CategoryForm is the JSON payload for create and update.
type CategoryForm struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id"`
}

func (f CategoryForm) toCategory() Category {
	return Category{Name: f.Name, Description: f.Description, ParentID: f.ParentID}
}
