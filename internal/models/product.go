package models

type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Price       string   `json:"price"` // display string, e.g. "$499"
	ImageURL    string   `json:"image_url,omitempty"`
	Features    []string `json:"features,omitempty"`
}

func ProductKey(p Product) string {
	return p.ID
}
