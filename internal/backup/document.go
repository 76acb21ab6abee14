package backup

import (
	"sort"

	"github.com/roach88/costbook/internal/recipe"
)

// App identifies documents written by this program.
const App = "costbook"

// SchemaVersion is the document layout version written by Export and the
// only one Import accepts.
const SchemaVersion = 1

// Document is the backup envelope.
type Document struct {
	App           string            `json:"app"`
	SchemaVersion int               `json:"schemaVersion"`
	ExportID      string            `json:"exportId,omitempty"`
	ExportedAt    string            `json:"exportedAt"`
	CurrentRecipe string            `json:"currentRecipe"`
	Settings      Settings          `json:"settings"`
	Folders       []string          `json:"folders"`
	Recipes       map[string]Recipe `json:"recipes"`
}

// Settings holds the process-wide values.
type Settings struct {
	MarginPct       float64                      `json:"marginPct"`
	IngredientCache map[string]recipe.CacheEntry `json:"ingredientCache"`
}

// Recipe is one recipe's rows and metadata.
type Recipe struct {
	Rows []recipe.Row `json:"rows"`
	Meta recipe.Meta  `json:"meta"`
}

// Names returns the recipe names in the document, sorted.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Recipes))
	for name := range d.Recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
