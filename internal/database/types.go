package database

// Item is the universal record stored by the engine. See CreateItem,
// GetItem, UpdateItem.
type Item struct {
	ID              int64
	Type            string
	Title           string
	Description     string
	Content         string
	AISummary       string
	StatusID        int64
	Priority        string
	Category        string
	StartDate       string
	EndDate         string
	Version         string
	SearchIndex     string
	Embedding       []byte
	EnricherVersion string
	CreatedAt       int64 // milliseconds since epoch
	UpdatedAt       int64
}

// ItemView is the fully-resolved read projection returned by GetItem: the
// raw row plus resolved status name, tag names, keyword/concept lists and
// related ids.
type ItemView struct {
	Item
	StatusName string
	Tags       []string
	Keywords   []WeightedTerm
	Concepts   []WeightedTerm
	Related    []int64
}

// ItemSummary is the lightweight projection returned by ListItems.
type ItemSummary struct {
	ID          int64
	Type        string
	Title       string
	Description string
	StatusName  string
	Priority    string
	Tags        []string
	UpdatedAt   int64
}

// WeightedTerm is a (word-or-concept-name, weight) pair.
type WeightedTerm struct {
	Term   string
	Weight float64
}

// Status is a row of the Status Registry (C2).
type Status struct {
	ID         int64
	Name       string
	SortOrder  int
	IsClosable bool
}

// Tag is a row of the Tag Store (C3).
type Tag struct {
	ID   int64
	Name string
}

// TypeDefinition is a row of the Type Registry (C1).
type TypeDefinition struct {
	Name        string
	BaseType    string
	Description string
}

// CurrentState is the singleton "project state" document (C8).
type CurrentState struct {
	Content   string
	Tags      []string
	Related   []int64
	UpdatedAt int64
	UpdatedBy string
}

// ItemFilters constrains ListItems.
type ItemFilters struct {
	Types                 []string
	Statuses              []string
	Priority              string
	Tags                  []string
	StartDate             string
	EndDate               string
	IncludeClosedStatuses bool
	Limit                 int
	Offset                int
}

// SearchFilters constrains the structured/keyword search path (C6).
type SearchFilters struct {
	Statuses              []string
	Types                 []string
	IsOpen                *bool
	Priority              string
	Keywords              []string
	IncludeClosedStatuses bool
	Limit                 int
	Offset                int
}

// Stats is returned by GetStats.
type Stats struct {
	ItemsByType   map[string]int
	ItemsByStatus map[string]int
	TotalTags     int
	LastUpdatedAt int64
}
