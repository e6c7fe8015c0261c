package model

// Source identifies the connection and table a query targets.
type Source struct {
	ConnectionID string `json:"connectionId"`
	Table        string `json:"table"`
}

// FilterKind discriminates the FilterNode tagged union.
type FilterKind string

const (
	FilterCondition FilterKind = "condition"
	FilterGroup     FilterKind = "group"
)

// GroupLogic is the boolean operator joining a Group's children.
type GroupLogic string

const (
	LogicAnd GroupLogic = "and"
	LogicOr  GroupLogic = "or"
)

// FilterNode is the discriminated union of spec §3:
// Condition{column, operator, value} | Group{logic, conditions}.
// Exactly one of (Column/Operator/Value) or (Logic/Conditions) is set,
// per Kind.
type FilterNode struct {
	Kind FilterKind `json:"kind"`

	// Condition fields.
	Column   string `json:"column,omitempty"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value,omitempty"`

	// Group fields.
	Logic      GroupLogic   `json:"logic,omitempty"`
	Conditions []FilterNode `json:"conditions,omitempty"`
}

// IsGroup reports whether the node is a Group rather than a Condition.
// Mirrors the original translator's hasattr(filter_item, "logic") check:
// a node with a non-empty Logic is treated as a group regardless of Kind,
// so callers that only set Logic/Conditions (without Kind) still work.
func (n FilterNode) IsGroup() bool {
	return n.Logic != "" || len(n.Conditions) > 0
}

// AggFunction is one of the five supported aggregation functions.
type AggFunction string

const (
	AggCount AggFunction = "count"
	AggSum   AggFunction = "sum"
	AggAvg   AggFunction = "avg"
	AggMin   AggFunction = "min"
	AggMax   AggFunction = "max"
)

// Agg is a single aggregation to project.
type Agg struct {
	Column   string      `json:"column,omitempty"`
	Function AggFunction `json:"function"`
	Alias    string      `json:"alias"`
}

// Sort is a single ORDER BY entry.
type Sort struct {
	Column    string `json:"column"`
	Direction string `json:"direction"` // "asc" | "desc"
}

// CustomRange bounds a "custom" TimeRange.
type CustomRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// TimeRange names the time column and the relative or custom window
// applied to it.
type TimeRange struct {
	Column      string       `json:"column,omitempty"`
	Range       string       `json:"range"`
	Granularity string       `json:"granularity,omitempty"`
	CustomRange *CustomRange `json:"customRange,omitempty"`
}

// Visualization is a projection hint; the translator only reads Type.
type Visualization struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// QueryModel is the typed JSON IR the Translator consumes, per spec §3.
type QueryModel struct {
	Source             Source         `json:"source"`
	Filters            []FilterNode   `json:"filters,omitempty"`
	GroupBy            []string       `json:"groupBy,omitempty"`
	Agg                []Agg          `json:"agg,omitempty"`
	TimeRange          *TimeRange     `json:"timeRange,omitempty"`
	Sort               []Sort         `json:"sort,omitempty"`
	Limit              *int           `json:"limit,omitempty"`
	Offset             *int           `json:"offset,omitempty"`
	IsServerPagination bool           `json:"isServerPagination"`
	Visualization      *Visualization `json:"visualization,omitempty"`
	SelectedFields     []string       `json:"selectedFields,omitempty"`
	Granularity        string         `json:"granularity,omitempty"`
}

// VisualizationType returns the visualization hint, defaulting to "table".
func (q *QueryModel) VisualizationType() string {
	if q.Visualization == nil || q.Visualization.Type == "" {
		return "table"
	}
	return q.Visualization.Type
}
