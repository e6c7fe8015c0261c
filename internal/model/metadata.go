package model

import "time"

// NormalizedType is the common type vocabulary every backend's native
// column type is mapped into, per spec §3.
type NormalizedType string

const (
	TypeInteger   NormalizedType = "integer"
	TypeNumber    NormalizedType = "number"
	TypeString    NormalizedType = "string"
	TypeBoolean   NormalizedType = "boolean"
	TypeDate      NormalizedType = "date"
	TypeTimestamp NormalizedType = "timestamp"
	TypeJSON      NormalizedType = "json"
	TypeArray     NormalizedType = "array"
)

// TableType distinguishes base tables from views.
type TableType string

const (
	TableKindTable TableType = "table"
	TableKindView  TableType = "view"
)

// TableMetadata describes one table or view within a connection.
type TableMetadata struct {
	Name         string     `json:"name"`
	SchemaName   string     `json:"schema_name"`
	Description  string     `json:"description,omitempty"`
	Type         TableType  `json:"type"`
	RowCount     *int64     `json:"rowCount,omitempty"`
	DisplayName  string     `json:"displayName,omitempty"`
	Category     string     `json:"category,omitempty"`
	Explorable   bool       `json:"explorable"`
	RefreshedAt  *time.Time `json:"refreshedAt,omitempty"`
	Columns      []ColumnMetadata `json:"columns"`
}

// ColumnMetadata describes one column of a table.
type ColumnMetadata struct {
	Name        string         `json:"name"`
	TableName   string         `json:"tableName"`
	DataType    NormalizedType `json:"dataType"`
	Nullable    bool           `json:"nullable"`
	Description string         `json:"description,omitempty"`
	PrimaryKey  bool           `json:"primaryKey"`
	ForeignKey  string         `json:"foreignKey,omitempty"` // "table.column"
	DisplayName string         `json:"displayName,omitempty"`
	Cardinality *int64         `json:"cardinality,omitempty"`
	SpecialType string         `json:"specialType,omitempty"`
	ValueMap    map[string]any `json:"valueMap,omitempty"`
	Explorable  bool           `json:"explorable"`
}

// RelationshipKind is the cardinality of an inferred relationship.
type RelationshipKind string

const (
	RelOneToOne   RelationshipKind = "one-to-one"
	RelOneToMany  RelationshipKind = "one-to-many"
	RelManyToOne  RelationshipKind = "many-to-one"
	RelManyToMany RelationshipKind = "many-to-many"
)

// RelationshipMetadata describes an inferred or declared foreign-key edge.
type RelationshipMetadata struct {
	SourceTable  string           `json:"sourceTable"`
	SourceColumn string           `json:"sourceColumn"`
	TargetTable  string           `json:"targetTable"`
	TargetColumn string           `json:"targetColumn"`
	Relationship RelationshipKind `json:"relationship"`
	Automatic    bool             `json:"automatic"`
}

// TableMetadataPatch carries the display-only fields updateTableMetadata
// is allowed to mutate, per spec §4.3.
type TableMetadataPatch struct {
	DisplayName *string `json:"displayName,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Explorable  *bool   `json:"explorable,omitempty"`
}
