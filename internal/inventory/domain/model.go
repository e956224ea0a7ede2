package domain

import "time"

// ColumnDefinition maps one internal field name to the header labels it may
// appear under in a scraped sheet. Exactly one definition per config is the
// identifier column.
type ColumnDefinition struct {
	InternalName string   `json:"internal_name"`
	DisplayName  string   `json:"display_name"`
	Aliases      []string `json:"aliases"`
	IsIdentifier bool     `json:"is_identifier"`
}

// ProjectConfig is one configured scrape target: an (agent, project) pair
// plus its data source and extraction rules. Aliases, invalid colors and key
// prefixes are parsed out of their JSONB columns when the config is loaded,
// never per row.
type ProjectConfig struct {
	ID             int64              `json:"id"`
	AgentName      string             `json:"agent_name"`
	ProjectName    string             `json:"project_name"`
	SpreadsheetID  string             `json:"spreadsheet_id,omitempty"`
	GID            string             `json:"gid,omitempty"`
	HTMLURL        string             `json:"html_url,omitempty"`
	HeaderRow      int                `json:"header_row,omitempty"` // 1-based, 0 = auto-detect
	InvalidColors  []string           `json:"invalid_colors"`       // lower-cased hex, e.g. "#ff0000"
	KeyPrefixes    []string           `json:"key_prefixes"`
	TelegramChatID string             `json:"telegram_chat_id,omitempty"`
	Active         bool               `json:"is_active"`
	Columns        []ColumnDefinition `json:"columns,omitempty"`
}

// Grid is a rectangular array of cell display text for one scraped
// table/section. Merged regions are pre-expanded by the fetcher: the top-left
// cell holds the text, covered cells hold "".
type Grid [][]string

// ColorGrid holds the background color of each cell as a lower-cased hex
// string ("" for no fill). Same dimensions as the data grid it accompanies.
type ColorGrid [][]string

// HeaderInfo is the result of locating the header row and resolving every
// configured column to a grid column index. Recomputed on every run.
type HeaderInfo struct {
	HeaderRow        int            `json:"header_row"` // 0-based
	IdentifierColumn string         `json:"identifier_column"`
	ColumnIndex      map[string]int `json:"column_index"` // internal name -> column, -1 if unmapped
}

// Record holds the tracked field values of one unit. A nil value means the
// cell was blank or its column was not found in the header.
type Record map[string]*string

// Snapshot is a point-in-time mapping from canonical unit key to its record.
// Snapshots are immutable once stored; "latest" is most recent by timestamp.
type Snapshot map[string]Record

// FieldChange is one modified field of a unit that exists in both snapshots.
type FieldChange struct {
	Field string  `json:"field"`
	Old   *string `json:"old"`
	New   *string `json:"new"`
}

// KeyChange bundles every modified field of one unit, so downstream
// notification groups changes per unit rather than per field.
type KeyChange struct {
	Key    string        `json:"key"`
	Fields []FieldChange `json:"fields"`
}

// DiffResult is the outcome of comparing two snapshots. Added and Removed are
// sorted ascending and never overlap.
type DiffResult struct {
	Added   []string    `json:"added"`
	Removed []string    `json:"removed"`
	Changed []KeyChange `json:"changed"`
}

// Empty reports whether the diff carries no changes at all.
func (d DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Change types recorded in the change log.
const (
	ChangeAdded   = "added"
	ChangeRemoved = "removed"
	ChangeChanged = "changed"
)

// ChangeRecord is one change-log row: a unit that was added, removed or
// modified during a scan run.
type ChangeRecord struct {
	ID        int64         `json:"id,omitempty"`
	ConfigID  int64         `json:"config_id"`
	Type      string        `json:"change_type"`
	Key       string        `json:"key"`
	Fields    []FieldChange `json:"fields,omitempty"`
	Timestamp time.Time     `json:"timestamp,omitempty"`
}

// ScanResult is the per-config outcome of one run, before aggregation.
type ScanResult struct {
	Config ProjectConfig `json:"config"`
	Diff   DiffResult    `json:"diff"`
	Units  int           `json:"units"`
}

// GroupKey identifies the (agent, project) pair results are aggregated under.
// Multiple data sources may feed one logical project.
type GroupKey struct {
	AgentName   string `json:"agent_name"`
	ProjectName string `json:"project_name"`
}

// GroupedResult is the aggregated diff for one (agent, project) pair.
type GroupedResult struct {
	GroupKey
	TelegramChatID string     `json:"telegram_chat_id,omitempty"`
	Diff           DiffResult `json:"diff"`
}
