package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

// ConfigRepo loads and edits scrape configuration. JSONB sub-fields (key
// prefixes, invalid colors, aliases) are parsed here, once per load; a
// malformed blob fails the load of that config instead of failing per row.
type ConfigRepo struct {
	db *pgxpool.Pool
}

func NewConfigRepo(db *pgxpool.Pool) *ConfigRepo {
	return &ConfigRepo{db: db}
}

// ListActive returns every active project config joined with its project and
// agent, with column mappings attached.
func (r *ConfigRepo) ListActive(ctx context.Context) ([]domain.ProjectConfig, error) {
	const q = `
select pc.id, a.name, p.name, coalesce(pc.spreadsheet_id, ''), pc.gid,
       coalesce(pc.html_url, ''), coalesce(pc.header_row, 0),
       pc.invalid_colors, p.key_prefixes, coalesce(p.telegram_chat_id, ''),
       pc.is_active
from project_configs pc
join projects p on p.id = pc.project_id
join agents a on a.id = pc.agent_id
where pc.is_active
order by a.name, p.name, pc.id;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ProjectConfig, 0, 16)
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		cols, err := r.GetColumnMappings(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Columns = cols
	}
	return out, nil
}

// Get returns one config with its column mappings.
func (r *ConfigRepo) Get(ctx context.Context, id int64) (*domain.ProjectConfig, error) {
	const q = `
select pc.id, a.name, p.name, coalesce(pc.spreadsheet_id, ''), pc.gid,
       coalesce(pc.html_url, ''), coalesce(pc.header_row, 0),
       pc.invalid_colors, p.key_prefixes, coalesce(p.telegram_chat_id, ''),
       pc.is_active
from project_configs pc
join projects p on p.id = pc.project_id
join agents a on a.id = pc.agent_id
where pc.id = $1;
`
	row := r.db.QueryRow(ctx, q, id)
	cfg, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg.Columns, err = r.GetColumnMappings(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetColumnMappings returns the column definitions of one config, aliases
// already parsed out of JSONB.
func (r *ConfigRepo) GetColumnMappings(ctx context.Context, configID int64) ([]domain.ColumnDefinition, error) {
	const q = `
select internal_name, display_name, aliases, is_identifier
from column_mappings
where config_id = $1
order by id;
`
	rows, err := r.db.Query(ctx, q, configID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ColumnDefinition, 0, 4)
	for rows.Next() {
		var (
			def     domain.ColumnDefinition
			aliases []byte
		)
		if err := rows.Scan(&def.InternalName, &def.DisplayName, &aliases, &def.IsIdentifier); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(aliases, &def.Aliases); err != nil {
			return nil, fmt.Errorf("config %d column %q: %w: %v",
				configID, def.InternalName, domain.ErrInvalidAliasConfig, err)
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

// CreateAgent inserts an agent if missing and returns its id.
func (r *ConfigRepo) CreateAgent(ctx context.Context, name string) (int64, error) {
	const q = `
insert into agents (name) values ($1)
on conflict (name) do update set name = excluded.name
returning id;
`
	var id int64
	err := r.db.QueryRow(ctx, q, name).Scan(&id)
	return id, err
}

// CreateProject inserts a project if missing and returns its id.
func (r *ConfigRepo) CreateProject(ctx context.Context, name, chatID string, keyPrefixes []string) (int64, error) {
	prefixes, err := json.Marshal(emptyIfNil(keyPrefixes))
	if err != nil {
		return 0, err
	}

	const q = `
insert into projects (name, telegram_chat_id, key_prefixes)
values ($1, nullif($2, ''), $3)
on conflict (name) do update
set telegram_chat_id = excluded.telegram_chat_id,
    key_prefixes = excluded.key_prefixes
returning id;
`
	var id int64
	err = r.db.QueryRow(ctx, q, name, chatID, prefixes).Scan(&id)
	return id, err
}

// CreateConfig inserts a project config and its default identifier mapping.
func (r *ConfigRepo) CreateConfig(ctx context.Context, projectID, agentID int64, spreadsheetID, gid, htmlURL string, headerRow int, invalidColors []string) (int64, error) {
	if spreadsheetID == "" && htmlURL == "" {
		return 0, fmt.Errorf("either spreadsheet_id or html_url is required")
	}
	colors, err := json.Marshal(emptyIfNil(invalidColors))
	if err != nil {
		return 0, err
	}

	const q = `
insert into project_configs (project_id, agent_id, spreadsheet_id, gid, html_url, header_row, invalid_colors)
values ($1, $2, nullif($3, ''), $4, nullif($5, ''), nullif($6, 0), $7)
returning id;
`
	var id int64
	err = r.db.QueryRow(ctx, q, projectID, agentID, spreadsheetID, gid, htmlURL, headerRow, colors).Scan(&id)
	return id, err
}

// UpsertColumnMapping creates or replaces one column definition of a config.
func (r *ConfigRepo) UpsertColumnMapping(ctx context.Context, configID int64, def domain.ColumnDefinition) error {
	aliases, err := json.Marshal(emptyIfNil(def.Aliases))
	if err != nil {
		return err
	}

	const q = `
insert into column_mappings (config_id, internal_name, display_name, aliases, is_identifier)
values ($1, $2, $3, $4, $5)
on conflict (config_id, internal_name) do update
set display_name = excluded.display_name,
    aliases = excluded.aliases,
    is_identifier = excluded.is_identifier;
`
	_, err = r.db.Exec(ctx, q, configID, def.InternalName, def.DisplayName, aliases, def.IsIdentifier)
	return err
}

// SetActive toggles a config in or out of the scan loop.
func (r *ConfigRepo) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	const q = `
update project_configs
set is_active = $2, updated_at = now()
where id = $1;
`
	ct, err := r.db.Exec(ctx, q, id, active)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func scanConfig(row pgx.Row) (domain.ProjectConfig, error) {
	var (
		cfg              domain.ProjectConfig
		colors, prefixes []byte
	)
	err := row.Scan(&cfg.ID, &cfg.AgentName, &cfg.ProjectName, &cfg.SpreadsheetID,
		&cfg.GID, &cfg.HTMLURL, &cfg.HeaderRow, &colors, &prefixes,
		&cfg.TelegramChatID, &cfg.Active)
	if err != nil {
		return domain.ProjectConfig{}, err
	}
	if err := json.Unmarshal(colors, &cfg.InvalidColors); err != nil {
		return domain.ProjectConfig{}, fmt.Errorf("config %d invalid_colors: %w", cfg.ID, err)
	}
	if err := json.Unmarshal(prefixes, &cfg.KeyPrefixes); err != nil {
		return domain.ProjectConfig{}, fmt.Errorf("config %d key_prefixes: %w", cfg.ID, err)
	}
	return cfg, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
