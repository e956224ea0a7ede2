package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
	"github.com/unitwatch/inventory-backend/internal/inventory/fetch"
	"github.com/unitwatch/inventory-backend/internal/inventory/notify"
	"github.com/unitwatch/inventory-backend/internal/inventory/report"
	"github.com/unitwatch/inventory-backend/internal/inventory/scan"
)

// ConfigStore lists the scan configurations a run should cover.
type ConfigStore interface {
	ListActive(ctx context.Context) ([]domain.ProjectConfig, error)
}

// SnapshotStore persists extracted snapshots per configuration.
type SnapshotStore interface {
	GetLatest(ctx context.Context, configID int64) (domain.Snapshot, error)
	Add(ctx context.Context, configID int64, snap domain.Snapshot) error
}

// ChangeStore appends change-log rows produced by a run.
type ChangeStore interface {
	Add(ctx context.Context, records []domain.ChangeRecord) error
}

// RunState guards against concurrent scans of the same configuration and
// against double notifications within one day.
type RunState interface {
	AcquireLock(ctx context.Context, configID int64) (bool, error)
	ReleaseLock(ctx context.Context, configID int64) error
	MarkNotified(ctx context.Context, agent, project, day string) error
	WasNotified(ctx context.Context, agent, project, day string) (bool, error)
}

// Notifier delivers one grouped diff message per (agent, project) pair.
type Notifier interface {
	Send(ctx context.Context, chatID, text string) error
	Pause(ctx context.Context)
}

// RunSummary is what one full scan run produced.
type RunSummary struct {
	RunID     string                 `json:"run_id"`
	StartedAt time.Time              `json:"started_at"`
	Results   []domain.ScanResult    `json:"results"`
	Groups    []domain.GroupedResult `json:"groups"`
	ExcelPath string                 `json:"excel_path,omitempty"`
	JSONPath  string                 `json:"json_path,omitempty"`
	Failed    int                    `json:"failed"`
}

// Scanner orchestrates one scan run: fetch every active configuration,
// extract a snapshot, diff it against the stored one, persist the results
// and notify per (agent, project) pair.
type Scanner struct {
	configs   ConfigStore
	snapshots SnapshotStore
	changes   ChangeStore
	state     RunState
	notifier  Notifier

	htmlFetcher fetch.Fetcher
	apiFetcher  fetch.Fetcher

	reportsDir   string
	minKeyLength int
}

// ScannerOption tweaks optional Scanner collaborators.
type ScannerOption func(*Scanner)

// WithAPIFetcher makes the scanner prefer the Sheets API for configurations
// that carry a spreadsheet ID.
func WithAPIFetcher(f fetch.Fetcher) ScannerOption {
	return func(s *Scanner) { s.apiFetcher = f }
}

// WithNotifier enables Telegram delivery of grouped results.
func WithNotifier(n Notifier) ScannerOption {
	return func(s *Scanner) { s.notifier = n }
}

// WithRunState enables redis-backed locking and notification dedupe.
func WithRunState(st RunState) ScannerOption {
	return func(s *Scanner) { s.state = st }
}

// WithReportsDir sets where Excel/JSON run reports are written. Empty
// disables report files.
func WithReportsDir(dir string) ScannerOption {
	return func(s *Scanner) { s.reportsDir = dir }
}

// WithMinKeyLength overrides the extractor's key-length floor.
func WithMinKeyLength(n int) ScannerOption {
	return func(s *Scanner) { s.minKeyLength = n }
}

// NewScanner creates a scanner over the given stores and htmlview fetcher.
func NewScanner(configs ConfigStore, snapshots SnapshotStore, changes ChangeStore, htmlFetcher fetch.Fetcher, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		configs:     configs,
		snapshots:   snapshots,
		changes:     changes,
		htmlFetcher: htmlFetcher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one full scan over every active configuration. A failing
// configuration is logged and reported as a zero-change result; it never
// aborts the run.
func (s *Scanner) Run(ctx context.Context) (*RunSummary, error) {
	runAt := time.Now()
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: runAt,
	}

	cfgs, err := s.configs.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active configs: %w", err)
	}
	log.Printf("scan run %s: %d active configs", summary.RunID, len(cfgs))

	for _, cfg := range cfgs {
		res, err := s.scanOne(ctx, cfg)
		if err != nil {
			log.Printf("scan run %s: config %d (%s / %s) failed: %v",
				summary.RunID, cfg.ID, cfg.AgentName, cfg.ProjectName, err)
			summary.Failed++
			res = domain.ScanResult{Config: cfg}
		}
		summary.Results = append(summary.Results, res)
	}

	summary.Groups = GroupResults(summary.Results)

	if s.notifier != nil {
		s.notifyGroups(ctx, runAt, summary.Groups)
	}

	if s.reportsDir != "" {
		if path, err := report.WriteExcel(s.reportsDir, runAt, summary.Groups); err != nil {
			log.Printf("scan run %s: excel report: %v", summary.RunID, err)
		} else {
			summary.ExcelPath = path
		}
		if path, err := report.WriteJSON(s.reportsDir, runAt, summary.RunID, summary.Groups); err != nil {
			log.Printf("scan run %s: json report: %v", summary.RunID, err)
		} else {
			summary.JSONPath = path
		}
	}

	return summary, nil
}

// ScanConfig runs the pipeline for one configuration by ID, outside the
// scheduled run. Used by the manual trigger endpoint.
func (s *Scanner) ScanConfig(ctx context.Context, cfg domain.ProjectConfig) (domain.ScanResult, error) {
	return s.scanOne(ctx, cfg)
}

func (s *Scanner) scanOne(ctx context.Context, cfg domain.ProjectConfig) (domain.ScanResult, error) {
	res := domain.ScanResult{Config: cfg}

	if s.state != nil {
		ok, err := s.state.AcquireLock(ctx, cfg.ID)
		if err != nil {
			return res, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return res, fmt.Errorf("config %d is already being scanned", cfg.ID)
		}
		defer func() {
			if err := s.state.ReleaseLock(ctx, cfg.ID); err != nil {
				log.Printf("release lock for config %d: %v", cfg.ID, err)
			}
		}()
	}

	grid, colors, err := s.fetcherFor(cfg).Fetch(ctx, cfg)
	if err != nil {
		return res, fmt.Errorf("fetch: %w", err)
	}

	hi, err := scan.LocateHeader(grid, cfg.Columns, cfg.HeaderRow)
	if err != nil {
		return res, fmt.Errorf("locate header: %w", err)
	}

	snap := scan.ExtractSnapshot(grid, colors, hi, scan.ExtractOptions{
		InvalidColors: cfg.InvalidColors,
		KeyPrefixes:   cfg.KeyPrefixes,
		MinKeyLength:  s.minKeyLength,
	})

	prev, err := s.snapshots.GetLatest(ctx, cfg.ID)
	if err != nil {
		return res, fmt.Errorf("load previous snapshot: %w", err)
	}

	var diff domain.DiffResult
	if prev == nil {
		// First run for this config: every unit counts as added so the
		// baseline shows up in the change log.
		diff = baselineDiff(snap)
	} else {
		diff = scan.Diff(prev, snap)
	}

	if err := s.snapshots.Add(ctx, cfg.ID, snap); err != nil {
		return res, fmt.Errorf("store snapshot: %w", err)
	}

	if records := changeRecords(cfg.ID, diff); len(records) > 0 {
		if err := s.changes.Add(ctx, records); err != nil {
			return res, fmt.Errorf("store change records: %w", err)
		}
	}

	res.Diff = diff
	res.Units = len(snap)
	return res, nil
}

func (s *Scanner) fetcherFor(cfg domain.ProjectConfig) fetch.Fetcher {
	if s.apiFetcher != nil && cfg.SpreadsheetID != "" {
		return s.apiFetcher
	}
	return s.htmlFetcher
}

func (s *Scanner) notifyGroups(ctx context.Context, runAt time.Time, groups []domain.GroupedResult) {
	day := runAt.Format("2006-01-02")

	for _, g := range groups {
		if g.Diff.Empty() || g.TelegramChatID == "" {
			continue
		}

		if s.state != nil {
			done, err := s.state.WasNotified(ctx, g.AgentName, g.ProjectName, day)
			if err != nil {
				log.Printf("notify state for %s / %s: %v", g.AgentName, g.ProjectName, err)
			} else if done {
				continue
			}
		}

		text := notify.FormatMessage(g)
		if text == "" {
			continue
		}
		if err := s.notifier.Send(ctx, g.TelegramChatID, text); err != nil {
			log.Printf("telegram send to %s: %v", g.TelegramChatID, err)
			continue
		}
		if s.state != nil {
			if err := s.state.MarkNotified(ctx, g.AgentName, g.ProjectName, day); err != nil {
				log.Printf("mark notified for %s / %s: %v", g.AgentName, g.ProjectName, err)
			}
		}
		s.notifier.Pause(ctx)
	}
}

// GroupResults merges per-config results into one diff per (agent, project)
// pair, preserving first-seen order of the pairs.
func GroupResults(results []domain.ScanResult) []domain.GroupedResult {
	order := make([]domain.GroupKey, 0, len(results))
	merged := make(map[domain.GroupKey]*domain.GroupedResult, len(results))

	for _, res := range results {
		key := domain.GroupKey{
			AgentName:   res.Config.AgentName,
			ProjectName: res.Config.ProjectName,
		}
		g, ok := merged[key]
		if !ok {
			g = &domain.GroupedResult{
				GroupKey:       key,
				TelegramChatID: res.Config.TelegramChatID,
			}
			merged[key] = g
			order = append(order, key)
		}
		if g.TelegramChatID == "" {
			g.TelegramChatID = res.Config.TelegramChatID
		}
		g.Diff.Added = append(g.Diff.Added, res.Diff.Added...)
		g.Diff.Removed = append(g.Diff.Removed, res.Diff.Removed...)
		g.Diff.Changed = append(g.Diff.Changed, res.Diff.Changed...)
	}

	out := make([]domain.GroupedResult, 0, len(order))
	for _, key := range order {
		g := merged[key]
		sort.Strings(g.Diff.Added)
		sort.Strings(g.Diff.Removed)
		sort.Slice(g.Diff.Changed, func(i, j int) bool {
			return g.Diff.Changed[i].Key < g.Diff.Changed[j].Key
		})
		out = append(out, *g)
	}
	return out
}

func baselineDiff(snap domain.Snapshot) domain.DiffResult {
	added := make([]string, 0, len(snap))
	for key := range snap {
		added = append(added, key)
	}
	sort.Strings(added)
	return domain.DiffResult{Added: added}
}

func changeRecords(configID int64, diff domain.DiffResult) []domain.ChangeRecord {
	records := make([]domain.ChangeRecord, 0, len(diff.Added)+len(diff.Removed)+len(diff.Changed))
	for _, key := range diff.Added {
		records = append(records, domain.ChangeRecord{ConfigID: configID, Type: domain.ChangeAdded, Key: key})
	}
	for _, key := range diff.Removed {
		records = append(records, domain.ChangeRecord{ConfigID: configID, Type: domain.ChangeRemoved, Key: key})
	}
	for _, kc := range diff.Changed {
		records = append(records, domain.ChangeRecord{ConfigID: configID, Type: domain.ChangeChanged, Key: kc.Key, Fields: kc.Fields})
	}
	return records
}
