package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
	"github.com/unitwatch/inventory-backend/internal/inventory/fetch"
	"github.com/unitwatch/inventory-backend/internal/inventory/notify"
	"github.com/unitwatch/inventory-backend/internal/inventory/repository"
	"github.com/unitwatch/inventory-backend/internal/inventory/service"
)

const sheetPage = `<!DOCTYPE html><html><head>
<style>
.ritz .waffle .s1 { background-color: #ff0000; }
</style>
</head><body class="ritz">
<div id="100"><table class="waffle">
<tr><th></th><th>A</th><th>B</th></tr>
<tr><td>1</td><td>Mã căn</td><td>Giá bán</td></tr>
<tr><td>2</td><td>C3-01</td><td>%s</td></tr>
<tr><td>3</td><td>C3-02</td><td>200</td></tr>
<tr><td>4</td><td class="s1">C3-03</td><td>300</td></tr>
</table></div>
</body></html>`

type memConfigStore struct {
	cfgs []domain.ProjectConfig
}

func (m *memConfigStore) ListActive(ctx context.Context) ([]domain.ProjectConfig, error) {
	return m.cfgs, nil
}

type memSnapshotStore struct {
	latest map[int64]domain.Snapshot
}

func (m *memSnapshotStore) GetLatest(ctx context.Context, configID int64) (domain.Snapshot, error) {
	return m.latest[configID], nil
}

func (m *memSnapshotStore) Add(ctx context.Context, configID int64, snap domain.Snapshot) error {
	m.latest[configID] = snap
	return nil
}

type memChangeStore struct {
	records []domain.ChangeRecord
}

func (m *memChangeStore) Add(ctx context.Context, records []domain.ChangeRecord) error {
	m.records = append(m.records, records...)
	return nil
}

type telegramCapture struct {
	mu       sync.Mutex
	messages []string
}

func (t *telegramCapture) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Text string `json:"text"`
		}
		_ = json.Unmarshal(body, &req)

		t.mu.Lock()
		t.messages = append(t.messages, req.Text)
		t.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}
}

func TestScanRunEndToEnd(t *testing.T) {
	price := "100"
	sheet := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, fillPrice(price))
	}))
	defer sheet.Close()

	capture := &telegramCapture{}
	tg := httptest.NewServer(capture.handler())
	defer tg.Close()

	notifier, err := notify.NewTelegramNotifier("test-token")
	require.NoError(t, err)
	notifier = notifier.WithBaseURL(tg.URL)

	mr := miniredis.RunT(t)
	state := repository.NewStateRepo(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	snaps := &memSnapshotStore{latest: make(map[int64]domain.Snapshot)}
	changes := &memChangeStore{}
	configs := &memConfigStore{cfgs: []domain.ProjectConfig{{
		ID:             1,
		AgentName:      "ATD",
		ProjectName:    "LSB",
		HTMLURL:        sheet.URL,
		GID:            "100",
		InvalidColors:  []string{"#ff0000"},
		TelegramChatID: "-100200",
		Active:         true,
		Columns: []domain.ColumnDefinition{
			{InternalName: "unit_code", Aliases: []string{"mã căn"}, IsIdentifier: true},
			{InternalName: "price", Aliases: []string{"giá bán"}},
		},
	}}}

	scanner := service.NewScanner(configs, snaps, changes, fetch.NewHTMLViewFetcher(),
		service.WithRunState(state),
		service.WithNotifier(notifier),
		service.WithReportsDir(t.TempDir()),
	)

	ctx := context.Background()

	// First run: the red-flagged unit is excluded, the rest is the baseline.
	summary, err := scanner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, []string{"C3-01", "C3-02"}, summary.Results[0].Diff.Added)
	assert.Equal(t, 2, summary.Results[0].Units)
	assert.Len(t, changes.records, 2)
	assert.FileExists(t, summary.ExcelPath)
	assert.FileExists(t, summary.JSONPath)

	require.Len(t, capture.messages, 1)
	assert.Contains(t, capture.messages[0], "ATD")
	assert.Contains(t, capture.messages[0], "C3-01")

	// Second run with a price change. The diff is recorded, but the daily
	// notification marker suppresses a second Telegram message.
	price = "150"
	summary, err = scanner.Run(ctx)
	require.NoError(t, err)

	diff := summary.Results[0].Diff
	require.Len(t, diff.Changed, 1)
	assert.Equal(t, "C3-01", diff.Changed[0].Key)
	assert.Len(t, capture.messages, 1)

	// The stored snapshot reflects the new price.
	snap := snaps.latest[1]
	require.Contains(t, snap, "C3-01")
	require.NotNil(t, snap["C3-01"]["price"])
	assert.Equal(t, "150", *snap["C3-01"]["price"])
}

func fillPrice(price string) string {
	return fmt.Sprintf(sheetPage, price)
}
