package submission

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lasoteam/laso-sync/codec"
	"github.com/lasoteam/laso-sync/draft"
	"github.com/lasoteam/laso-sync/model"
	"github.com/lasoteam/laso-sync/queue"
	"github.com/lasoteam/laso-sync/storage"
)

type webhook struct {
	*httptest.Server

	mu     sync.Mutex
	bodies []map[string]string
	fail   bool
}

func newWebhook(t *testing.T) *webhook {
	t.Helper()
	hook := &webhook{}
	hook.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]string
		_ = json.Unmarshal(raw, &body)

		hook.mu.Lock()
		hook.bodies = append(hook.bodies, body)
		fail := hook.fail
		hook.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	t.Cleanup(hook.Close)
	return hook
}

func (h *webhook) setFail(fail bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fail = fail
}

func (h *webhook) received() []map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]map[string]string(nil), h.bodies...)
}

func lookup(code string) string {
	if code == "K-100" {
		return "Kohout nerez"
	}
	return ""
}

func newService(t *testing.T) (*Service, *storage.Memory, *webhook, *webhook) {
	t.Helper()
	store := storage.NewMemory()
	jsonHook := newWebhook(t)
	csvHook := newWebhook(t)
	q := queue.New(store, 2*time.Second)
	drafts := draft.New(store, time.Millisecond)
	svc := New(q, drafts, lookup, jsonHook.URL, csvHook.URL)
	return svc, store, jsonHook, csvHook
}

func seedDraft(t *testing.T, store storage.Store) {
	t.Helper()
	raw, err := json.Marshal(model.DraftRecord{SavedAt: time.Now().UTC(), Data: model.Snapshot{SAPID: "123"}})
	require.NoError(t, err)
	require.NoError(t, store.Set(storage.DraftKey, string(raw)))
}

func filledSnapshot() model.Snapshot {
	return model.Snapshot{
		SAPID:       "123",
		SiteName:    "Hala A",
		TrackNumber: "T1",
		FilledAt:    "2024-02-28",
		Items: map[string][]model.LineItem{
			"kohouty": {{Code: "K-100", Qty: "2"}},
		},
	}
}

func TestSubmitBothLegsDeliver(t *testing.T) {
	svc, store, jsonHook, csvHook := newService(t)
	seedDraft(t, store)

	out := svc.Submit(filledSnapshot(), Options{Operator: "Jan Novak"})

	assert.Equal(t, model.Result{OK: true}, out.JSON)
	assert.Equal(t, model.Result{OK: true}, out.CSV)
	assert.False(t, out.CSVNoData)

	jsonBodies := jsonHook.received()
	require.Len(t, jsonBodies, 1)
	assert.Equal(t, "123_Hala_A_T1_Jan_Novak.json", jsonBodies[0]["jsonFileName"])

	payload, err := base64.StdEncoding.DecodeString(jsonBodies[0]["jsonContent"])
	require.NoError(t, err)
	snap, extra, err := codec.FromJSONPayload(string(payload))
	require.NoError(t, err)
	assert.Equal(t, "123", snap.SAPID)
	assert.Equal(t, "Jan Novak", extra.Operator)
	assert.NotEmpty(t, extra.EditedAt)
	assert.Empty(t, extra.EditedSuffix)

	csvBodies := csvHook.received()
	require.Len(t, csvBodies, 1)
	assert.Equal(t, "123_Hala_A_T1_Jan_Novak.csv", csvBodies[0]["csvFileName"])
	report, err := base64.StdEncoding.DecodeString(csvBodies[0]["csvContent"])
	require.NoError(t, err)
	assert.Contains(t, string(report), `"K-100";"2";"Kohout nerez";"kohouty"`)

	// confirmed JSON delivery drops the draft
	_, ok, err := store.Get(storage.DraftKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmitJSONFailureDoesNotBlockCSV(t *testing.T) {
	svc, store, jsonHook, csvHook := newService(t)
	seedDraft(t, store)
	jsonHook.setFail(true)

	out := svc.Submit(filledSnapshot(), Options{Operator: "Jan Novak"})

	assert.Equal(t, model.Result{Queued: true}, out.JSON)
	assert.Equal(t, model.Result{OK: true}, out.CSV)
	assert.Len(t, csvHook.received(), 1)

	// an unconfirmed JSON leg keeps the draft
	_, ok, err := store.Get(storage.DraftKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSubmitCSVFailureDoesNotRollBackJSON(t *testing.T) {
	svc, store, _, csvHook := newService(t)
	seedDraft(t, store)
	csvHook.setFail(true)

	out := svc.Submit(filledSnapshot(), Options{Operator: "Jan Novak"})

	assert.Equal(t, model.Result{OK: true}, out.JSON)
	assert.Equal(t, model.Result{Queued: true}, out.CSV)

	// JSON was confirmed, so the draft is still gone
	_, ok, err := store.Get(storage.DraftKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmitNoLineItemsSkipsCSVLeg(t *testing.T) {
	svc, _, jsonHook, csvHook := newService(t)

	snap := model.Snapshot{SAPID: "123", SiteName: "Hala A", TrackNumber: "T1"}
	out := svc.Submit(snap, Options{Operator: "Jan Novak"})

	assert.True(t, out.CSVNoData)
	assert.Equal(t, model.Result{}, out.CSV)
	assert.Empty(t, csvHook.received())

	// the JSON leg is not gated by the line-item check
	assert.Equal(t, model.Result{OK: true}, out.JSON)
	assert.Len(t, jsonHook.received(), 1)
}

func TestSubmitEditedMode(t *testing.T) {
	svc, _, jsonHook, csvHook := newService(t)

	out := svc.Submit(filledSnapshot(), Options{
		Operator: "Jan Novak",
		EditedTS: "2024-01-01T10-00-00",
	})
	assert.Equal(t, model.Result{OK: true}, out.JSON)

	jsonBodies := jsonHook.received()
	require.Len(t, jsonBodies, 1)
	assert.Equal(t, "123_Hala_A_T1_EDITOVANO_2024-01-01T10-00-00.json", jsonBodies[0]["jsonFileName"])

	csvBodies := csvHook.received()
	require.Len(t, csvBodies, 1)
	assert.Equal(t, "123_Hala_A_T1_EDITOVANO_2024-01-01T10-00-00.csv", csvBodies[0]["csvFileName"])

	// the suffix travels inside the payload for later CSV regeneration
	payload, err := base64.StdEncoding.DecodeString(jsonBodies[0]["jsonContent"])
	require.NoError(t, err)
	_, extra, err := codec.FromJSONPayload(string(payload))
	require.NoError(t, err)
	assert.Equal(t, "_EDITOVANO_2024-01-01T10-00-00", extra.EditedSuffix)
}

func TestSubmitOfflineQueuesBothLegs(t *testing.T) {
	store := storage.NewMemory()
	jsonHook := newWebhook(t)
	csvHook := newWebhook(t)
	q := queue.New(store, 2*time.Second)
	q.SetOnline(false)
	svc := New(q, draft.New(store, time.Millisecond), lookup, jsonHook.URL, csvHook.URL)

	out := svc.Submit(filledSnapshot(), Options{Operator: "Jan Novak"})

	assert.Equal(t, model.Result{Queued: true}, out.JSON)
	assert.Equal(t, model.Result{Queued: true}, out.CSV)
	assert.Empty(t, jsonHook.received())
	assert.Empty(t, csvHook.received())
	assert.Len(t, q.Tasks(), 2)

	// reconnecting replays both
	q.SetOnline(true)
	assert.Len(t, jsonHook.received(), 1)
	assert.Len(t, csvHook.received(), 1)
	assert.Empty(t, q.Tasks())
}
