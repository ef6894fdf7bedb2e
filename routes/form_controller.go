package routes

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/lasoteam/laso-sync/app"
	"github.com/lasoteam/laso-sync/codec"
	"github.com/lasoteam/laso-sync/deeplink"
	"github.com/lasoteam/laso-sync/draft"
	"github.com/lasoteam/laso-sync/httpx"
	"github.com/lasoteam/laso-sync/log"
	"github.com/lasoteam/laso-sync/model"
	"github.com/lasoteam/laso-sync/submission"
)

// SaveDraft schedules a debounced autosave of the posted snapshot.
func SaveDraft(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var snap model.Snapshot
		err := render.DecodeJSON(r.Body, &snap)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		app.Drafts.ScheduleSave(func() model.Snapshot { return snap })
		w.WriteHeader(http.StatusAccepted)
	}
}

// GetDraft returns the stored draft record, if any. The load/overwrite
// confirmations are prompts in the UI, so the UI reads the record and
// decides what to do with it.
func GetDraft(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, ok, err := app.Drafts.Load()
		if errors.Is(err, draft.ErrCorrupt) {
			httpx.LogStatusMsg(w, http.StatusUnprocessableEntity, log.WarnLevel, "draft.get", "stored draft is corrupt")
			return
		}
		if !ok {
			httpx.LogNotFound(w, "draft.get", "draft")
			return
		}

		render.JSON(w, r, record)
	}
}

func DiscardDraft(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app.Drafts.Clear()
		w.WriteHeader(http.StatusNoContent)
	}
}

type submitRequest struct {
	Data     model.Snapshot `json:"data"`
	Operator string         `json:"operator"`
	// EditedTS marks a session restored from a submitted record; it is
	// the restore time in filename form as handed out by ImportForm.
	EditedTS string `json:"editedTs"`
}

// SubmitForm runs the full submission: JSON leg, then CSV leg, each
// independently delivered or queued.
func SubmitForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		out := app.Submit.Submit(req.Data, submission.Options{
			Operator: req.Operator,
			EditedTS: req.EditedTS,
		})
		render.JSON(w, r, out)
	}
}

type importResponse struct {
	Data     model.Snapshot `json:"data"`
	Extra    codec.Extra    `json:"meta"`
	EditedTS string         `json:"editedTs"`
}

// ImportForm decodes a previously submitted JSON record so the UI can
// prefill the form from it. The response carries the edited-mode
// timestamp the UI keeps for the rest of the session.
func ImportForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.read_body")
			return
		}

		snap, extra, err := codec.FromJSONPayload(string(body))
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "form.import", "file cannot be read, check the format")
			return
		}

		render.JSON(w, r, importResponse{
			Data:     snap,
			Extra:    extra,
			EditedTS: codec.EditedTimestamp(time.Now()),
		})
	}
}

func ListQueue(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks := app.Queue.Tasks()
		if tasks == nil {
			tasks = []model.Task{}
		}
		render.JSON(w, r, map[string]any{"tasks": tasks})
	}
}

func FlushQueue(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remaining, drained := app.Queue.Flush()
		render.JSON(w, r, map[string]any{"remaining": remaining, "drained": drained})
	}
}

type connectivityRequest struct {
	Online bool `json:"online"`
}

// SetConnectivity records the host's connectivity signal; the offline to
// online edge replays the queue before this returns.
func SetConnectivity(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req connectivityRequest
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		app.Queue.SetOnline(req.Online)
		w.WriteHeader(http.StatusNoContent)
	}
}

func EncodeDeeplink(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var snap model.Snapshot
		err := render.DecodeJSON(r.Body, &snap)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		token, err := deeplink.Encode(snap)
		if errors.Is(err, deeplink.ErrEmpty) {
			httpx.LogStatusMsg(w, http.StatusUnprocessableEntity, log.DebugLevel, "deeplink.encode", "form is empty, nothing to share")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "deeplink.encode", err)
			return
		}

		render.JSON(w, r, map[string]string{"token": token})
	}
}

func DecodeDeeplink(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := deeplink.Decode(chi.URLParam(r, "token"))
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "deeplink.decode", "link data cannot be decoded")
			return
		}

		render.JSON(w, r, snap)
	}
}
