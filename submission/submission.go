// Package submission is the end-to-end "save the survey" action: encode,
// ship to both webhooks, queue whatever could not be delivered, drop the
// draft once the JSON record is confirmed.
package submission

import (
	"time"

	"github.com/pkg/errors"

	"github.com/lasoteam/laso-sync/codec"
	"github.com/lasoteam/laso-sync/draft"
	"github.com/lasoteam/laso-sync/log"
	"github.com/lasoteam/laso-sync/model"
	"github.com/lasoteam/laso-sync/queue"
)

type Service struct {
	queue        *queue.Queue
	drafts       *draft.Store
	lookup       codec.Lookup
	jsonEndpoint string
	csvEndpoint  string
}

func New(q *queue.Queue, drafts *draft.Store, lookup codec.Lookup, jsonEndpoint, csvEndpoint string) *Service {
	return &Service{
		queue:        q,
		drafts:       drafts,
		lookup:       lookup,
		jsonEndpoint: jsonEndpoint,
		csvEndpoint:  csvEndpoint,
	}
}

// Options carries the per-submission session state. A non-empty EditedTS
// marks a session restored from a previously submitted record; it is the
// restore time in filename form.
type Options struct {
	Operator string
	EditedTS string
}

// Outcome reports the two submission legs independently. A failed CSV leg
// never rolls back a delivered JSON leg, and the other way round.
type Outcome struct {
	JSON      model.Result `json:"json"`
	CSV       model.Result `json:"csv"`
	CSVNoData bool         `json:"csvNoData,omitempty"`
}

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

// Submit runs both legs. The JSON leg carries the full enriched snapshot;
// a confirmed delivery clears the draft. The CSV leg is derived from the
// same enriched snapshot and fails fast with no network attempt when the
// form holds no line items at all.
func (s *Service) Submit(snap model.Snapshot, opts Options) Outcome {
	operator := opts.Operator
	if operator == "" {
		operator = "NEURCENO"
	}
	extra := codec.Extra{
		EditedAt: time.Now().UTC().Format(time.RFC3339),
		Operator: operator,
	}
	if opts.EditedTS != "" {
		extra.EditedSuffix = codec.EditedSuffix(opts.EditedTS)
	}

	var out Outcome

	payload, err := codec.JSONPayload(snap, extra)
	if err != nil {
		log.Error("submit.json.encode:", err)
	} else {
		out.JSON = s.queue.SubmitOrQueue(s.jsonEndpoint, map[string]string{
			"jsonFileName": codec.Filename(snap, opts.Operator, opts.EditedTS, "json"),
			"jsonContent":  payload.Base64,
		}, jsonHeaders)
		if out.JSON.OK {
			s.drafts.Clear()
		}
	}

	report, err := codec.CSV(snap, s.lookup)
	switch {
	case errors.Is(err, codec.ErrNoLineItems):
		log.Warn("submit.csv: no line items, skipping export")
		out.CSVNoData = true
	case err != nil:
		log.Error("submit.csv.encode:", err)
	default:
		out.CSV = s.queue.SubmitOrQueue(s.csvEndpoint, map[string]string{
			"csvFileName": codec.Filename(snap, opts.Operator, opts.EditedTS, "csv"),
			"csvContent":  report.Base64,
		}, jsonHeaders)
	}

	return out
}
