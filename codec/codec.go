// Package codec turns a form Snapshot into the two payloads the downstream
// workflow accepts: the lossless JSON record and the flattened CSV report.
// Both come with the Base64 transport encoding the webhooks expect.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/lasoteam/laso-sync/model"
)

// ErrNoLineItems is returned by CSV when not a single section row exists.
// A header-only report is useless downstream, so it is never produced.
var ErrNoLineItems = errors.New("no line items to export")

// Lookup resolves a product code to a display name, empty when unknown.
// The catalog is a collaborator, the codec never interprets codes.
type Lookup func(code string) string

// Extra is the metadata merged into the outbound JSON next to the form
// fields. EditedSuffix is carried inside the payload so a later CSV-only
// regeneration from the stored JSON reproduces the same filename.
type Extra struct {
	EditedAt     string `json:"editedAt,omitempty"`
	Operator     string `json:"technik,omitempty"`
	EditedSuffix string `json:"__editedSuffix,omitempty"`
}

// Output is a serialized payload, raw and Base64-encoded.
type Output struct {
	Text   string
	Base64 string
}

// JSONPayload merges snap with extra and encodes the result. The JSON text
// round-trips through FromJSONPayload; the Base64 layer is transport only.
func JSONPayload(snap model.Snapshot, extra Extra) (Output, error) {
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return Output{}, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(snapJSON, &merged); err != nil {
		return Output{}, err
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return Output{}, err
	}
	var extraFields map[string]json.RawMessage
	if err := json.Unmarshal(extraJSON, &extraFields); err != nil {
		return Output{}, err
	}
	for key, value := range extraFields {
		merged[key] = value
	}

	text, err := json.Marshal(merged)
	if err != nil {
		return Output{}, err
	}
	return Output{
		Text:   string(text),
		Base64: base64.StdEncoding.EncodeToString(text),
	}, nil
}

// FromJSONPayload decodes a previously produced JSON text back into the
// snapshot and its metadata.
func FromJSONPayload(text string) (model.Snapshot, Extra, error) {
	var snap model.Snapshot
	if err := json.Unmarshal([]byte(text), &snap); err != nil {
		return model.Snapshot{}, Extra{}, err
	}
	var extra Extra
	if err := json.Unmarshal([]byte(text), &extra); err != nil {
		return model.Snapshot{}, Extra{}, err
	}
	return snap, extra, nil
}

const csvDelim = ";"

// CSV builds the semicolon-delimited report: a two-row header block, a
// blank line, the items header and one row per filled item, in category
// order then insertion order. A non-empty section note becomes a synthetic
// NOTE_<CATEGORY> row with the note text in the quantity column. The
// document is CRLF-terminated and prefixed with a UTF-8 BOM.
func CSV(snap model.Snapshot, lookup Lookup) (Output, error) {
	type row struct {
		code, qty, section string
	}
	var rows []row
	for _, cat := range model.Categories {
		for _, item := range snap.Items[cat] {
			code := strings.TrimSpace(item.Code)
			qty := strings.TrimSpace(item.Qty)
			if code != "" || qty != "" {
				rows = append(rows, row{code, qty, cat})
			}
		}
		if note := strings.TrimSpace(snap.Notes[cat]); note != "" {
			rows = append(rows, row{"NOTE_" + strings.ToUpper(cat), snap.Notes[cat], cat})
		}
	}
	if len(rows) == 0 {
		return Output{}, ErrNoLineItems
	}

	filledAt := snap.FilledAt
	if filledAt == "" {
		filledAt = time.Now().Format("2006-01-02")
	}

	lines := []string{
		csvLine("SAP", "Provozovna", "Track", "Vyplnil", "Datum"),
		csvLine(snap.SAPID, snap.SiteName, snap.TrackNumber, snap.FilledBy, filledAt),
		"",
		csvLine("SAP POLOŽKY", "QTY (POČET)", "NÁZEV", "TYP POLOŽKY"),
	}
	for _, r := range rows {
		lines = append(lines, csvLine(r.code, r.qty, lookup(r.code), r.section))
	}

	text := "\uFEFF" + strings.Join(lines, "\r\n")
	return Output{
		Text:   text,
		Base64: base64.StdEncoding.EncodeToString([]byte(text)),
	}, nil
}

func csvLine(fields ...string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(escaped, csvDelim)
}

var whitespace = regexp.MustCompile(`\s+`)

// Filename derives the upload name. Missing header fields fall back to
// fixed placeholders; a non-empty editedTS replaces the operator segment
// with the EDITOVANO marker of the restored session.
func Filename(snap model.Snapshot, operator, editedTS, ext string) string {
	sap := fallback(snap.SAPID, "SAP")
	site := whitespace.ReplaceAllString(fallback(snap.SiteName, "PROVOZOVNA"), "_")
	track := fallback(snap.TrackNumber, "TRACK")

	if editedTS != "" {
		return fmt.Sprintf("%s_%s_%s%s.%s", sap, site, track, EditedSuffix(editedTS), ext)
	}
	filledBy := whitespace.ReplaceAllString(fallback(operator, "NEURCENO"), "_")
	return fmt.Sprintf("%s_%s_%s_%s.%s", sap, site, track, filledBy, ext)
}

// EditedSuffix is the filename segment marking a resubmitted record.
func EditedSuffix(editedTS string) string {
	return "_EDITOVANO_" + editedTS
}

// EditedTimestamp renders a restore time the way filenames need it, with
// the ':' and '.' of the ISO form replaced by '-'.
func EditedTimestamp(t time.Time) string {
	iso := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "-", ".", "-").Replace(iso)
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
