package model

import (
	"strings"

	"github.com/goccy/go-json"
)

// The wire form is the flat object the form UI has always produced:
// header fields at the top level, "umisteni" and "dohody" records, one
// "<category>" array per filled section and one "pozn_<category>" string
// per section note.

const notePrefix = "pozn_"

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"sapId":            s.SAPID,
		"nazevProvozovny":  s.SiteName,
		"cisloTracku":      s.TrackNumber,
		"pozadovanyDatum":  s.RequestedAt,
		"adresaProvozovny": s.Address,
		"kontakt":          s.Contact,
		"vyplnilJmeno":     s.FilledBy,
		"vyplnilDatum":     s.FilledAt,
	}
	if s.Placement != nil {
		out["umisteni"] = s.Placement
	}
	if s.Agreements != nil {
		out["dohody"] = s.Agreements
	}
	for _, cat := range Categories {
		if items := s.Items[cat]; len(items) > 0 {
			out[cat] = items
		}
		if note := s.Notes[cat]; note != "" {
			out[notePrefix+cat] = note
		}
	}
	return json.Marshal(out)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Snapshot{}
	for key, field := range map[string]*string{
		"sapId":            &s.SAPID,
		"nazevProvozovny":  &s.SiteName,
		"cisloTracku":      &s.TrackNumber,
		"pozadovanyDatum":  &s.RequestedAt,
		"adresaProvozovny": &s.Address,
		"kontakt":          &s.Contact,
		"vyplnilJmeno":     &s.FilledBy,
		"vyplnilDatum":     &s.FilledAt,
	} {
		if msg, ok := raw[key]; ok {
			if err := json.Unmarshal(msg, field); err != nil {
				return err
			}
		}
	}
	if msg, ok := raw["umisteni"]; ok {
		if err := json.Unmarshal(msg, &s.Placement); err != nil {
			return err
		}
	}
	if msg, ok := raw["dohody"]; ok {
		if err := json.Unmarshal(msg, &s.Agreements); err != nil {
			return err
		}
	}

	for _, cat := range Categories {
		if msg, ok := raw[cat]; ok {
			var items []LineItem
			if err := json.Unmarshal(msg, &items); err != nil {
				return err
			}
			if len(items) > 0 {
				if s.Items == nil {
					s.Items = map[string][]LineItem{}
				}
				s.Items[cat] = items
			}
		}
		if msg, ok := raw[notePrefix+cat]; ok {
			var note string
			if err := json.Unmarshal(msg, &note); err != nil {
				return err
			}
			if note != "" {
				if s.Notes == nil {
					s.Notes = map[string]string{}
				}
				s.Notes[cat] = note
			}
		}
	}
	return nil
}

// HeaderFilled reports whether any of the identifying header fields holds
// a value. Used to gate overwriting a live form with a restored draft.
func (s Snapshot) HeaderFilled() bool {
	for _, v := range []string{s.SAPID, s.SiteName, s.TrackNumber, s.Address, s.Contact, s.FilledBy} {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Empty reports whether the snapshot carries none of the fields that
// identify a site. Empty snapshots are refused by the deeplink encoder.
func (s Snapshot) Empty() bool {
	return s.SAPID == "" && s.SiteName == "" && s.TrackNumber == ""
}
