package chat

import "encoding/json"

// Diagnosis is the prediction service payload, stored verbatim on the
// message that carries it.
type Diagnosis struct {
	DiseaseName string   `json:"disease_name"`
	Details     string   `json:"details,omitempty"`
	Treatment   string   `json:"treatment,omitempty"`
	Medications []string `json:"medications,omitempty"`
}

// Weather is the weather service payload. Only Location is understood
// by the pipeline; everything else the service returned rides along in
// Extra untouched.
type Weather struct {
	Location string
	Extra    map[string]json.RawMessage
}

// MarshalJSON flattens Extra next to the location field.
func (w Weather) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(w.Extra)+1)
	for k, v := range w.Extra {
		out[k] = v
	}
	loc, err := json.Marshal(w.Location)
	if err != nil {
		return nil, err
	}
	out["location"] = loc
	return json.Marshal(out)
}

// UnmarshalJSON splits the location field out of the raw object.
func (w *Weather) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if loc, ok := raw["location"]; ok {
		if err := json.Unmarshal(loc, &w.Location); err != nil {
			return err
		}
		delete(raw, "location")
	}
	w.Extra = raw
	return nil
}
