package domain

import (
	"encoding/json"
)

// LogType selects which comparison rules apply to a LogRecord.
type LogType string

const (
	LogTypeNewEntity      LogType = "new_entity"
	LogTypeOrgGrowth      LogType = "org_growth"
	LogTypeBusinessGrowth LogType = "business_growth"
	// LogTypeUnknown is the explicit tag for records whose interpretation is
	// not known. It is valid, but nothing is classified for it.
	LogTypeUnknown LogType = "unknown"
)

// Known reports whether t is one of the interpreted log types.
func (t LogType) Known() bool {
	switch t {
	case LogTypeNewEntity, LogTypeOrgGrowth, LogTypeBusinessGrowth:
		return true
	}
	return false
}

// Label is the generic caption shown next to a log of this type.
func (t LogType) Label() string {
	switch t {
	case LogTypeNewEntity:
		return "New business onboarded"
	case LogTypeOrgGrowth:
		return "Organization growth"
	case LogTypeBusinessGrowth:
		return "Business growth"
	default:
		return "Unknown"
	}
}

// GoogleMapsData is the maps-listing snapshot gathered for a business.
type GoogleMapsData struct {
	TotalRatings *Number  `json:"total_ratings"`
	Website      string   `json:"website,omitempty"`
	Name         string   `json:"name,omitempty"`
	Address      string   `json:"address,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	OpeningHours []string `json:"opening_hours,omitempty"`
}

// LinkedInData is the professional-network profile snapshot.
type LinkedInData struct {
	Specialties []string `json:"specialties,omitempty"`
	Website     *string  `json:"website,omitempty"`
	VanityName  *string  `json:"vanity_name,omitempty"`
	Followers   *int64   `json:"followers,omitempty"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	CompanySize *Number  `json:"company_size,omitempty"`
	Founded     *int     `json:"founded,omitempty"`
	Locations   []string `json:"locations,omitempty"`
}

// YelpData is the review-site listing snapshot.
type YelpData struct {
	Name        string   `json:"name,omitempty"`
	Address     string   `json:"address,omitempty"`
	Rating      float64  `json:"rating"`
	ReviewCount *Number  `json:"review_count,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Price       string   `json:"price,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// LogRecord is one immutable verification event about a business.
type LogRecord struct {
	ID              string  `json:"id"`
	BusinessName    string  `json:"business_name"`
	BusinessSummary string  `json:"business_summary"`
	BusinessURL     string  `json:"business_url"`
	CreatedAt       string  `json:"created_at"`
	LogType         LogType `json:"log_type"`

	GoogleMapsData *GoogleMapsData `json:"google_maps_data,omitempty"`
	LinkedInData   *LinkedInData   `json:"linked_in_data,omitempty"`
	YelpData       *YelpData       `json:"yelp_data,omitempty"`

	// business_growth deltas
	OldYelpReviews   *Number `json:"old_yelp_reviews,omitempty"`
	NewYelpReviews   *Number `json:"new_yelp_reviews,omitempty"`
	OldGoogleReviews *Number `json:"old_google_reviews,omitempty"`
	NewGoogleReviews *Number `json:"new_google_reviews,omitempty"`

	// org_growth deltas
	OldCompanySize *Number `json:"old_company_size,omitempty"`
	NewCompanySize *Number `json:"new_company_size,omitempty"`

	// Extra holds fields this version does not model, and source sub-records
	// whose shape could not be decoded. They survive a decode/encode round
	// trip untouched.
	Extra map[string]json.RawMessage `json:"-"`

	// DecodeError is set by stores when the stored document could not be
	// decoded at all. Such a record carries only its id.
	DecodeError string `json:"-"`
}

// UndecodableLog stands in for a stored document that failed to decode.
func UndecodableLog(id string, err error) LogRecord {
	return LogRecord{ID: id, DecodeError: err.Error()}
}

var knownLogFields = map[string]struct{}{
	"id": {}, "business_name": {}, "business_summary": {}, "business_url": {},
	"created_at": {}, "log_type": {},
	"google_maps_data": {}, "linked_in_data": {}, "yelp_data": {},
	"old_yelp_reviews": {}, "new_yelp_reviews": {},
	"old_google_reviews": {}, "new_google_reviews": {},
	"old_company_size": {}, "new_company_size": {},
}

// logRecordFields prevents recursion into the custom (un)marshalers.
type logRecordFields LogRecord

// logRecordWire shadows the source sub-records so each one is decoded on its
// own.
type logRecordWire struct {
	*logRecordFields
	GoogleMapsData json.RawMessage `json:"google_maps_data"`
	LinkedInData   json.RawMessage `json:"linked_in_data"`
	YelpData       json.RawMessage `json:"yelp_data"`
}

// UnmarshalJSON decodes the modelled fields and keeps everything else in Extra.
// A source sub-record of an unexpected shape is left nil and kept raw in Extra.
func (r *LogRecord) UnmarshalJSON(data []byte) error {
	var fields logRecordFields
	wire := logRecordWire{logRecordFields: &fields}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for key := range knownLogFields {
		delete(all, key)
	}

	keepRaw := func(key string, raw json.RawMessage, err error) {
		if err == nil {
			return
		}
		if all == nil {
			all = make(map[string]json.RawMessage)
		}
		all[key] = raw
	}
	keepRaw("google_maps_data", wire.GoogleMapsData, decodeSubRecord(wire.GoogleMapsData, &fields.GoogleMapsData))
	keepRaw("linked_in_data", wire.LinkedInData, decodeSubRecord(wire.LinkedInData, &fields.LinkedInData))
	keepRaw("yelp_data", wire.YelpData, decodeSubRecord(wire.YelpData, &fields.YelpData))

	*r = LogRecord(fields)
	if len(all) > 0 {
		r.Extra = all
	}
	return nil
}

func decodeSubRecord[T any](raw json.RawMessage, dst **T) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}

// MarshalJSON encodes the modelled fields and merges Extra back in. Modelled
// fields win on key collisions.
func (r LogRecord) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(logRecordFields(r))
	if err != nil || len(r.Extra) == 0 {
		return base, err
	}
	merged := make(map[string]json.RawMessage, len(r.Extra)+len(knownLogFields))
	for k, v := range r.Extra {
		merged[k] = v
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(base, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// EntitySummary is what the external summarization service reports for a
// business URL.
type EntitySummary struct {
	Name           string          `json:"name"`
	Summary        string          `json:"summary"`
	YelpData       *YelpData       `json:"yelp_data,omitempty"`
	GoogleMapsData *GoogleMapsData `json:"google_maps_data,omitempty"`
	LinkedInData   *LinkedInData   `json:"linked_in_data,omitempty"`
}
