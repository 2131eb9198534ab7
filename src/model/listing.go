package model

import (
	"encoding/json"
	"strconv"
)

// Listing is one result record. The typed fields cover what the CLI renders
// and aggregates; everything else the API sends is kept verbatim in the raw
// field map so output and grouping never lose data.
type Listing struct {
	Price        float64
	PriceByArea  float64
	Size         float64
	Rooms        int
	Bathrooms    int
	PropertyType string
	Municipality string
	District     string
	URL          string

	raw map[string]any
}

type listingFields struct {
	Price        float64 `json:"price"`
	PriceByArea  float64 `json:"priceByArea"`
	Size         float64 `json:"size"`
	Rooms        int     `json:"rooms"`
	Bathrooms    int     `json:"bathrooms"`
	PropertyType string  `json:"propertyType"`
	Municipality string  `json:"municipality"`
	District     string  `json:"district"`
	URL          string  `json:"url"`
}

// UnmarshalJSON decodes the typed fields and captures the full object.
func (l *Listing) UnmarshalJSON(data []byte) error {
	var fields listingFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = Listing{
		Price:        fields.Price,
		PriceByArea:  fields.PriceByArea,
		Size:         fields.Size,
		Rooms:        fields.Rooms,
		Bathrooms:    fields.Bathrooms,
		PropertyType: fields.PropertyType,
		Municipality: fields.Municipality,
		District:     fields.District,
		URL:          fields.URL,
		raw:          raw,
	}
	return nil
}

// MarshalJSON re-emits the original API object when available, so JSON
// output carries every field the server sent.
func (l Listing) MarshalJSON() ([]byte, error) {
	if l.raw != nil {
		return json.Marshal(l.raw)
	}
	return json.Marshal(listingFields{
		Price:        l.Price,
		PriceByArea:  l.PriceByArea,
		Size:         l.Size,
		Rooms:        l.Rooms,
		Bathrooms:    l.Bathrooms,
		PropertyType: l.PropertyType,
		Municipality: l.Municipality,
		District:     l.District,
		URL:          l.URL,
	})
}

// Field returns the scalar string form of any listing field, typed or
// opaque. Missing, empty, and non-scalar values report ok=false. Listings
// built in code rather than decoded from JSON resolve through the typed
// fields.
func (l Listing) Field(name string) (string, bool) {
	if l.raw == nil {
		if f, ok := l.typedNumber(name); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		s, ok := l.typedString(name)
		return s, ok
	}
	v, ok := l.raw[name]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// Number returns the numeric value of a listing field, or ok=false when the
// field is absent or not a number.
func (l Listing) Number(name string) (float64, bool) {
	if l.raw == nil {
		return l.typedNumber(name)
	}
	v, ok := l.raw[name]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func (l Listing) typedNumber(name string) (float64, bool) {
	switch name {
	case "price":
		return l.Price, true
	case "priceByArea":
		return l.PriceByArea, true
	case "size":
		return l.Size, true
	case "rooms":
		return float64(l.Rooms), true
	case "bathrooms":
		return float64(l.Bathrooms), true
	}
	return 0, false
}

func (l Listing) typedString(name string) (string, bool) {
	var s string
	switch name {
	case "propertyType":
		s = l.PropertyType
	case "municipality":
		s = l.Municipality
	case "district":
		s = l.District
	case "url":
		s = l.URL
	default:
		return "", false
	}
	return s, s != ""
}

// SearchPage is one page of search results plus its pagination metadata.
type SearchPage struct {
	ElementList  []Listing `json:"elementList"`
	Total        int       `json:"total"`
	TotalPages   int       `json:"totalPages"`
	ActualPage   int       `json:"actualPage"`
	ItemsPerPage int       `json:"itemsPerPage"`
	Summary      []string  `json:"summary,omitempty"`
}
