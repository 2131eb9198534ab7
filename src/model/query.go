package model

import (
	"fmt"
	"sort"
	"strconv"
)

// MaxPageSize is the API's upper bound on maxItems per page.
const MaxPageSize = 50

// Country is the API country code segment of the search URL.
type Country string

const (
	CountrySpain    Country = "es"
	CountryItaly    Country = "it"
	CountryPortugal Country = "pt"
)

// AllCountries returns the supported country codes.
func AllCountries() []Country {
	return []Country{CountrySpain, CountryItaly, CountryPortugal}
}

// IsValid checks if the country code is supported.
func (c Country) IsValid() bool {
	for _, v := range AllCountries() {
		if v == c {
			return true
		}
	}
	return false
}

// Operation is the listing operation filter.
type Operation string

const (
	OperationSale Operation = "sale"
	OperationRent Operation = "rent"
)

// IsValid checks if the operation is supported.
func (o Operation) IsValid() bool {
	return o == OperationSale || o == OperationRent
}

// PropertyType is the listing property-type filter.
type PropertyType string

const (
	PropertyHomes    PropertyType = "homes"
	PropertyOffices  PropertyType = "offices"
	PropertyPremises PropertyType = "premises"
	PropertyGarages  PropertyType = "garages"
	PropertyBedrooms PropertyType = "bedrooms"
)

// AllPropertyTypes returns the supported property types.
func AllPropertyTypes() []PropertyType {
	return []PropertyType{PropertyHomes, PropertyOffices, PropertyPremises, PropertyGarages, PropertyBedrooms}
}

// IsValid checks if the property type is supported.
func (p PropertyType) IsValid() bool {
	for _, v := range AllPropertyTypes() {
		if v == p {
			return true
		}
	}
	return false
}

// SearchQuery describes one search request. Values are immutable per
// request; successive pages are derived with WithPage.
type SearchQuery struct {
	Country      Country
	Operation    Operation
	PropertyType PropertyType
	Center       string // "lat,lon"
	Distance     int    // meters, required with Center
	LocationID   string
	Locale       string
	MaxItems     int // clamped to MaxPageSize
	NumPage      int
	Filters      map[string]string // extra form fields passed through verbatim
}

// Validate checks the query against the API contract.
func (q SearchQuery) Validate() error {
	if !q.Country.IsValid() {
		return fmt.Errorf("%w: unsupported country %q", ErrInvalidQuery, q.Country)
	}
	if !q.Operation.IsValid() {
		return fmt.Errorf("%w: unsupported operation %q", ErrInvalidQuery, q.Operation)
	}
	if !q.PropertyType.IsValid() {
		return fmt.Errorf("%w: unsupported property type %q", ErrInvalidQuery, q.PropertyType)
	}
	if q.Center == "" && q.LocationID == "" {
		return fmt.Errorf("%w: provide a center point or a location id", ErrInvalidQuery)
	}
	if q.Center != "" && q.Distance <= 0 {
		return fmt.Errorf("%w: a center point requires a distance in meters", ErrInvalidQuery)
	}
	return nil
}

// WithPage derives the query for the given page number. The Filters map is
// shared; callers treat it as read-only.
func (q SearchQuery) WithPage(page int) SearchQuery {
	q.NumPage = page
	return q
}

// Fields returns the ordered multipart form fields for the request.
// maxItems is clamped to the API maximum and numPage defaults to 1.
func (q SearchQuery) Fields() [][2]string {
	maxItems := q.MaxItems
	if maxItems <= 0 || maxItems > MaxPageSize {
		maxItems = MaxPageSize
	}
	page := q.NumPage
	if page < 1 {
		page = 1
	}

	fields := [][2]string{
		{"operation", string(q.Operation)},
		{"propertyType", string(q.PropertyType)},
	}
	if q.Center != "" {
		fields = append(fields, [2]string{"center", q.Center})
		fields = append(fields, [2]string{"distance", strconv.Itoa(q.Distance)})
	}
	if q.LocationID != "" {
		fields = append(fields, [2]string{"locationId", q.LocationID})
	}
	if q.Locale != "" {
		fields = append(fields, [2]string{"locale", q.Locale})
	}
	fields = append(fields, [2]string{"maxItems", strconv.Itoa(maxItems)})
	fields = append(fields, [2]string{"numPage", strconv.Itoa(page)})

	// Extra filters in sorted order for deterministic bodies.
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, [2]string{k, q.Filters[k]})
	}

	return fields
}
