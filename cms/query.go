package cms

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// StatusAny asks Cosmic for drafts as well as published objects.
const StatusAny = "any"

// Query is a declarative Cosmic objects query. The zero value of every field
// except Type means "not set". Builder methods return modified copies, so a
// Query can be shared as a template.
type Query struct {
	Type    ObjectType
	Filters map[string]string // equality on direct ("slug") or nested ("metadata.author") fields
	Props   []string
	Depth   int
	Status  string
	Limit   int
	Sort    string
}

// NewQuery starts a query for objects of type t.
func NewQuery(t ObjectType) Query {
	return Query{Type: t}
}

// Where adds an equality filter.
func (q Query) Where(field, value string) Query {
	f := make(map[string]string, len(q.Filters)+1)
	maps.Copy(f, q.Filters)
	f[field] = value
	q.Filters = f
	return q
}

// Select restricts the returned fields.
func (q Query) Select(props ...string) Query {
	q.Props = slices.Clone(props)
	return q
}

// WithDepth sets how many levels of references Cosmic expands.
func (q Query) WithDepth(depth int) Query {
	q.Depth = depth
	return q
}

// WithStatus sets the publish status filter; see StatusAny.
func (q Query) WithStatus(status string) Query {
	q.Status = status
	return q
}

// validate rejects queries the remote side would misread.
func (q Query) validate() error {
	if !q.Type.Valid() {
		return fmt.Errorf("cms: query: unknown object type %q", q.Type)
	}
	if q.Depth < 0 || q.Depth > 1 {
		return fmt.Errorf("cms: query: depth %d out of range [0,1]", q.Depth)
	}
	if q.Limit < 0 {
		return fmt.Errorf("cms: query: negative limit %d", q.Limit)
	}
	for field := range q.Filters {
		if field == "" || field == "type" {
			return fmt.Errorf("cms: query: invalid filter field %q", field)
		}
	}
	return nil
}

// values encodes q as the query string of an objects request, without
// credentials. "type" is always selected so responses carry their tag.
func (q Query) values() (url.Values, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	filter := make(map[string]string, len(q.Filters)+1)
	maps.Copy(filter, q.Filters)
	filter["type"] = string(q.Type)
	encoded, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("cms: query: %w", err)
	}

	v := url.Values{}
	v.Set("query", string(encoded))
	if len(q.Props) > 0 {
		props := slices.Clone(q.Props)
		if !slices.Contains(props, "type") {
			props = append(props, "type")
		}
		v.Set("props", strings.Join(props, ","))
	}
	if q.Depth > 0 {
		v.Set("depth", strconv.Itoa(q.Depth))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v, nil
}
