package cms

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ObjectType is the type tag Cosmic attaches to every object.
type ObjectType string

const (
	TypePosts      ObjectType = "posts"
	TypeAuthors    ObjectType = "authors"
	TypeCategories ObjectType = "categories"
)

// Valid reports whether t is one of the object types this site reads.
func (t ObjectType) Valid() bool {
	switch t {
	case TypePosts, TypeAuthors, TypeCategories:
		return true
	}
	return false
}

// ErrMalformed is wrapped by every decode error caused by an object that does
// not match the shape its type tag promises.
var ErrMalformed = errors.New("cms: malformed object")

// Object is the shape shared by every entity kind.
type Object struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Type        ObjectType `json:"type"`
	Status      string     `json:"status,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ModifiedAt  *time.Time `json:"modified_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Date is the publish time, or the creation time for unpublished objects.
func (o Object) Date() time.Time {
	if o.PublishedAt != nil && !o.PublishedAt.IsZero() {
		return *o.PublishedAt
	}
	return o.CreatedAt
}

// Entity is implemented by Post, Author and Category only. The concrete type
// fixes the metadata shape, so a type tag can never be paired with another
// kind's metadata.
type Entity interface {
	Kind() ObjectType
	Base() Object
	entity()
}

// Image is a Cosmic media reference.
type Image struct {
	URL      string `json:"url"`
	ImgixURL string `json:"imgix_url"`
}

// UnmarshalJSON accepts the empty string Cosmic sends for an unset media field.
func (i *Image) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == `""` || string(b) == "null" {
		*i = Image{}
		return nil
	}
	type plain Image
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*i = Image(p)
	return nil
}

// Present reports whether the image has a usable URL.
func (i *Image) Present() bool {
	return i != nil && (i.ImgixURL != "" || i.URL != "")
}

// Ref is a single-object relationship. At depth 0, when Cosmic could not
// expand it, or when the expanded object is malformed, only the ID is known.
type Ref[T Entity] struct {
	ID    string
	value *T
}

// Resolved returns the expanded object if Cosmic returned one.
func (r Ref[T]) Resolved() (T, bool) {
	if r.value == nil {
		var zero T
		return zero, false
	}
	return *r.value, true
}

// NewRef returns a resolved reference to v.
func NewRef[T Entity](v T) Ref[T] {
	return Ref[T]{ID: v.Base().ID, value: &v}
}

func (r *Ref[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*r = Ref[T]{}
	if len(b) == 0 || string(b) == "null" || string(b) == `""` {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		if !errors.Is(err, ErrMalformed) {
			return err
		}
		// An expanded object that fails validation degrades to its ID.
		var id struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(b, &id) != nil {
			return err
		}
		r.ID = id.ID
		return nil
	}
	r.ID = v.Base().ID
	r.value = &v
	return nil
}

func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.value != nil {
		return json.Marshal(*r.value)
	}
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// PostMetadata is the metadata schema of a "posts" object.
type PostMetadata struct {
	Content       string        `json:"content"`
	Excerpt       string        `json:"excerpt,omitempty"`
	FeaturedImage *Image        `json:"featured_image,omitempty"`
	Author        Ref[Author]   `json:"author"`
	Category      Ref[Category] `json:"category"`
	Tags          string        `json:"tags,omitempty"`
	Featured      bool          `json:"featured"`
}

// TagList splits the comma-separated tags string, dropping blanks.
func (m PostMetadata) TagList() []string {
	var out []string
	for _, t := range strings.Split(m.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Post is a blog post.
type Post struct {
	Object
	Metadata PostMetadata `json:"metadata"`
}

func (Post) Kind() ObjectType { return TypePosts }
func (p Post) Base() Object   { return p.Object }
func (Post) entity()          {}

func (p *Post) UnmarshalJSON(b []byte) error {
	type plain Post
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: post: %v", ErrMalformed, err)
	}
	if err := checkKind(&v.Object, TypePosts); err != nil {
		return err
	}
	*p = Post(v)
	return nil
}

// AuthorMetadata is the metadata schema of an "authors" object.
type AuthorMetadata struct {
	Name     string `json:"name"`
	Bio      string `json:"bio,omitempty"`
	Avatar   *Image `json:"avatar,omitempty"`
	Email    string `json:"email,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// Author is a post author.
type Author struct {
	Object
	Metadata AuthorMetadata `json:"metadata"`
}

func (Author) Kind() ObjectType { return TypeAuthors }
func (a Author) Base() Object   { return a.Object }
func (Author) entity()          {}

func (a *Author) UnmarshalJSON(b []byte) error {
	type plain Author
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: author: %v", ErrMalformed, err)
	}
	if err := checkKind(&v.Object, TypeAuthors); err != nil {
		return err
	}
	if strings.TrimSpace(v.Metadata.Name) == "" {
		return fmt.Errorf("%w: author %q has no name", ErrMalformed, v.Slug)
	}
	*a = Author(v)
	return nil
}

// CategoryMetadata is the metadata schema of a "categories" object.
type CategoryMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// Category is a post category.
type Category struct {
	Object
	Metadata CategoryMetadata `json:"metadata"`
}

func (Category) Kind() ObjectType { return TypeCategories }
func (c Category) Base() Object   { return c.Object }
func (Category) entity()          {}

func (c *Category) UnmarshalJSON(b []byte) error {
	type plain Category
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: category: %v", ErrMalformed, err)
	}
	if err := checkKind(&v.Object, TypeCategories); err != nil {
		return err
	}
	if strings.TrimSpace(v.Metadata.Name) == "" {
		return fmt.Errorf("%w: category %q has no name", ErrMalformed, v.Slug)
	}
	*c = Category(v)
	return nil
}

// checkKind rejects a tag naming another kind. An absent tag takes the
// expected kind; the client always selects "type", so only nested objects
// expanded by the remote side can arrive without one.
func checkKind(o *Object, want ObjectType) error {
	switch o.Type {
	case "":
		o.Type = want
	case want:
	default:
		return fmt.Errorf("%w: type %q where %q was requested", ErrMalformed, o.Type, want)
	}
	return nil
}

// DecodeEntity decodes raw into the entity kind named by its type tag.
func DecodeEntity(raw json.RawMessage) (Entity, error) {
	var head struct {
		Type ObjectType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch head.Type {
	case TypePosts:
		return decodeAs[Post](raw)
	case TypeAuthors:
		return decodeAs[Author](raw)
	case TypeCategories:
		return decodeAs[Category](raw)
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, head.Type)
}

func decodeAs[T Entity](raw json.RawMessage) (Entity, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
