package cache

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Resource is the namespace of one kind of cached data within a store.
type Resource string

const ResourceProducts Resource = "products"

// Prefix addresses every cached entry of one resource in one store.
type Prefix struct {
	StoreID  uuid.UUID
	Resource Resource
}

// Key addresses one cached query result. Shape identifies the query within its Prefix.
type Key struct {
	Prefix
	Shape Shape
}

// Key returns the key for shape under p.
func (p Prefix) Key(shape Shape) Key {
	return Key{Prefix: p, Shape: shape}
}

// Shape is a canonical serialization of a query's kind and parameters.
type Shape string

// NewShape builds a Shape from a query kind and its parameters. Parameters are sorted,
// so the same filter set always produces the same shape. Empty values are dropped so an
// absent filter and an empty filter share one entry.
func NewShape(kind string, params map[string]string) Shape {
	values := url.Values{}
	for k, v := range params {
		if v == "" {
			continue
		}
		values.Set(k, v)
	}
	if len(values) == 0 {
		return Shape(kind)
	}
	return Shape(kind + "?" + values.Encode())
}

// encoder turns structured keys into store keys of the form ns:store:resource:shape.
// Every segment is escaped so it cannot contain the ':' separator, which makes the
// textual prefix of a Prefix match exactly the keys of that Prefix and nothing else.
type encoder struct {
	namespace string
}

var segmentEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

func escapeSegment(s string) string {
	return segmentEscaper.Replace(s)
}

func (e encoder) prefix(p Prefix) string {
	var b strings.Builder
	b.WriteString(escapeSegment(e.namespace))
	b.WriteByte(':')
	b.WriteString(escapeSegment(p.StoreID.String()))
	b.WriteByte(':')
	b.WriteString(escapeSegment(string(p.Resource)))
	b.WriteByte(':')
	return b.String()
}

// generation is the counter key of p. It lives outside the ns:store: keyspace so
// deleting the prefix never removes it.
func (e encoder) generation(p Prefix) string {
	return escapeSegment(e.namespace) + ":gen:" + escapeSegment(p.StoreID.String()) + ":" + escapeSegment(string(p.Resource))
}

func (e encoder) key(k Key) string {
	return e.prefix(k.Prefix) + escapeSegment(string(k.Shape))
}
