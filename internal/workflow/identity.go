// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/astro-facts/pkg/types"
)

// placeholderMarker prefixes the local id of subjects whose identity could
// not be computed.
const placeholderMarker = "problematic"

// ResolveIdentity returns the subject URI of item. It never fails: when no
// identity extractor is registered for the item's type, or the extractor
// errors, panics or returns a URI without a fragment, the deterministic
// Placeholder is used instead.
func (r *Registry) ResolveIdentity(ctx context.Context, item types.InputItem) string {
	d, ok := r.IdentityFor(item.Type)
	if !ok {
		r.logger.Debugw("no identity extractor", "type", item.Type)
		return Placeholder(item)
	}

	uri, err := identify(ctx, d, item.Value)
	if err != nil {
		r.logger.Debugw("identity failed, using placeholder", "extractor", d.Name, "type", item.Type, "error", err)
		return Placeholder(item)
	}
	if !strings.Contains(uri, "#") {
		r.logger.Debugw("identity without fragment, using placeholder", "extractor", d.Name, "uri", uri)
		return Placeholder(item)
	}
	return uri
}

func identify(ctx context.Context, d Descriptor, in types.Input) (uri string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf("identity %s panicked: %v", d.Name, p)
		}
	}()
	return d.Identify(ctx, in)
}

// Placeholder builds the fallback subject URI for item: the ontology
// namespace, the type tag, and the first 8 hex characters of the SHA-224 of
// the value's canonical text. The canonical text is the JSON encoding; values
// JSON cannot encode (funcs, channels, NaN) fall back to a walk that follows
// pointers instead of printing addresses.
func Placeholder(item types.InputItem) string {
	canonical, err := json.Marshal(item.Value)
	if err != nil {
		var b strings.Builder
		writeCanonical(&b, reflect.ValueOf(item.Value), 0)
		canonical = []byte(b.String())
	}
	sum := sha256.Sum224(canonical)
	return types.OntologyNS + placeholderMarker + string(item.Type) + hex.EncodeToString(sum[:])[:8]
}

const maxCanonicalDepth = 32

func writeCanonical(b *strings.Builder, v reflect.Value, depth int) {
	if !v.IsValid() {
		b.WriteString("nil")
		return
	}
	if depth > maxCanonicalDepth {
		b.WriteString("...")
		return
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			b.WriteString("nil")
			return
		}
		writeCanonical(b, v.Elem(), depth+1)
	case reflect.Struct:
		b.WriteString(v.Type().String())
		b.WriteString("{")
		for i := range v.NumField() {
			fmt.Fprintf(b, "%s:", v.Type().Field(i).Name)
			writeCanonical(b, v.Field(i), depth+1)
			b.WriteString(",")
		}
		b.WriteString("}")
	case reflect.Slice, reflect.Array:
		b.WriteString("[")
		for i := range v.Len() {
			writeCanonical(b, v.Index(i), depth+1)
			b.WriteString(",")
		}
		b.WriteString("]")
	case reflect.Map:
		entries := make([]string, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			var e strings.Builder
			writeCanonical(&e, iter.Key(), depth+1)
			e.WriteString(":")
			writeCanonical(&e, iter.Value(), depth+1)
			entries = append(entries, e.String())
		}
		slices.Sort(entries)
		b.WriteString("map[" + strings.Join(entries, ",") + "]")
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		b.WriteString(v.Type().String())
	default:
		if v.CanInterface() {
			fmt.Fprintf(b, "%v", v.Interface())
		} else {
			fmt.Fprintf(b, "%v", v)
		}
	}
}

// IsPlaceholder reports whether uri was built by Placeholder.
func IsPlaceholder(uri string) bool {
	return strings.HasPrefix(uri, types.OntologyNS+placeholderMarker)
}

// SplitURI splits a subject URI at its last "#" into namespace and local id.
func SplitURI(uri string) (ns, id string) {
	i := strings.LastIndex(uri, "#")
	if i < 0 {
		return "", uri
	}
	return uri[:i], uri[i+1:]
}
