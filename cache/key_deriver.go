package cache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/phucquyet1202/EtaxiBE/query"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

// GuestIdentity is the identity segment used when no caller id is known.
const GuestIdentity = "guest"

// Lookup identifies a cached result: which operation on which resource, for
// whom, with which arguments.
type Lookup struct {
	Resource  string
	Operation string
	Identity  string
	Args      any
}

// RelevantArgser is implemented by argument types that know which of their
// fields affect the result.
type RelevantArgser interface {
	RelevantArgs() map[string]any
}

type defaultKeyDeriver struct{}

// NewDefaultKeyDeriver returns the key deriver producing
// {prefix}:{resource}:{operation}:{identity}[:{digest}] keys.
func NewDefaultKeyDeriver() KeyDeriver {
	return defaultKeyDeriver{}
}

// DeriveKey builds the key for l using the prefix and extra key from o.
func (defaultKeyDeriver) DeriveKey(l Lookup, o Options) string {
	return DeriveKey(l, o)
}

// DeriveKey builds the cache key for l. When o.ExtraKey is set it replaces the
// argument digest entirely; otherwise the relevant arguments are digested and
// argument-less lookups get no digest segment at all.
func DeriveKey(l Lookup, o Options) string {
	prefix := o.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	identity := l.Identity
	if identity == "" {
		identity = GuestIdentity
	}

	parts := []string{prefix, strings.ToLower(l.Resource), l.Operation, identity}

	if o.ExtraKey != "" {
		parts = append(parts, digestString(o.ExtraKey))
	} else if relevant := RelevantArgs(l.Args); len(relevant) > 0 {
		parts = append(parts, Digest(relevant))
	}

	return strings.Join(parts, KeySeparator)
}

// RelevantArgs extracts the result-shaping subset of args. Values that are
// neither RelevantArgsers nor string-keyed maps yield an empty projection.
func RelevantArgs(args any) map[string]any {
	switch a := args.(type) {
	case nil:
		return map[string]any{}
	case RelevantArgser:
		return a.RelevantArgs()
	case map[string]any:
		return query.FilterRelevant(a)
	default:
		return map[string]any{}
	}
}

// Digest returns a short non-cryptographic fingerprint of v's canonical form.
func Digest(v any) string {
	return digestString(canonicalize(v))
}

func digestString(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 36)
}

// ResourcePattern is the glob matching every key of resource under prefix.
func ResourcePattern(prefix, resource string) string {
	return prefix + KeySeparator + strings.ToLower(resource) + KeySeparator + "*"
}

// PrefixPattern is the glob matching every key under prefix.
func PrefixPattern(prefix string) string {
	return prefix + KeySeparator + "*"
}
