// Package registry lists every collection that references an event.
//
// The list is static and versioned. The cascade engine, the backup writer and
// the recovery service all read it, so adding a dependent table means adding
// an entry here and bumping Version.
package registry

import "fmt"

// Version is stamped into every backup artifact
const Version = 1

// RootCollection holds the event documents themselves
const RootCollection = "events"

// RootKey is the primary key of the root collection
const RootKey = "id"

// Handler decides what a cascade does with matching records
type Handler string

const (
	// HandlerDelete removes every record whose foreign key matches
	HandlerDelete Handler = "delete"
	// HandlerClearPointer keeps the record but nulls the foreign key
	HandlerClearPointer Handler = "clear_pointer"
)

type Entry struct {
	Collection string
	ForeignKey string
	Handler    Handler
}

// IsPointer reports whether records are kept and only their reference cleared
func (e Entry) IsPointer() bool {
	return e.Handler == HandlerClearPointer
}

type Registry struct {
	version int
	entries []Entry
}

var defaultEntries = []Entry{
	{Collection: "check_ins", ForeignKey: "event_id", Handler: HandlerDelete},
	{Collection: "tickets", ForeignKey: "event_id", Handler: HandlerDelete},
	{Collection: "payments", ForeignKey: "event_id", Handler: HandlerDelete},
	{Collection: "registrations", ForeignKey: "event_id", Handler: HandlerDelete},
	{Collection: "event_sessions", ForeignKey: "event_id", Handler: HandlerDelete},
	{Collection: "user_event_preferences", ForeignKey: "last_active_event_id", Handler: HandlerClearPointer},
}

// Default returns the registry for the current schema
func Default() *Registry {
	r, err := New(Version, defaultEntries...)
	if err != nil {
		panic(err)
	}
	return r
}

// New builds a registry and rejects duplicates or incomplete entries
func New(version int, entries ...Entry) (*Registry, error) {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Collection == "" || e.ForeignKey == "" {
			return nil, fmt.Errorf("registry entry requires collection and foreign key: %+v", e)
		}
		if e.Collection == RootCollection {
			return nil, fmt.Errorf("root collection %s cannot be a dependent", RootCollection)
		}
		if e.Handler != HandlerDelete && e.Handler != HandlerClearPointer {
			return nil, fmt.Errorf("unknown handler %q for %s", e.Handler, e.Collection)
		}
		if _, dup := seen[e.Collection]; dup {
			return nil, fmt.Errorf("duplicate registry entry for %s", e.Collection)
		}
		seen[e.Collection] = struct{}{}
	}

	copied := make([]Entry, len(entries))
	copy(copied, entries)
	return &Registry{version: version, entries: copied}, nil
}

func (r *Registry) Version() int {
	return r.version
}

// Entries returns the dependents in cascade order
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Collections returns dependent collection names in cascade order
func (r *Registry) Collections() []string {
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.Collection)
	}
	return names
}

func (r *Registry) Lookup(collection string) (Entry, bool) {
	for _, e := range r.entries {
		if e.Collection == collection {
			return e, true
		}
	}
	return Entry{}, false
}
