package distobj

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/weilewei/dist-object/pkg/distobj/core"
	"github.com/weilewei/dist-object/pkg/distobj/definition"
	"github.com/weilewei/dist-object/pkg/distobj/types"
)

// ConstructionMode selects how participants find each other while a
// distributed object is being constructed.
type ConstructionMode int

const (
	// AllToAll registers every partition under its symbolic name and
	// resolves peers lazily on first use. Callers that need strict
	// collective semantics issue their own barrier before fetching.
	AllToAll ConstructionMode = iota

	// MetaObject rendezvouses every participant at a registry hosted
	// on the root locality; construction returns with the full peer
	// map already resolved.
	MetaObject
)

func (m ConstructionMode) String() string {
	switch m {
	case AllToAll:
		return "all_to_all"
	case MetaObject:
		return "meta_object"
	default:
		return "unknown"
	}
}

// RootUnset leaves the root tie-break to the smallest participant.
const RootUnset = types.LocalityID(-1)

// Config holds construction options for a distributed object.
type Config struct {
	// The public identity of the object. Partition names derive from
	// it, so it must be unique across concurrently live objects.
	Basename types.Basename

	// How construction synchronizes. Defaults to AllToAll.
	Mode ConstructionMode

	// Localities restricts participation. Empty means every locality
	// of the substrate participates.
	Localities []types.LocalityID

	// Root hosts the meta registry. RootUnset picks the smallest
	// participant.
	Root types.LocalityID

	// Logger utilities. Defaults to the library logger.
	Logger types.Logger

	// Used to spawn goroutines for asynchronous fetches.
	Invoker core.Invoker
}

// DefaultConfig returns the common-case configuration: AllToAll
// construction across every locality.
func DefaultConfig(basename types.Basename) Config {
	return Config{
		Basename: basename,
		Mode:     AllToAll,
		Root:     RootUnset,
		Logger:   definition.NewDefaultLogger(),
		Invoker:  core.InvokerInstance(),
	}
}

func (c *Config) normalize() {
	if c.Logger == nil {
		c.Logger = definition.NewDefaultLogger()
	}
	if c.Invoker == nil {
		c.Invoker = core.InvokerInstance()
	}
}

// participants resolves the participating set against the substrate:
// the configured subset when present, otherwise every locality.
// The returned set is sorted ascending.
func (c *Config) participants(sub types.Substrate) ([]types.LocalityID, error) {
	if c.Basename == "" {
		return nil, errors.Wrap(types.ErrConfig, "empty basename")
	}
	if len(c.Localities) == 0 {
		return sub.AllLocalities(), nil
	}

	seen := make(map[types.LocalityID]bool, len(c.Localities))
	set := make([]types.LocalityID, 0, len(c.Localities))
	for _, id := range c.Localities {
		if id < 0 {
			return nil, errors.Wrapf(types.ErrConfig, "negative locality %s", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		set = append(set, id)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set, nil
}

// root resolves the registry host: the configured override when set,
// otherwise the smallest participant. The override must be a member.
// A zero or negative Root counts as unset: locality 0 is only a
// meaningful override when it participates, and then it is already
// the smallest participant.
func (c *Config) root(participants []types.LocalityID) (types.LocalityID, error) {
	if c.Root <= 0 {
		return participants[0], nil
	}
	for _, id := range participants {
		if id == c.Root {
			return c.Root, nil
		}
	}
	return RootUnset, errors.Wrapf(types.ErrConfig, "root %s is not a participant", c.Root)
}

func contains(set []types.LocalityID, id types.LocalityID) bool {
	for _, member := range set {
		if member == id {
			return true
		}
	}
	return false
}
