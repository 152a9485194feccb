// Package descriptor packs one indexed option fact into a single uint64.
//
// Layout, most significant first:
//
//	| group (16) | configurable id (16) | hit (16) | path (16) |
//
// Each field is an interner id; interner.Null marks an absent field. The
// configurable id is always present.
package descriptor

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/interner"
)

const (
	groupShift        = 48
	configurableShift = 32
	hitShift          = 16
	fieldMask         = 0xFFFF
)

// OptionDescription is the decoded form of a packed descriptor. Empty
// strings stand for absent fields.
type OptionDescription struct {
	GroupName      string `json:"group_name,omitempty"`
	ConfigurableID string `json:"configurable_id"`
	Hit            string `json:"hit,omitempty"`
	Path           string `json:"path,omitempty"`
}

// Pack interns the fields into in and lays them out as a uint64. Fields are
// trimmed; empty ones are stored as interner.Null. It panics on an empty
// configurable id, which only a broken builder can produce.
func Pack(in *interner.Interner, configurableID, hit, path, group string) (uint64, error) {
	if strings.TrimSpace(configurableID) == "" {
		panic("descriptor: configurable id is required")
	}
	cid, err := in.ToID(configurableID)
	if err != nil {
		return 0, err
	}
	hid, err := optional(in, hit)
	if err != nil {
		return 0, err
	}
	pid, err := optional(in, path)
	if err != nil {
		return 0, err
	}
	gid, err := optional(in, group)
	if err != nil {
		return 0, err
	}
	return uint64(gid)<<groupShift | uint64(cid)<<configurableShift | uint64(hid)<<hitShift | uint64(pid), nil
}

// Unpack decodes word against the interner that packed it.
func Unpack(word uint64, in *interner.Interner) OptionDescription {
	cid := field(word, configurableShift)
	if cid == interner.Null {
		panic(fmt.Sprintf("descriptor: %#016x has no configurable id", word))
	}
	return OptionDescription{
		GroupName:      in.FromID(field(word, groupShift)),
		ConfigurableID: in.FromID(cid),
		Hit:            in.FromID(field(word, hitShift)),
		Path:           in.FromID(field(word, 0)),
	}
}

// ConfigurableID decodes only the configurable id field.
func ConfigurableID(word uint64, in *interner.Interner) string {
	return in.FromID(field(word, configurableShift))
}

func field(word uint64, shift uint) interner.ID {
	return interner.ID(word >> shift & fieldMask)
}

func optional(in *interner.Interner, s string) (interner.ID, error) {
	if strings.TrimSpace(s) == "" {
		return interner.Null, nil
	}
	return in.ToID(s)
}
