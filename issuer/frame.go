/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperledger/aries-framework-go/component/sdjwt/common"
)

const decoyCountKey = "_decoyCount"

// Frame selects the claims of one claim tree node that become selectively disclosable.
//
// For a mapping node SD lists the disclosable keys. For a sequence node SDIndices lists the disclosable
// element indices. Nested holds frames for sub-structures, keyed by claim name or, for sequences,
// by the decimal element index. Decoys is the number of decoy digests added to the node.
//
// The JSON form of a frame is
//
//	{"_sd": ["name", 0], "_decoyCount": 1, "address": {"_sd": ["city"]}}
//
// where strings in "_sd" select keys and integers select indices.
type Frame struct {
	SD        []string
	SDIndices []int
	Decoys    int
	Nested    map[string]*Frame
}

// IsEmpty reports whether the frame (including its sub-frames) selects nothing.
func (f *Frame) IsEmpty() bool {
	if f == nil {
		return true
	}

	if len(f.SD) > 0 || len(f.SDIndices) > 0 || f.Decoys > 0 {
		return false
	}

	for _, nested := range f.Nested {
		if !nested.IsEmpty() {
			return false
		}
	}

	return true
}

func (f *Frame) child(key string) *Frame {
	if f == nil {
		return nil
	}

	return f.Nested[key]
}

func (f *Frame) nestedFrame(key string) *Frame {
	if f.Nested == nil {
		f.Nested = make(map[string]*Frame)
	}

	nested, ok := f.Nested[key]
	if !ok {
		nested = &Frame{}
		f.Nested[key] = nested
	}

	return nested
}

func (f *Frame) selectKey(key string) {
	for _, k := range f.SD {
		if k == key {
			return
		}
	}

	f.SD = append(f.SD, key)
}

func (f *Frame) selectIndex(idx int) {
	for _, i := range f.SDIndices {
		if i == idx {
			return
		}
	}

	f.SDIndices = append(f.SDIndices, idx)
}

// MarshalJSON encodes the frame in its "_sd" / "_decoyCount" JSON form.
func (f Frame) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(f.Nested)+2) //nolint:gomnd

	if len(f.SD) > 0 || len(f.SDIndices) > 0 {
		selected := make([]interface{}, 0, len(f.SD)+len(f.SDIndices))

		for _, k := range f.SD {
			selected = append(selected, k)
		}

		for _, i := range f.SDIndices {
			selected = append(selected, i)
		}

		m[common.SDKey] = selected
	}

	if f.Decoys > 0 {
		m[decoyCountKey] = f.Decoys
	}

	for k, nested := range f.Nested {
		if nested == nil {
			continue
		}

		m[k] = nested
	}

	return json.Marshal(m)
}

// UnmarshalJSON decodes the frame from its "_sd" / "_decoyCount" JSON form.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage

	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("frame must be a JSON object: %w", err)
	}

	*f = Frame{}

	for key, value := range raw {
		switch key {
		case common.SDKey:
			if err := f.unmarshalSelection(value); err != nil {
				return err
			}
		case decoyCountKey:
			if err := json.Unmarshal(value, &f.Decoys); err != nil {
				return fmt.Errorf("%s must be an integer: %w", decoyCountKey, err)
			}

			if f.Decoys < 0 {
				return fmt.Errorf("%s must not be negative", decoyCountKey)
			}
		default:
			nested := &Frame{}

			if err := json.Unmarshal(value, nested); err != nil {
				return fmt.Errorf("frame for '%s': %w", key, err)
			}

			if f.Nested == nil {
				f.Nested = make(map[string]*Frame)
			}

			f.Nested[key] = nested
		}
	}

	return nil
}

func (f *Frame) unmarshalSelection(value json.RawMessage) error {
	var selected []interface{}

	d := json.NewDecoder(bytes.NewReader(value))
	d.UseNumber()

	if err := d.Decode(&selected); err != nil {
		return fmt.Errorf("%s must be an array: %w", common.SDKey, err)
	}

	for _, s := range selected {
		switch v := s.(type) {
		case string:
			f.selectKey(v)
		case json.Number:
			idx, err := strconv.Atoi(v.String())
			if err != nil || idx < 0 {
				return fmt.Errorf("%s index '%s' must be a non-negative integer", common.SDKey, v)
			}

			f.selectIndex(idx)
		default:
			return fmt.Errorf("%s entry type[%T] must be string or integer", common.SDKey, s)
		}
	}

	return nil
}

// pathStep is a single component of a claim path: a key or an array index.
type pathStep struct {
	key     string
	index   int
	isIndex bool
}

// NewFrameFromPaths builds a frame from claim paths such as "name", "address.city" or
// "nationalities[1]". Each path marks its last component as disclosable.
func NewFrameFromPaths(paths []string) (*Frame, error) {
	frame := &Frame{}

	for _, path := range paths {
		steps, err := parsePath(path)
		if err != nil {
			return nil, err
		}

		node := frame

		for _, step := range steps[:len(steps)-1] {
			node = node.nestedFrame(step.frameKey())
		}

		last := steps[len(steps)-1]
		if last.isIndex {
			node.selectIndex(last.index)
		} else {
			node.selectKey(last.key)
		}
	}

	return frame, nil
}

func (s pathStep) frameKey() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}

	return s.key
}

func parsePath(path string) ([]pathStep, error) {
	if path == "" {
		return nil, errors.New("empty claim path")
	}

	var steps []pathStep

	for _, segment := range strings.Split(path, ".") {
		name := segment
		if open := strings.IndexByte(segment, '['); open >= 0 {
			name = segment[:open]
		}

		if name == "" {
			return nil, fmt.Errorf("claim path '%s': empty claim name", path)
		}

		steps = append(steps, pathStep{key: name})

		rest := segment[len(name):]
		for rest != "" {
			closing := strings.IndexByte(rest, ']')
			if rest[0] != '[' || closing < 0 {
				return nil, fmt.Errorf("claim path '%s': malformed index in '%s'", path, segment)
			}

			idx, err := strconv.Atoi(rest[1:closing])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("claim path '%s': invalid index '%s'", path, rest[1:closing])
			}

			steps = append(steps, pathStep{index: idx, isIndex: true})
			rest = rest[closing+1:]
		}
	}

	return steps, nil
}

// sortedKeys returns the keys of m in lexicographic order.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
