/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameJSON(t *testing.T) {
	r := require.New(t)

	t.Run("unmarshal", func(t *testing.T) {
		var frame Frame

		r.NoError(json.Unmarshal([]byte(`{
			"_sd": ["name", "address"],
			"_decoyCount": 2,
			"address": {"_sd": ["city"]},
			"nationalities": {"_sd": [0, 1]}
		}`), &frame))

		r.Equal(Frame{
			SD:     []string{"name", "address"},
			Decoys: 2,
			Nested: map[string]*Frame{
				"address":       {SD: []string{"city"}},
				"nationalities": {SDIndices: []int{0, 1}},
			},
		}, frame)
	})

	t.Run("marshal", func(t *testing.T) {
		frame := &Frame{
			SD:     []string{"name"},
			Decoys: 1,
			Nested: map[string]*Frame{"nationalities": {SDIndices: []int{1}}},
		}

		b, err := json.Marshal(frame)
		r.NoError(err)
		r.JSONEq(`{"_sd":["name"],"_decoyCount":1,"nationalities":{"_sd":[1]}}`, string(b))

		var decoded Frame
		r.NoError(json.Unmarshal(b, &decoded))
		r.Equal(*frame, decoded)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, tc := range []struct {
			name string
			json string
			err  string
		}{
			{name: "not an object", json: `[]`, err: "frame must be a JSON object"},
			{name: "_sd not an array", json: `{"_sd": "name"}`, err: "_sd must be an array"},
			{name: "negative index", json: `{"_sd": [-1]}`, err: "must be a non-negative integer"},
			{name: "fractional index", json: `{"_sd": [1.5]}`, err: "must be a non-negative integer"},
			{name: "boolean selector", json: `{"_sd": [true]}`, err: "must be string or integer"},
			{name: "negative decoys", json: `{"_decoyCount": -1}`, err: "must not be negative"},
			{name: "nested not an object", json: `{"address": "city"}`, err: "frame for 'address'"},
		} {
			t.Run(tc.name, func(t *testing.T) {
				var frame Frame

				err := json.Unmarshal([]byte(tc.json), &frame)
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.err)
			})
		}
	})
}

func TestNewFrameFromPaths(t *testing.T) {
	r := require.New(t)

	t.Run("success", func(t *testing.T) {
		frame, err := NewFrameFromPaths([]string{
			"name", "address.city", "address.country", "nationalities[1]", "degrees[0].type", "name",
		})
		r.NoError(err)

		r.Equal(&Frame{
			SD: []string{"name"},
			Nested: map[string]*Frame{
				"address":       {SD: []string{"city", "country"}},
				"nationalities": {SDIndices: []int{1}},
				"degrees": {Nested: map[string]*Frame{
					"0": {SD: []string{"type"}},
				}},
			},
		}, frame)
	})

	t.Run("nested arrays", func(t *testing.T) {
		frame, err := NewFrameFromPaths([]string{"matrix[1][2]"})
		r.NoError(err)

		r.Equal(&Frame{Nested: map[string]*Frame{
			"matrix": {Nested: map[string]*Frame{"1": {SDIndices: []int{2}}}},
		}}, frame)
	})

	t.Run("no paths", func(t *testing.T) {
		frame, err := NewFrameFromPaths(nil)
		r.NoError(err)
		r.True(frame.IsEmpty())
	})

	t.Run("invalid paths", func(t *testing.T) {
		for _, path := range []string{"", "address.", ".city", "list[x]", "list[-1]", "list[1", "list]1[", "[0]"} {
			_, err := NewFrameFromPaths([]string{path})
			r.Error(err, path)
		}
	})
}

func TestFrameIsEmpty(t *testing.T) {
	r := require.New(t)

	var nilFrame *Frame

	r.True(nilFrame.IsEmpty())
	r.True((&Frame{}).IsEmpty())
	r.True((&Frame{Nested: map[string]*Frame{"a": {}, "b": nil}}).IsEmpty())
	r.False((&Frame{Decoys: 1}).IsEmpty())
	r.False((&Frame{Nested: map[string]*Frame{"a": {SDIndices: []int{0}}}}).IsEmpty())
}
