package shopping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListID(t *testing.T) {
	cases := []struct {
		name string
		ids  []string
		want string
	}{
		{"TwoIDs", []string{"1", "2"}, "sl_c727"},
		{"OrderIndependent", []string{"2", "1"}, "sl_c727"},
		{"SingleA", []string{"a"}, "sl_61"},
		{"SingleB", []string{"b"}, "sl_62"},
		{"Empty", nil, "sl_0"},
		{"NegativeHash", []string{"dish-2", "dish-1"}, "sl_4a1a7e43"},
		{"Overflow", []string{"hello world"}, "sl_6aefe2c4"},
		{"NonASCII", []string{"猪肉"}, "sl_e729f"},
		{"SurrogatePair", []string{"😀"}, "sl_1b0d63"},
		{"UUIDs", []string{"b9c1e2a4-0d5f-4a43-9c1e-2f3a5b6c7d8e", "3f1a2b4c-5d6e-4f70-8192-a3b4c5d6e7f8"}, "sl_60734457"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ListID(tc.ids))
		})
	}
}

func TestListIDDoesNotReorderInput(t *testing.T) {
	ids := []string{"b", "a"}
	_ = ListID(ids)
	assert.Equal(t, []string{"b", "a"}, ids)
}
