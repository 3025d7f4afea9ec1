package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name      string
		filter    string
		wantGroup string
		want      []Segment
	}{
		{
			name:   "literal",
			filter: "home/room",
			want: []Segment{
				{Kind: Literal, Literal: "home"},
				{Kind: Literal, Literal: "room"},
			},
		},
		{
			name:   "wildcards",
			filter: "home/+/sensor/#",
			want: []Segment{
				{Kind: Literal, Literal: "home"},
				{Kind: SingleLevel},
				{Kind: Literal, Literal: "sensor"},
				{Kind: MultiLevel},
			},
		},
		{
			name:   "empty levels",
			filter: "/a//",
			want: []Segment{
				{Kind: Literal},
				{Kind: Literal, Literal: "a"},
				{Kind: Literal},
				{Kind: Literal},
			},
		},
		{
			name:      "shared",
			filter:    "$share/workers/jobs/+",
			wantGroup: "workers",
			want: []Segment{
				{Kind: Literal, Literal: "jobs"},
				{Kind: SingleLevel},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantGroup, f.Group)
			assert.Equal(t, tt.want, f.Segments)
			assert.Equal(t, tt.filter, f.String())
		})
	}
}

func TestParseFilter_Invalid(t *testing.T) {
	for _, filter := range []string{"", "a/#/b", "a+", "$share//x", "$share/g/a#"} {
		t.Run(filter, func(t *testing.T) {
			_, err := ParseFilter(filter)
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}
}

func TestMustParseFilter(t *testing.T) {
	assert.NotPanics(t, func() { MustParseFilter("a/b") })
	assert.Panics(t, func() { MustParseFilter("a/#/b") })
}

func TestFilter_Properties(t *testing.T) {
	plain := MustParseFilter("a/b")
	wild := MustParseFilter("a/+")
	shared := MustParseFilter("$share/g/a/b")

	assert.False(t, plain.HasWildcards())
	assert.True(t, wild.HasWildcards())
	assert.False(t, plain.IsShared())
	assert.True(t, shared.IsShared())
	assert.Equal(t, []string{"a", "+"}, wild.Levels())

	assert.True(t, plain.Equal(MustParseFilter("a/b")))
	assert.False(t, plain.Equal(wild))
	assert.False(t, plain.Equal(shared))
	assert.False(t, plain.Equal(MustParseFilter("a/b/c")))
}

func TestFilter_Match(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"home/room/temperature", "home/room/temperature", true},
		{"home/room/temperature", "home/room/humidity", false},
		{"home/+/temperature", "home/room/temperature", true},
		{"home/+/temperature", "home/room/kitchen/temperature", false},
		{"home/#", "home/room/temperature", true},
		{"home/#", "home", true},
		{"home/#", "office", false},
		{"#", "home/room/temperature", true},
		{"home/+/+/temperature", "home/a/b/temperature", true},
		{"sport/+", "sport/", true},
		{"sport/+", "sport", false},
		{"+", "/finance", false},
		{"+/+", "/finance", true},
		{"/+", "/finance", true},
		{"a/b", "a/b/c", false},
		{"a/b/c", "a/b", false},
		{"#", "$SYS/uptime", false},
		{"+/uptime", "$SYS/uptime", false},
		{"$SYS/#", "$SYS/uptime", true},
		{"$share/g/jobs/+", "jobs/1", true},
	}

	for _, tt := range tests {
		t.Run(tt.filter+" "+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, MustParseFilter(tt.filter).Match(tt.topic))
		})
	}
}

func TestFilter_MatchZeroValue(t *testing.T) {
	assert.False(t, Filter{}.Match("a"))
}

func BenchmarkFilter_Match(b *testing.B) {
	f := MustParseFilter("home/+/sensor/+/temperature")
	topic := "home/room/sensor/device1/temperature"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = f.Match(topic)
	}
}

func BenchmarkParseFilter(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = ParseFilter("$share/group1/home/+/sensor/#")
	}
}
