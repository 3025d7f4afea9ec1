package topic

import (
	"strings"
)

// Kind classifies a filter segment
type Kind byte

const (
	Literal     Kind = iota // Exact level match
	SingleLevel             // '+' wildcard
	MultiLevel              // '#' wildcard, always the last segment
)

const sharePrefix = "$share/"

// Segment is one level of a topic filter
type Segment struct {
	Kind    Kind
	Literal string // Set only for Literal segments
}

// String returns the textual form of the segment
func (s Segment) String() string {
	switch s.Kind {
	case SingleLevel:
		return "+"
	case MultiLevel:
		return "#"
	default:
		return s.Literal
	}
}

// Filter is a parsed subscription filter: an ordered sequence of segments,
// optionally scoped to a shared subscription group
type Filter struct {
	Group    string
	Segments []Segment
}

// ParseFilter validates and parses a subscription filter, including the
// $share/<group>/<filter> form
func ParseFilter(filter string) (Filter, error) {
	var f Filter

	if IsSharedSubscription(filter) {
		group, topicFilter, err := ValidateSharedSubscription(filter)
		if err != nil {
			return Filter{}, err
		}
		f.Group = group
		filter = topicFilter
	} else if err := ValidateTopicFilter(filter); err != nil {
		return Filter{}, err
	}

	levels := splitTopicLevels(filter)
	f.Segments = make([]Segment, len(levels))
	for i, level := range levels {
		switch level {
		case "+":
			f.Segments[i] = Segment{Kind: SingleLevel}
		case "#":
			f.Segments[i] = Segment{Kind: MultiLevel}
		default:
			f.Segments[i] = Segment{Kind: Literal, Literal: level}
		}
	}

	return f, nil
}

// MustParseFilter is like ParseFilter but panics on an invalid filter
func MustParseFilter(filter string) Filter {
	f, err := ParseFilter(filter)
	if err != nil {
		panic(err)
	}
	return f
}

// Levels returns the textual levels of the filter, wildcards included
func (f Filter) Levels() []string {
	levels := make([]string, len(f.Segments))
	for i, seg := range f.Segments {
		levels[i] = seg.String()
	}
	return levels
}

// String returns the filter as it was subscribed
func (f Filter) String() string {
	joined := strings.Join(f.Levels(), "/")
	if f.Group != "" {
		return sharePrefix + f.Group + "/" + joined
	}
	return joined
}

// IsShared reports whether the filter belongs to a shared subscription
func (f Filter) IsShared() bool {
	return f.Group != ""
}

// HasWildcards reports whether any segment is a wildcard
func (f Filter) HasWildcards() bool {
	for _, seg := range f.Segments {
		if seg.Kind != Literal {
			return true
		}
	}
	return false
}

// Equal reports whether two filters are identical
func (f Filter) Equal(other Filter) bool {
	if f.Group != other.Group || len(f.Segments) != len(other.Segments) {
		return false
	}
	for i := range f.Segments {
		if f.Segments[i] != other.Segments[i] {
			return false
		}
	}
	return true
}

// Match reports whether a topic name matches the filter. Topics starting
// with '$' are never matched by a leading wildcard.
func (f Filter) Match(topic string) bool {
	if len(f.Segments) == 0 {
		return false
	}
	if strings.HasPrefix(topic, "$") && f.Segments[0].Kind != Literal {
		return false
	}

	levels := splitTopicLevels(topic)
	i := 0
	for ; i < len(f.Segments) && i < len(levels); i++ {
		seg := f.Segments[i]
		switch seg.Kind {
		case MultiLevel:
			return true
		case SingleLevel:
			continue
		default:
			if seg.Literal != levels[i] {
				return false
			}
		}
	}

	if i < len(f.Segments) {
		// "a/#" also matches the parent level "a"
		return len(f.Segments)-i == 1 && f.Segments[i].Kind == MultiLevel
	}

	return i == len(levels)
}
