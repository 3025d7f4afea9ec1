package topic

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const maxTopicLength = 65535

var (
	ErrInvalidTopic  = errors.New("invalid topic name")
	ErrInvalidFilter = errors.New("invalid topic filter")
)

// ValidationError describes why a topic or filter was rejected. It matches
// ErrInvalidTopic or ErrInvalidFilter through errors.Is.
type ValidationError struct {
	kind   error
	reason string
}

func (e *ValidationError) Error() string {
	return e.kind.Error() + ": " + e.reason
}

func (e *ValidationError) Unwrap() error {
	return e.kind
}

func invalidTopic(reason string) error {
	return &ValidationError{kind: ErrInvalidTopic, reason: reason}
}

func invalidFilter(reason string) error {
	return &ValidationError{kind: ErrInvalidFilter, reason: reason}
}

// ValidateTopic validates a topic name as published by a client
func ValidateTopic(topic string) error {
	switch {
	case topic == "":
		return invalidTopic("empty")
	case len(topic) > maxTopicLength:
		return invalidTopic("exceeds maximum length of 65535 bytes")
	case !utf8.ValidString(topic):
		return invalidTopic("contains invalid UTF-8")
	case strings.ContainsAny(topic, "+#"):
		return invalidTopic("contains wildcard characters")
	case strings.IndexByte(topic, 0) >= 0:
		return invalidTopic("contains null characters")
	}
	return nil
}

// ValidateTopicFilter validates a subscription filter. Wildcards must occupy
// a whole level and '#' may only appear as the last level.
func ValidateTopicFilter(filter string) error {
	switch {
	case filter == "":
		return invalidFilter("empty")
	case len(filter) > maxTopicLength:
		return invalidFilter("exceeds maximum length of 65535 bytes")
	case !utf8.ValidString(filter):
		return invalidFilter("contains invalid UTF-8")
	case strings.IndexByte(filter, 0) >= 0:
		return invalidFilter("contains null characters")
	}

	levels := splitTopicLevels(filter)
	for i, level := range levels {
		if strings.IndexByte(level, '#') >= 0 {
			if level != "#" {
				return invalidFilter("multi-level wildcard '#' must occupy entire level")
			}
			if i != len(levels)-1 {
				return invalidFilter("multi-level wildcard '#' must be last level")
			}
		}
		if strings.IndexByte(level, '+') >= 0 && level != "+" {
			return invalidFilter("single-level wildcard '+' must occupy entire level")
		}
	}

	return nil
}

// ValidateSharedSubscription splits a $share/<group>/<filter> subscription
// into its group name and topic filter
func ValidateSharedSubscription(filter string) (groupName string, topicFilter string, err error) {
	if !IsSharedSubscription(filter) {
		return "", "", invalidFilter("shared subscription must start with $share/")
	}

	groupName, topicFilter, found := strings.Cut(filter[len(sharePrefix):], "/")
	switch {
	case !found || groupName == "":
		return "", "", invalidFilter("shared subscription missing group name")
	case strings.ContainsAny(groupName, "+#"):
		return "", "", invalidFilter("shared subscription group name cannot contain wildcards")
	case topicFilter == "":
		return "", "", invalidFilter("shared subscription missing topic filter")
	}

	if err := ValidateTopicFilter(topicFilter); err != nil {
		return "", "", err
	}
	return groupName, topicFilter, nil
}

// IsSharedSubscription reports whether filter uses the $share/ prefix
func IsSharedSubscription(filter string) bool {
	return strings.HasPrefix(filter, sharePrefix)
}

// splitTopicLevels splits a topic into levels by '/'
func splitTopicLevels(topic string) []string {
	if topic == "" {
		return []string{}
	}
	return strings.Split(topic, "/")
}
