package encoding

import (
	"strings"
)

// ValidateTopicName validates an MQTT topic name (used in PUBLISH).
// Topic names must not contain wildcards. An empty name is permitted only
// when a topic alias carries the actual topic, so emptiness is checked at
// the call sites that know whether an alias is in play.
func ValidateTopicName(topic string) error {
	if strings.ContainsAny(topic, "+#") {
		return ErrInvalidPublishTopicName
	}

	if !isValidMQTTString(topic) {
		return ErrInvalidTopicName
	}

	return nil
}

// ValidateTopicFilter validates an MQTT topic filter (used in SUBSCRIBE/UNSUBSCRIBE)
func ValidateTopicFilter(filter string) error {
	if filter == "" {
		return ErrEmptyTopicFilter
	}

	levels := strings.Split(filter, "/")

	for i, level := range levels {
		// Multi-level wildcard '#' must be last and alone in its level
		if strings.Contains(level, "#") {
			if level != "#" || i != len(levels)-1 {
				return ErrInvalidTopicFilter
			}
		}

		// Single-level wildcard '+' must be alone in its level
		if strings.Contains(level, "+") {
			if level != "+" {
				return ErrInvalidTopicFilter
			}
		}

		if !isValidMQTTString(level) {
			return ErrInvalidTopicFilter
		}
	}

	return nil
}

// isValidMQTTString checks if a string is valid for MQTT
func isValidMQTTString(s string) bool {
	for _, r := range s {
		if r == 0x0000 {
			return false
		}
		if r >= 0xD800 && r <= 0xDFFF {
			return false
		}
	}
	return true
}

// ValidatePacketID checks a packet identifier for packets requiring a
// non-zero one
func ValidatePacketID(packetID uint16) error {
	if packetID == 0 {
		return ErrInvalidPacketIDZero
	}
	return nil
}
