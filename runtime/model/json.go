// JSON helpers for marshaling message parts. Parts are emitted as
// discriminated unions with a Kind field so decode logic can recover the
// concrete types when messages are stored or shipped across processes.
package model

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes TextPart with a Kind discriminator.
func (p TextPart) MarshalJSON() ([]byte, error) {
	type alias TextPart
	return json.Marshal(struct {
		Kind string `json:"kind"`
		alias
	}{Kind: "text", alias: alias(p)})
}

// MarshalJSON encodes DocumentPart with a Kind discriminator.
func (p DocumentPart) MarshalJSON() ([]byte, error) {
	type alias DocumentPart
	return json.Marshal(struct {
		Kind string `json:"kind"`
		alias
	}{Kind: "document", alias: alias(p)})
}

// MarshalJSON encodes ImagePart with a Kind discriminator.
func (p ImagePart) MarshalJSON() ([]byte, error) {
	type alias ImagePart
	return json.Marshal(struct {
		Kind string `json:"kind"`
		alias
	}{Kind: "image", alias: alias(p)})
}

// MarshalJSON encodes the message with its parts as discriminated unions.
func (m Message) MarshalJSON() ([]byte, error) {
	parts := make([]json.RawMessage, 0, len(m.Parts))
	for _, p := range m.Parts {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, data)
	}
	return json.Marshal(struct {
		Role  ConversationRole  `json:"role"`
		Parts []json.RawMessage `json:"parts"`
	}{Role: m.Role, Parts: parts})
}

// UnmarshalJSON decodes the message, recovering concrete part types from
// their Kind discriminators.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role  ConversationRole  `json:"role"`
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Parts = m.Parts[:0]
	for _, pr := range raw.Parts {
		part, err := decodePart(pr)
		if err != nil {
			return err
		}
		m.Parts = append(m.Parts, part)
	}
	return nil
}

func decodePart(data []byte) (Part, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.Kind {
	case "text":
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode TextPart: %w", err)
		}
		return p, nil
	case "document":
		var p DocumentPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode DocumentPart: %w", err)
		}
		return p, nil
	case "image":
		var p ImagePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode ImagePart: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown part kind %q", head.Kind)
	}
}
