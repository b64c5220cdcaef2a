package cli

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mailist/mailist/internal/client"
)

// ExportFile is the document written by export and read by import
type ExportFile struct {
	Lists []ExportedList `yaml:"lists" json:"lists"`
}

// ExportedList is one list with its queries as plain trees
type ExportedList struct {
	Alias           string `yaml:"alias" json:"alias"`
	Flags           uint32 `yaml:"flags" json:"flags"`
	SendersQuery    any    `yaml:"senders_query,omitempty" json:"sendersQuery,omitempty"`
	RecipientsQuery any    `yaml:"recipients_query,omitempty" json:"recipientsQuery,omitempty"`
}

// NewExportFile converts API lists into an export document
func NewExportFile(lists []client.List) (*ExportFile, error) {
	out := &ExportFile{Lists: make([]ExportedList, 0, len(lists))}
	for _, l := range lists {
		e := ExportedList{Alias: l.Alias, Flags: l.Flags}
		if err := decodeTree(l.SendersQuery, &e.SendersQuery); err != nil {
			return nil, fmt.Errorf("list %s senders: %w", l.Alias, err)
		}
		if err := decodeTree(l.RecipientsQuery, &e.RecipientsQuery); err != nil {
			return nil, fmt.Errorf("list %s recipients: %w", l.Alias, err)
		}
		out.Lists = append(out.Lists, e)
	}
	return out, nil
}

// ReadExportFile parses an export document. JSON input is accepted as YAML.
func ReadExportFile(data []byte) (*ExportFile, error) {
	var f ExportFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	return &f, nil
}

// Queries returns both queries as JSON, nil where absent
func (e ExportedList) Queries() (senders, recipients json.RawMessage, err error) {
	if senders, err = encodeTree(e.SendersQuery); err != nil {
		return nil, nil, fmt.Errorf("senders_query: %w", err)
	}
	if recipients, err = encodeTree(e.RecipientsQuery); err != nil {
		return nil, nil, fmt.Errorf("recipients_query: %w", err)
	}
	return senders, recipients, nil
}

func decodeTree(raw json.RawMessage, out *any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func encodeTree(tree any) (json.RawMessage, error) {
	if tree == nil {
		return nil, nil
	}
	return json.Marshal(tree)
}
