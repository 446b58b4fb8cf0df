package snapshot

import (
	"encoding/json"
	"fmt"

	"nexus/internal/types"
)

// payloadEnvelope is the tagged wire form of a types.PanelPayload. Kind
// always round-trips; the remaining fields are populated per variant.
type payloadEnvelope struct {
	Kind      types.PanelKind `json:"kind"`
	StreamID  string          `json:"streamId,omitempty"`
	TopicIDs  []string        `json:"topicIds,omitempty"`
	ModuleIDs []string        `json:"moduleIds,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	NodeID    string          `json:"nodeId,omitempty"`
}

func encodePayload(p types.PanelPayload) (json.RawMessage, error) {
	if p == nil {
		return json.RawMessage("null"), nil
	}
	env := payloadEnvelope{Kind: p.PayloadKind()}
	switch v := p.(type) {
	case types.ChatPayload:
		env.StreamID = v.StreamID
	case types.FeedPayload:
		env.TopicIDs = v.TopicIDs
	case types.BotForgePayload:
		env.ModuleIDs = v.ModuleIDs
	case types.ProfilePayload:
		env.UserID = v.UserID
	case types.NodeScopedPayload:
		env.NodeID = v.NodeID
	case types.NoPayload:
	default:
		return nil, fmt.Errorf("unencodable panel payload %T", p)
	}
	return json.Marshal(env)
}

func decodePayload(raw json.RawMessage) (types.PanelPayload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env payloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode panel payload: %w", err)
	}
	switch env.Kind {
	case types.PanelChat:
		return types.ChatPayload{StreamID: env.StreamID}, nil
	case types.PanelFeed:
		return types.FeedPayload{TopicIDs: env.TopicIDs}, nil
	case types.PanelBotForge:
		return types.BotForgePayload{ModuleIDs: env.ModuleIDs}, nil
	case types.PanelProfile:
		return types.ProfilePayload{UserID: env.UserID}, nil
	default:
		if env.NodeID != "" {
			return types.NodeScopedPayload{Kind: env.Kind, NodeID: env.NodeID}, nil
		}
		return types.NoPayload{Kind: env.Kind}, nil
	}
}

// tabRecord and panelRecord mirror types.Tab/types.Panel with the payload
// fields replaced by their envelopes.
type tabRecord struct {
	ID    string          `json:"id"`
	Kind  types.PanelKind `json:"kind"`
	Title string          `json:"title"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type panelRecord struct {
	ID          string          `json:"id"`
	Kind        types.PanelKind `json:"kind"`
	Title       string          `json:"title"`
	X           int             `json:"x"`
	Y           int             `json:"y"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	IsMinimized bool            `json:"isMinimized,omitempty"`
	IsPinned    bool            `json:"isPinned,omitempty"`
	IsEphemeral bool            `json:"isEphemeral,omitempty"`
	ZIndex      int             `json:"zIndex"`
	Data        json.RawMessage `json:"data,omitempty"`
	Tabs        []tabRecord     `json:"tabs,omitempty"`
	ActiveTabID string          `json:"activeTabId,omitempty"`
}

func encodePanel(p types.Panel) ([]byte, error) {
	data, err := encodePayload(p.Data)
	if err != nil {
		return nil, err
	}
	rec := panelRecord{
		ID:          p.ID,
		Kind:        p.Kind,
		Title:       p.Title,
		X:           p.X,
		Y:           p.Y,
		Width:       p.Width,
		Height:      p.Height,
		IsMinimized: p.IsMinimized,
		IsPinned:    p.IsPinned,
		IsEphemeral: p.IsEphemeral,
		ZIndex:      p.ZIndex,
		Data:        data,
		ActiveTabID: p.ActiveTabID,
	}
	for _, tab := range p.Tabs {
		td, err := encodePayload(tab.Data)
		if err != nil {
			return nil, err
		}
		rec.Tabs = append(rec.Tabs, tabRecord{ID: tab.ID, Kind: tab.Kind, Title: tab.Title, Data: td})
	}
	return json.Marshal(rec)
}

func decodePanel(raw []byte) (types.Panel, error) {
	var rec panelRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return types.Panel{}, fmt.Errorf("decode panel: %w", err)
	}
	data, err := decodePayload(rec.Data)
	if err != nil {
		return types.Panel{}, err
	}
	p := types.Panel{
		ID:          rec.ID,
		Kind:        rec.Kind,
		Title:       rec.Title,
		X:           rec.X,
		Y:           rec.Y,
		Width:       rec.Width,
		Height:      rec.Height,
		IsMinimized: rec.IsMinimized,
		IsPinned:    rec.IsPinned,
		IsEphemeral: rec.IsEphemeral,
		ZIndex:      rec.ZIndex,
		Data:        data,
		ActiveTabID: rec.ActiveTabID,
	}
	for _, tr := range rec.Tabs {
		td, err := decodePayload(tr.Data)
		if err != nil {
			return types.Panel{}, err
		}
		p.Tabs = append(p.Tabs, types.Tab{ID: tr.ID, Kind: tr.Kind, Title: tr.Title, Data: td})
	}
	return p, nil
}
