package entity

import (
	"nexus/internal/types"
)

// The store hands out copies so callers can never mutate canonical state
// behind the facade's back. Clones copy every slice and map the engine
// itself mutates; leaf payloads (waveforms, embeds) are copied wholesale.

func cloneUser(u *types.User) *types.User {
	cp := *u
	cp.Memberships = append([]string(nil), u.Memberships...)
	if u.CityRoles != nil {
		cp.CityRoles = make(map[string]types.CityRole, len(u.CityRoles))
		for k, v := range u.CityRoles {
			cp.CityRoles[k] = v
		}
	}
	return &cp
}

func cloneNode(n *types.Node) *types.Node {
	cp := *n
	cp.Streams = make([]types.Stream, len(n.Streams))
	for i := range n.Streams {
		cp.Streams[i] = n.Streams[i]
		cp.Streams[i].Modules = append([]string(nil), n.Streams[i].Modules...)
	}
	cp.Districts = make([]types.District, len(n.Districts))
	for i := range n.Districts {
		cp.Districts[i] = n.Districts[i]
		cp.Districts[i].Streams = append([]string(nil), n.Districts[i].Streams...)
	}
	cp.ActiveModules = append([]string(nil), n.ActiveModules...)
	cp.OrbitingStreams = append([]string(nil), n.OrbitingStreams...)
	if n.Logic != nil {
		lg := *n.Logic
		lg.Nodes = append([]types.DevGridNode(nil), n.Logic.Nodes...)
		lg.Connections = append([]types.DevGridConnection(nil), n.Logic.Connections...)
		lg.Roles = append([]types.CityRoleConfig(nil), n.Logic.Roles...)
		lg.Policies = append([]types.CityPolicy(nil), n.Logic.Policies...)
		cp.Logic = &lg
	}
	if n.Permissions != nil {
		cp.Permissions = make(map[string]types.CityRole, len(n.Permissions))
		for k, v := range n.Permissions {
			cp.Permissions[k] = v
		}
	}
	return &cp
}

func cloneMessage(m *types.Message) *types.Message {
	cp := *m
	cp.Reactions = make([]types.Reaction, len(m.Reactions))
	for i := range m.Reactions {
		cp.Reactions[i] = m.Reactions[i]
		cp.Reactions[i].Users = append([]string(nil), m.Reactions[i].Users...)
	}
	cp.Attachments = append([]types.Attachment(nil), m.Attachments...)
	cp.Embeds = append([]types.Embed(nil), m.Embeds...)
	if m.Task != nil {
		task := *m.Task
		cp.Task = &task
	}
	if m.Voice != nil {
		voice := *m.Voice
		voice.Waveform = append([]float64(nil), m.Voice.Waveform...)
		cp.Voice = &voice
	}
	if m.Module != nil {
		mod := *m.Module
		if m.Module.Props != nil {
			mod.Props = make(map[string]any, len(m.Module.Props))
			for k, v := range m.Module.Props {
				mod.Props[k] = v
			}
		}
		cp.Module = &mod
	}
	return &cp
}
