package admin

import (
	"sort"
	"strings"
)

type GetPeersRequest struct {
}

type GetPeersResponse struct {
	Peers []PeerEntry `json:"peers"`
}

type PeerEntry struct {
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	Alive       bool    `json:"alive"`
	Links       int     `json:"links"`
	KeepaliveIn float64 `json:"keepalive_in"`
	ExpiresIn   float64 `json:"expires_in"`
}

func (a *AdminSocket) getPeersHandler(_ *GetPeersRequest, res *GetPeersResponse) error {
	peers := a.node.GetPeers()
	res.Peers = make([]PeerEntry, 0, len(peers))
	for _, p := range peers {
		res.Peers = append(res.Peers, PeerEntry{
			Name:        p.Name,
			Location:    p.Location,
			Alive:       p.Alive,
			Links:       p.Links,
			KeepaliveIn: p.KeepaliveIn.Seconds(),
			ExpiresIn:   p.ExpiresIn.Seconds(),
		})
	}
	sort.SliceStable(res.Peers, func(i, j int) bool {
		return strings.Compare(res.Peers[i].Location, res.Peers[j].Location) < 0
	})
	return nil
}
