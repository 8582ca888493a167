package admin

import (
	"fmt"

	"github.com/uccn-net/uccn-go/src/core"
)

type EndpointEntry struct {
	Path   string   `json:"path"`
	Hash   string   `json:"hash"`
	Record bool     `json:"record"`
	Peers  []string `json:"peers"`
}

func endpointEntries(infos []core.EndpointInfo) []EndpointEntry {
	entries := make([]EndpointEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, EndpointEntry{
			Path:   info.Path,
			Hash:   fmt.Sprintf("%08x", info.Hash),
			Record: info.Record,
			Peers:  info.Peers,
		})
	}
	return entries
}

type GetTrackersRequest struct{}

type GetTrackersResponse struct {
	Trackers []EndpointEntry `json:"trackers"`
}

func (a *AdminSocket) getTrackersHandler(_ *GetTrackersRequest, res *GetTrackersResponse) error {
	res.Trackers = endpointEntries(a.node.GetTrackers())
	return nil
}

type GetProvidersRequest struct{}

type GetProvidersResponse struct {
	Providers []EndpointEntry `json:"providers"`
}

func (a *AdminSocket) getProvidersHandler(_ *GetProvidersRequest, res *GetProvidersResponse) error {
	res.Providers = endpointEntries(a.node.GetProviders())
	return nil
}
