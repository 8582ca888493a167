package admin

import (
	"github.com/uccn-net/uccn-go/src/version"
)

type GetSelfRequest struct{}

type GetSelfResponse struct {
	BuildName    string `json:"build_name"`
	BuildVersion string `json:"build_version"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	Network      string `json:"network"`
	Broadcast    string `json:"broadcast"`
	Peers        int    `json:"peers"`
	Trackers     int    `json:"trackers"`
	Providers    int    `json:"providers"`
}

func (a *AdminSocket) getSelfHandler(req *GetSelfRequest, res *GetSelfResponse) error {
	self := a.node.GetSelf()
	res.BuildName = version.BuildName()
	res.BuildVersion = version.BuildVersion()
	res.Name = self.Name
	res.Location = self.Location
	res.Network = self.Network
	res.Broadcast = self.Broadcast
	res.Peers = self.Peers
	res.Trackers = self.Trackers
	res.Providers = self.Providers
	return nil
}
