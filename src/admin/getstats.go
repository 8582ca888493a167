package admin

type GetStatsRequest struct{}

type GetStatsResponse struct {
	DatagramsReceived uint64 `json:"datagrams_received"`
	DatagramsSent     uint64 `json:"datagrams_sent"`
	SendErrors        uint64 `json:"send_errors"`
	MalformedPackets  uint64 `json:"malformed_packets"`
	Deliveries        uint64 `json:"deliveries"`
	Keepalives        uint64 `json:"keepalives"`
	Discoveries       uint64 `json:"discoveries"`
}

func (a *AdminSocket) getStatsHandler(_ *GetStatsRequest, res *GetStatsResponse) error {
	stats := a.node.Stats()
	*res = GetStatsResponse(stats)
	return nil
}
