package monitoring

import "time"

func (m *Monitoring) _applyOption(opt SetupOption) {
	switch v := opt.(type) {
	case PollInterval:
		if v > 0 {
			m.config.pollInterval = time.Duration(v)
		}
	case MetricsListen:
		m.config.metricsListen = v
	}
}

type SetupOption interface {
	isSetupOption()
}

// PollInterval is how often the node's tables are sampled.
type PollInterval time.Duration

// MetricsListen is the host:port metrics and a health check are served
// on. Empty disables the server.
type MetricsListen string

func (a PollInterval) isSetupOption()  {}
func (a MetricsListen) isSetupOption() {}
