//go:build windows
// +build windows

package config

// Sane defaults for the Windows platform. The "default" options may be
// may be replaced by the running configuration.
func getDefaults() platformDefaultParameters {
	return platformDefaultParameters{
		// Admin
		DefaultAdminListen: "tcp://localhost:9003",

		// Configuration (used for uccnctl)
		DefaultConfigFile: "C:\\Program Files\\uccn\\uccn.conf",
	}
}
