//go:build linux
// +build linux

package config

// Sane defaults for the Linux platform. The "default" options may be
// may be replaced by the running configuration.
func getDefaults() platformDefaultParameters {
	return platformDefaultParameters{
		// Admin
		DefaultAdminListen: "unix:///var/run/uccn.sock",

		// Configuration (used for uccnctl)
		DefaultConfigFile: "/etc/uccn.conf",
	}
}
