//go:build freebsd
// +build freebsd

package config

// Sane defaults for the BSD platforms. The "default" options may be
// may be replaced by the running configuration.
func getDefaults() platformDefaultParameters {
	return platformDefaultParameters{
		// Admin
		DefaultAdminListen: "unix:///var/run/uccn.sock",

		// Configuration (used for uccnctl)
		DefaultConfigFile: "/usr/local/etc/uccn.conf",
	}
}
