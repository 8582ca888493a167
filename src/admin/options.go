package admin

func (a *AdminSocket) _applyOption(opt SetupOption) {
	switch v := opt.(type) {
	case ListenAddress:
		a.config.listenaddr = v
	}
}

type SetupOption interface {
	isSetupOption()
}

// ListenAddress is a tcp://host:port or unix:///path address, or "none".
type ListenAddress string

func (a ListenAddress) isSetupOption() {}
