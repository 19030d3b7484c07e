package rexec

import "context"

// New builds a Supervisor from a base Config plus a list of OptionFuncs,
// applying defaults and validating the result. Grounded on the
// convenience constructor the teacher split across its now-removed
// shelob.go/sshh.go duplicate files; unified here under one name.
func New(base Config, opts ...OptionFunc) (*Supervisor, error) {
	cfg := base
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	return NewSupervisor(cfg, nil)
}

// ListenAndServe builds a Supervisor from opts and runs it until ctx is
// cancelled.
func ListenAndServe(ctx context.Context, opts ...OptionFunc) error {
	sv, err := New(Config{}, opts...)
	if err != nil {
		return err
	}
	return sv.Run(ctx)
}
