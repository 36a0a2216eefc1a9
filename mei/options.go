package mei

import (
	"log/slog"

	"github.com/jsphweid/meigen/constants"
)

type application struct {
	name    string
	version string
	label   string
}

type Option func(*Builder)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithApplication sets the <application> entry of the header's appInfo.
func WithApplication(name, version string) Option {
	return func(b *Builder) {
		b.app.name = name
		b.app.version = version
	}
}

func defaultApplication() application {
	return application{
		name:    constants.ApplicationName,
		version: constants.ApplicationVersion,
		label:   constants.ApplicationLabel,
	}
}
