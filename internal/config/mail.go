package config

type Mail struct {
	// An empty host selects the logging sender.
	Host     string `env:"MAIL_SMTP_HOST"`
	Port     int    `env:"MAIL_SMTP_PORT" envDefault:"587"`
	Username string `env:"MAIL_SMTP_USERNAME"`
	Password string `env:"MAIL_SMTP_PASSWORD"`
	From     string `env:"MAIL_FROM" envDefault:"inventory@localhost"`
}
