package config

type SecurityConfig interface {
	GetCSRFEnabled() bool
	GetCSRFKey() []byte
	GetTrustedOrigins() []string
}

type Security struct {
	CSRFDisabled   bool     `yaml:"csrf_disabled" env:"CSRF_DISABLED"`
	CSRFKey        string   `yaml:"csrf_key" env:"CSRF_KEY"`
	TrustedOrigins []string `yaml:"trusted_origins" env:"TRUSTED_ORIGINS" env-separator:"," env-default:"localhost:8080,127.0.0.1:8080"`
}

var _ SecurityConfig = Security{}

// GetCSRFEnabled reports whether form posts are CSRF protected. The flag is
// stored inverted because cleanenv re-applies defaults over false values.
func (s Security) GetCSRFEnabled() bool {
	return !s.CSRFDisabled
}

// GetCSRFKey returns the 32 byte authentication key for gorilla/csrf, or nil
// when none is configured. A nil key makes the server generate one per process.
func (s Security) GetCSRFKey() []byte {
	if len(s.CSRFKey) != 32 {
		return nil
	}
	return []byte(s.CSRFKey)
}

func (s Security) GetTrustedOrigins() []string {
	return s.TrustedOrigins
}
