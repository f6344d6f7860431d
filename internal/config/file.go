package config

// File is the structure of the .decoyscan configuration file.
// Zero values leave the corresponding Config field untouched.
type File struct {
	// Endpoints replaces the IP echo service list.
	Endpoints []string `yaml:"endpoints,omitempty"`

	// STUNServers replaces the STUN server list.
	STUNServers []string `yaml:"stun_servers,omitempty"`

	Geo          GeoFile          `yaml:"geo,omitempty"`
	Storage      StorageFile      `yaml:"storage,omitempty"`
	Capabilities CapabilitiesFile `yaml:"capabilities,omitempty"`
	Egress       EgressFile       `yaml:"egress,omitempty"`

	// UserAgent overrides the reported agent string.
	UserAgent string `yaml:"user_agent,omitempty"`
}

// GeoFile selects the geo provider.
type GeoFile struct {
	URLTemplate string `yaml:"url_template,omitempty"`
	CityDB      string `yaml:"city_db,omitempty"`
	ASNDB       string `yaml:"asn_db,omitempty"`
}

// StorageFile holds store credentials. Environment variables take
// precedence over these values.
type StorageFile struct {
	URL string `yaml:"url,omitempty"`
	Key string `yaml:"key,omitempty"`

	// Journal toggles the local history database.
	Journal *bool `yaml:"journal,omitempty"`

	// DBDir overrides the journal directory.
	DBDir string `yaml:"db_dir,omitempty"`
}

// CapabilitiesFile toggles sub-collections. Unset entries keep their
// defaults.
type CapabilitiesFile struct {
	LeakProbe   *bool `yaml:"leak_probe,omitempty"`
	Fingerprint *bool `yaml:"fingerprint,omitempty"`
	Classify    *bool `yaml:"classify,omitempty"`
	Canvas      *bool `yaml:"canvas,omitempty"`
}

// EgressFile selects the lookup route.
type EgressFile struct {
	Mode  string `yaml:"mode,omitempty"`
	Proxy string `yaml:"proxy,omitempty"`
}

// Apply merges the file into cfg.
func (f *File) Apply(cfg *Config) {
	if f == nil {
		return
	}

	if len(f.Endpoints) > 0 {
		cfg.Endpoints = f.Endpoints
	}
	if len(f.STUNServers) > 0 {
		cfg.STUNServers = f.STUNServers
	}

	setString(&cfg.GeoURLTemplate, f.Geo.URLTemplate)
	setString(&cfg.GeoCityDB, f.Geo.CityDB)
	setString(&cfg.GeoASNDB, f.Geo.ASNDB)

	setString(&cfg.Storage.URL, f.Storage.URL)
	setString(&cfg.Storage.Key, f.Storage.Key)
	setString(&cfg.DBDir, f.Storage.DBDir)
	setBool(&cfg.Journal, f.Storage.Journal)

	setBool(&cfg.Capabilities.LeakProbe, f.Capabilities.LeakProbe)
	setBool(&cfg.Capabilities.Fingerprint, f.Capabilities.Fingerprint)
	setBool(&cfg.Capabilities.Classify, f.Capabilities.Classify)
	setBool(&cfg.Capabilities.Canvas, f.Capabilities.Canvas)

	setString(&cfg.Egress, f.Egress.Mode)
	setString(&cfg.ProxyAddress, f.Egress.Proxy)

	setString(&cfg.UserAgent, f.UserAgent)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
