package models

// MunicipalitySeed is an immutable input row describing one municipality.
// Seeds are loaded once at startup and never modified by the pipeline.
type MunicipalitySeed struct {
	Key                string `json:"key" toml:"key"`
	Name               string `json:"name" toml:"name"`
	County             string `json:"county" toml:"county"`
	State              string `json:"state" toml:"state"`
	OfficialWebsiteURL string `json:"official_website_url,omitempty" toml:"official_website_url"`
	// PortalURL is the DiPlanung participation-portal entry point, when the
	// municipality publishes procedures there.
	PortalURL string `json:"portal_url,omitempty" toml:"portal_url"`
}
