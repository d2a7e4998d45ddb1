package render

// Manifest is the PWA web app manifest served per app.
type Manifest struct {
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name"`
	Description     string         `json:"description"`
	StartURL        string         `json:"start_url"`
	Display         string         `json:"display"`
	BackgroundColor string         `json:"background_color"`
	ThemeColor      string         `json:"theme_color"`
	Orientation     string         `json:"orientation"`
	Icons           []ManifestIcon `json:"icons"`
}

// ManifestIcon is one icon entry of a web app manifest.
type ManifestIcon struct {
	Src     string `json:"src"`
	Sizes   string `json:"sizes"`
	Type    string `json:"type"`
	Purpose string `json:"purpose"`
}

// NewManifest builds the manifest for a saved app.
func NewManifest(id, name, description string) *Manifest {
	if name == "" {
		name = "LightApp"
	}
	if description == "" {
		description = "Built with LightApp"
	}
	short := name
	if len([]rune(short)) > 12 {
		short = string([]rune(short)[:12])
	}
	return &Manifest{
		Name:            name,
		ShortName:       short,
		Description:     description,
		StartURL:        "/app/" + id,
		Display:         "standalone",
		BackgroundColor: "#0f0f17",
		ThemeColor:      "#6366f1",
		Orientation:     "any",
		Icons: []ManifestIcon{{
			Src:     appIcon,
			Sizes:   "192x192",
			Type:    "image/svg+xml",
			Purpose: "any maskable",
		}},
	}
}
