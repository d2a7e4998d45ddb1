// Package render turns saved apps into standalone installable web pages.
package render

import (
	"fmt"
	"html/template"
	"io"

	"github.com/jonathan/lightapp/internal/types"
)

// phaserCDN is the framework build injected into game pages. Generated game
// code references the global Phaser object and does not load it itself.
const phaserCDN = "https://cdn.jsdelivr.net/npm/phaser@3.80.1/dist/phaser.min.js"

// appIcon is the inline SVG used as PWA icon for every generated app.
const appIcon = `data:image/svg+xml,<svg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 100 100'><rect fill='%236366f1' width='100' height='100' rx='20'/><text x='50' y='68' text-anchor='middle' font-size='50' fill='white'>⚡</text></svg>`

// PageData carries everything the standalone app page needs. Markup, Style,
// and Behavior are generated code and are injected verbatim.
type PageData struct {
	ID            string
	Name          string
	Description   string
	Markup        template.HTML
	Style         template.CSS
	Behavior      template.JS
	IncludePhaser bool

	Icon      template.URL
	PhaserCDN string
}

var pageTemplate = template.Must(template.New("app").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0, maximum-scale=1.0, user-scalable=no">
    <title>{{.Name}}</title>

    <meta name="application-name" content="{{.Name}}">
    <meta name="apple-mobile-web-app-capable" content="yes">
    <meta name="apple-mobile-web-app-status-bar-style" content="black-translucent">
    <meta name="apple-mobile-web-app-title" content="{{.Name}}">
    <meta name="mobile-web-app-capable" content="yes">
    <meta name="theme-color" content="#6366f1">
    <meta name="description" content="{{.Description}}">

    <link rel="manifest" href="/app/{{.ID}}/manifest.json">
    <link rel="apple-touch-icon" href="{{.Icon}}">
{{if .IncludePhaser}}
    <script src="{{.PhaserCDN}}"></script>
{{end}}
    <style>
        *, *::before, *::after { margin: 0; padding: 0; box-sizing: border-box; }
        html, body {
            width: 100%;
            height: 100%;
            overflow: auto;
            -webkit-overflow-scrolling: touch;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            padding: env(safe-area-inset-top) env(safe-area-inset-right) env(safe-area-inset-bottom) env(safe-area-inset-left);
        }
        #pwa-install-btn {
            position: fixed;
            bottom: 20px;
            right: 20px;
            padding: 12px 20px;
            background: linear-gradient(135deg, #6366f1, #8b5cf6);
            color: white;
            border: none;
            border-radius: 25px;
            font-size: 14px;
            font-weight: 500;
            cursor: pointer;
            display: none;
            align-items: center;
            gap: 8px;
            box-shadow: 0 4px 15px rgba(99, 102, 241, 0.4);
            z-index: 9999;
            transition: all 0.3s ease;
        }
        #pwa-install-btn:hover {
            transform: translateY(-2px);
            box-shadow: 0 6px 20px rgba(99, 102, 241, 0.5);
        }
        #pwa-install-btn.show { display: flex; }
        #pwa-install-btn svg { width: 18px; height: 18px; }
        {{.Style}}
    </style>
</head>
<body>
    {{.Markup}}

    <button id="pwa-install-btn">
        <svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2">
            <path d="M21 15v4a2 2 0 01-2 2H5a2 2 0 01-2-2v-4M7 10l5 5 5-5M12 15V3"/>
        </svg>
        Install app
    </button>

    <script>{{.Behavior}}</script>

    <script>
    (function() {
        let deferredPrompt = null;
        const installBtn = document.getElementById('pwa-install-btn');

        window.addEventListener('beforeinstallprompt', (e) => {
            e.preventDefault();
            deferredPrompt = e;
            installBtn.classList.add('show');
        });

        installBtn.addEventListener('click', async () => {
            if (!deferredPrompt) {
                alert('Use your browser menu and pick "Add to Home Screen" or "Install app"');
                return;
            }
            deferredPrompt.prompt();
            const { outcome } = await deferredPrompt.userChoice;
            if (outcome === 'accepted') {
                installBtn.classList.remove('show');
            }
            deferredPrompt = null;
        });

        window.addEventListener('appinstalled', () => {
            installBtn.classList.remove('show');
        });
    })();
    </script>
</body>
</html>`))

// NewPageData builds the page data for a saved app's code artifact.
func NewPageData(id, name, description string, code *types.CodeArtifact) PageData {
	data := PageData{ID: id, Name: name, Description: description}
	if code != nil {
		data.Markup = template.HTML(code.Markup)
		data.Style = template.CSS(code.Style)
		data.Behavior = template.JS(code.Behavior)
	}
	return data
}

// WritePage renders the standalone app page.
func WritePage(w io.Writer, data PageData) error {
	if data.Name == "" {
		data.Name = "LightApp"
	}
	if data.Description == "" {
		data.Description = "Built with LightApp"
	}
	data.Icon = template.URL(appIcon)
	data.PhaserCDN = phaserCDN

	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render app page: %w", err)
	}
	return nil
}
