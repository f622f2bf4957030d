package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/heart-button/internal/display"
	"github.com/sweeney/heart-button/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Heart Button</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.scanning { color: green; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.grid { border-collapse: separate; width: auto; }
.grid td { width: 14px; height: 14px; padding: 0; border: 1px solid #ccc; }
.grid td.lit { background: #c00; }
</style>
</head>
<body>
<h1>Heart Button</h1>

<h2>Display</h2>
<table>
<tr><th>State</th><td class="{{if eq .State "SCANNING"}}scanning{{else}}idle{{end}}">{{.State}}</td></tr>
<tr><th>Button held</th><td>{{if .Engaged}}yes{{else}}no{{end}}</td></tr>
<tr><th>Scan</th><td>{{.Config.Scan}}</td></tr>
</table>
<table class="grid">
{{range .Bitmap}}<tr>{{range .}}<td{{if eq . 1}} class="lit"{{end}}></td>{{end}}</tr>
{{end}}</table>

<h2>Counters</h2>
<table>
<tr><th>Interrupts</th><td>{{.Counts.Interrupts}}</td></tr>
<tr><th>Edges consumed</th><td>{{.Counts.Edges}}</td></tr>
<tr><th>Render passes</th><td>{{.Counts.Passes}}</td></tr>
<tr><th>Pulses</th><td>{{.Counts.Pulses}}</td></tr>
<tr><th>Idle waits</th><td>{{.Counts.Idles}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.Backend}} {{.Config.Chip}}</td></tr>
<tr><th>Serial</th><td>{{if .Config.Serial}}{{.Config.Serial}}{{else}}none{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has methods but the template needs plain fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		State  string
		Bitmap display.Bitmap
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		State:    snap.StateString(),
		Bitmap:   display.Heart,
	}
	indexTmpl.Execute(w, data)
}
