package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/green-switch/internal/logic"
	"github.com/sweeney/green-switch/internal/status"
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
	"stateClass": func(s logic.State) string {
		switch s {
		case logic.StateOn:
			return "on"
		case logic.StateOff:
			return "off"
		}
		return "unknown"
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Green Switch{{if .Config.Device}} - {{.Config.Device}}{{end}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
button { font-family: monospace; font-size: 1.1em; padding: 0.4em 1.2em; }
</style>
</head>
<body>
<h1>Green Switch{{if .Config.Device}} ({{.Config.Device}}){{end}}</h1>

<h2>State</h2>
<table>
<tr><th>Device</th><td id="state" class="{{stateClass .State}}">{{stateOrUnknown (printf "%s" .State)}}</td></tr>
<tr><th>Held by</th><td>{{.PrimaryName}}</td></tr>
<tr><th>Switch ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
{{with .LastChange}}<tr><th>Last change</th><td>{{.From}} &rarr; {{.To}} at {{.Timestamp.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Reason</th><td>{{.Reason}} ({{.Rule}})</td></tr>{{end}}
</table>
<form method="post" action="/api/web" id="toggle"><button type="submit">Toggle</button></form>

<h2>Signals</h2>
<table>
<tr><th>Signal</th><td>State</td><td>Used</td><td>Primary</td></tr>
{{range .Signals}}<tr><th>{{.Name}}</th><td class="{{if .State}}on{{else}}off{{end}}">{{if .State}}ON{{else}}OFF{{end}}</td><td>{{if .Used}}yes{{end}}</td><td>{{if .Primary}}yes{{end}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Decisions</h2>
<table>
<tr><th>Turned ON</th><td>{{.Counts.On}}</td></tr>
<tr><th>Turned OFF</th><td>{{.Counts.Off}}</td></tr>
<tr><th>Steps</th><td>{{.Counts.Steps}}</td></tr>
<tr><th>Settles</th><td>{{.Counts.Settles}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO</th><td>{{if .Config.GPIO}}poll {{.Config.PollMs}}ms, debounce {{.Config.DebounceMs}}ms{{else}}disabled{{end}}</td></tr>
<tr><th>History</th><td>{{if .Config.History}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
document.getElementById("toggle").addEventListener("submit", function(ev) {
  ev.preventDefault();
  fetch("/api/web", { method: "POST" }).then(function() {
    setTimeout(function() { location.reload(); }, 300);
  });
});
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
