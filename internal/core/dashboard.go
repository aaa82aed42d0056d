package core

import (
	"html/template"
	"net/http"
	"time"
)

// The dashboard keeps the original terminal-green fleet view: one card
// per node, refreshed every 5 seconds.
const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
    <title>QLX-CORE | GLOBAL NETWORK</title>
    <meta http-equiv="refresh" content="5">
    <style>
        body { background-color: #000; color: #00FF00; font-family: 'Courier New', monospace; padding: 30px; }
        h1 { font-size: 20px; border-bottom: 2px solid #00FF00; display: inline-block; padding-bottom: 5px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(300px, 1fr)); gap: 15px; margin-top: 20px; }
        .node-card { border: 1px solid #004400; padding: 15px; background: #050505; }
        .node-card.active { border-color: #00FF00; box-shadow: 0 0 10px #004400; }
        .uuid { font-size: 10px; color: #888; margin-bottom: 10px; }
        .metric { font-size: 18px; color: #FFF; }
        .label { font-size: 9px; color: #00FF00; text-transform: uppercase; }
        .footer { margin-top: 40px; font-size: 10px; color: #444; }
    </style>
</head>
<body>
    <h1>QLX-CORE :: ACTIVE_NETWORK_FLEET</h1>
    <div class="grid">
        {{range .Nodes}}
        <div class="node-card{{if .Online}} active{{end}}">
            <div class="uuid">NODE_ID: {{.UUID}}</div>
            <div>
                <span class="label">Power:</span> <span class="metric">{{printf "%.0f" .AvgMW}} mW</span>
            </div>
            <div>
                <span class="label">Accumulated:</span> <span class="metric" style="color:#FFAA00;">{{printf "%.6f" .Valor}} QLX</span>
            </div>
            <div style="font-size:9px; margin-top:10px;">
                STATUS: {{if .Online}}ONLINE{{else}}TIMED_OUT{{end}}
            </div>
        </div>
        {{end}}
    </div>
    <div class="footer">&gt; REGISTRY: YAML | NODES_TOTAL: {{len .Nodes}} | SYSTEM_CLOCK: {{.Now}}</div>
</body>
</html>
`

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardHTML))

type dashboardNode struct {
	UUID   string
	AvgMW  float64
	Valor  float64
	Online bool
}

type dashboardData struct {
	Nodes []dashboardNode
	Now   string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	s.mu.Lock()
	nodes := make([]dashboardNode, 0, len(s.reg.Nodes))
	for _, n := range s.reg.Nodes {
		nodes = append(nodes, dashboardNode{
			UUID:   n.UUID,
			AvgMW:  n.AvgPowerMW,
			Valor:  n.Valor,
			Online: now.Sub(n.LastSeenAt) < onlineWindow,
		})
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = dashboardTmpl.Execute(w, dashboardData{
		Nodes: nodes,
		Now:   now.Format(time.RFC3339),
	})
}
