package dashboard

import "net/http"

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Statusboard</title>
<style>
  :root {
    --bg: #0d1117;
    --surface: #161b22;
    --border: #30363d;
    --text: #e6edf3;
    --text-dim: #8b949e;
    --accent: #58a6ff;
    --green: #3fb950;
    --red: #f85149;
  }
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Helvetica, Arial, sans-serif;
    background: var(--bg);
    color: var(--text);
    font-size: 14px;
    line-height: 1.5;
    padding: 16px;
  }
  header {
    display: flex;
    align-items: center;
    justify-content: space-between;
    margin-bottom: 16px;
    padding-bottom: 12px;
    border-bottom: 1px solid var(--border);
  }
  header h1 { font-size: 20px; font-weight: 600; }
  header h1 span { color: var(--accent); }
  .meta { font-size: 12px; color: var(--text-dim); }
  .meta .live { color: var(--green); }
  .grid {
    display: grid;
    grid-template-columns: 1fr 1fr;
    gap: 16px;
  }
  @media (max-width: 900px) { .grid { grid-template-columns: 1fr; } }
  .card {
    background: var(--surface);
    border: 1px solid var(--border);
    border-radius: 8px;
    overflow: hidden;
  }
  .card-header {
    padding: 10px 14px;
    border-bottom: 1px solid var(--border);
    font-weight: 600;
    font-size: 13px;
    text-transform: uppercase;
    letter-spacing: 0.5px;
    color: var(--text-dim);
    display: flex;
    gap: 6px;
  }
  .card-header .age { margin-left: auto; font-weight: 400; text-transform: none; }
  .full-width { grid-column: 1 / -1; }
  pre {
    padding: 12px 14px;
    font-family: ui-monospace, SFMono-Regular, Menlo, monospace;
    font-size: 12px;
    white-space: pre-wrap;
    word-break: break-word;
    min-height: 2em;
  }
</style>
</head>
<body>
<header>
  <h1><span>&#9638;</span> Statusboard</h1>
  <div class="meta">Last updated: <pre id="last-updated" style="display:inline;padding:0" class="live"></pre></div>
</header>

<div class="grid">
  <div class="card">
    <div class="card-header">Stats <span class="age" id="stats-age"></span></div>
    <pre id="stats"></pre>
  </div>
  <div class="card">
    <div class="card-header">Analyzer <span class="age" id="analyzer-age"></span></div>
    <pre id="analyzer"></pre>
  </div>
  <div class="card full-width">
    <div class="card-header">Random event <span class="age" id="random-event-age"></span></div>
    <pre id="random-event"></pre>
  </div>
</div>

<script>
let lastRevision = -1;

async function fetchState() {
  try {
    const resp = await fetch('/api/state');
    if (!resp.ok) return;
    const data = await resp.json();
    for (const p of data.panels) {
      const age = document.getElementById(p.element + '-age');
      if (age) age.textContent = p.age;
    }
    if (data.revision === lastRevision) return;
    lastRevision = data.revision;
    for (const p of data.panels) {
      const el = document.getElementById(p.element);
      if (el) el.textContent = p.text;
    }
  } catch (e) {
    // keep the last rendered text
  }
}

fetchState();
setInterval(fetchState, 1000);
</script>
</body>
</html>
`
