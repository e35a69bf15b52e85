package web

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

const pageName = "prompt"

var pageTemplate = template.Must(template.New(pageName).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Monitor Off</title>
<style>
body { font-family: sans-serif; max-width: 28em; margin: 3em auto; }
button { margin: 0.3em; padding: 0.5em 1.2em; }
.hidden { display: none; }
#status { margin-top: 1em; color: #555; }
</style>
</head>
<body>
<div id="prompt" class="{{if ne .State.String "main_prompt"}}hidden{{end}}">
  <h2>Turn off the monitors?</h2>
  <p id="deadline">{{with .Deadline}}Turning off automatically at {{.Format "15:04:05"}}{{end}}</p>
  <button onclick="send('confirm')">Yes</button>
  <button onclick="send('cancel')">No</button>
  <button onclick="send('open_settings')">Settings</button>
</div>
<div id="settings" class="{{if ne .State.String "settings_open"}}hidden{{end}}">
  <h2>Settings</h2>
  <p><label><input type="checkbox" id="lock_pc" {{if .Settings.LockPC}}checked{{end}}
     onchange="send('set_lock_pc', this.checked)"> Lock the PC first</label></p>
  <p>Power-off signal:
    <label><input type="radio" name="off_type" value="soft" {{if eq .Settings.OffType 0}}checked{{end}}
       onchange="send('set_monitor_off_type', 'soft')"> soft</label>
    <label><input type="radio" name="off_type" value="hard" {{if eq .Settings.OffType 1}}checked{{end}}
       onchange="send('set_monitor_off_type', 'hard')"> hard</label></p>
  <p><label><input type="checkbox" id="wake" {{if .Settings.WakeOnKeyboard}}checked{{end}}
     {{if not .WakeOnKeyboardSelectable}}disabled{{end}}
     onchange="send('set_monitor_on_method', this.checked)"> Wake with the {{.WakeKey}} key</label></p>
  <button onclick="send('confirm')">Turn off now</button>
  <button onclick="send('close_settings')">Back</button>
</div>
<div id="status">{{.State}} / {{.Phase}}</div>
<script>
function render(v) {
  document.getElementById('prompt').className = v.state === 'main_prompt' ? '' : 'hidden';
  document.getElementById('settings').className = v.state === 'settings_open' ? '' : 'hidden';
  document.getElementById('lock_pc').checked = v.settings.lock_pc;
  document.getElementById('wake').checked = v.settings.monitor_on_method;
  document.getElementById('wake').disabled = !v.wake_on_keyboard_selectable;
  document.querySelector('input[value=' + (v.settings.monitor_off_type === 1 ? 'hard' : 'soft') + ']').checked = true;
  var status = v.state + ' / ' + v.phase;
  if (v.phase === 'waiting_for_wake') status = 'Monitors off. Press ' + v.wake_key + ' to turn them back on.';
  if (v.last_report) status += ' (' + v.last_report.monitors + ' monitors, ' + v.last_report.failed + ' failed)';
  document.getElementById('status').textContent = status;
}
function send(command, value) {
  fetch('/api/commands', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({command: command, value: value === undefined ? '' : String(value)})
  }).then(function (r) { return r.json(); }).then(function (b) { render(b.view || b); });
}
setInterval(function () {
  fetch('/api/view').then(function (r) { return r.json(); }).then(render).catch(function () {});
}, 500);
</script>
</body>
</html>
`))

// GET /
func (s *Server) getPage(c *gin.Context) {
	c.HTML(http.StatusOK, pageName, s.session.View())
}
